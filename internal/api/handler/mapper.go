package handler

import (
	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

const imageRoute = "/feedback/uploads/"

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toFeedbackResponse(f *domain.Feedback) feedbackResponse {
	resp := feedbackResponse{
		ID:          f.ID,
		UserID:      f.OwnerID,
		Rating:      f.Rating,
		Description: f.Description,
		Version:     f.Version,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		Links: feedbackLinks{
			Self:  "/feedback/" + f.ID,
			Owner: "/users/" + f.OwnerID,
		},
	}
	if f.HasImage() {
		resp.ImageURL = imageRoute + f.ImageKey
	}
	return resp
}

func toFeedbackResponses(items []*domain.Feedback) []feedbackResponse {
	out := make([]feedbackResponse, 0, len(items))
	for _, f := range items {
		out = append(out, toFeedbackResponse(f))
	}
	return out
}
