package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Users ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role"     validate:"omitempty,oneof=USER ADMIN"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type registerResponse struct {
	User userResponse `json:"user"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// --- Feedback ---

// createFeedbackRequest is bound from a multipart form; the optional image
// travels in the "image" file part.
type createFeedbackRequest struct {
	Rating      int    `json:"rating"      form:"rating"      validate:"required,min=1,max=5"`
	Description string `json:"description" form:"description" validate:"max=2000"`
}

type updateFeedbackRequest struct {
	Rating      int    `json:"rating"`
	Description string `json:"description"`
}

type feedbackLinks struct {
	Self  string `json:"self"`
	Owner string `json:"owner"`
}

type feedbackResponse struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Rating      int           `json:"rating"`
	Description string        `json:"description"`
	ImageURL    string        `json:"image_url,omitempty"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Links       feedbackLinks `json:"_links"`
}
