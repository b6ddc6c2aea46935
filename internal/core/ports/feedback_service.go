package ports

import (
	"context"
	"io"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// ImageInput is an optional upload attached to a new feedback record.
type ImageInput struct {
	Filename    string
	ContentType string
	Body        io.ReadSeeker
}

// CreateFeedbackInput carries a new submission. The owner is always the
// caller; it is never taken from the payload.
type CreateFeedbackInput struct {
	Rating         int
	Description    string
	Image          *ImageInput
	IdempotencyKey string
}

// CreateFeedbackResult reports the stored record and whether it was replayed
// from an earlier submission with the same idempotency key.
type CreateFeedbackResult struct {
	Feedback       *domain.Feedback
	AlreadyExisted bool
}

// UpdateFeedbackInput carries the mutable fields of a record.
type UpdateFeedbackInput struct {
	Rating      int
	Description string
}

// FeedbackService defines feedback use cases. Mutations re-check the
// authorization policy server-side regardless of what the client claims.
type FeedbackService interface {
	Create(ctx context.Context, caller domain.Identity, in CreateFeedbackInput) (*CreateFeedbackResult, error)
	Get(ctx context.Context, id string) (*domain.Feedback, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Feedback, error)
	ListAll(ctx context.Context, caller domain.Identity) ([]*domain.Feedback, error)
	Update(ctx context.Context, caller domain.Identity, id string, in UpdateFeedbackInput) (*domain.Feedback, error)
	Delete(ctx context.Context, caller domain.Identity, id string) error
	ImageURL(ctx context.Context, key string) (string, error)
}
