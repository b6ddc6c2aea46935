package ports

import (
	"context"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// FeedbackRepository defines persistence operations for feedback records.
//
// Replace and Delete are conditional on expectedVersion so that the
// read → authorize → write sequence cannot act on a stale snapshot. Both
// return domain.ErrFeedbackNotFound when the record is gone and
// domain.ErrVersionConflict when it changed since it was read.
type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
	FindByID(ctx context.Context, id string) (*domain.Feedback, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Feedback, error)
	ListAll(ctx context.Context) ([]*domain.Feedback, error)
	Replace(ctx context.Context, f *domain.Feedback, expectedVersion int64) error
	Delete(ctx context.Context, id string, expectedVersion int64) error
}
