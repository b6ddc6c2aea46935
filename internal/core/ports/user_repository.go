package ports

import (
	"context"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// Update replaces the stored account if it is still at expectedVersion.
	// It returns domain.ErrUserNotFound when the account no longer exists and
	// domain.ErrVersionConflict when it changed since it was read.
	Update(ctx context.Context, user *domain.User, expectedVersion int64) (*domain.User, error)
	// Delete removes the account under the same version condition.
	Delete(ctx context.Context, id string, expectedVersion int64) error
}
