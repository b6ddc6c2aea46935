package ports

import (
	"context"
	"time"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// UpdateUserInput carries the fields a caller may change. Nil means keep.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// UserService defines account use cases. Every method acting on behalf of a
// caller receives the caller's Identity explicitly.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, caller domain.Identity) ([]*domain.User, error)
	Update(ctx context.Context, caller domain.Identity, id string, in UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Identity, id string) error
}
