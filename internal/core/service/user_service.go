package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/policy"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

// dummyHash is compared against when the username is unknown, so a failed
// login costs one bcrypt comparison whether or not the account exists.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("feedback-system-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// UserService implements registration, login and account management.
type UserService struct {
	repo    ports.UserRepository
	tokens  ports.TokenIssuer
	log     zerolog.Logger
	now     func() time.Time
	compare func(hash, password []byte) error
}

func NewUserService(repo ports.UserRepository, tokens ports.TokenIssuer, log zerolog.Logger) *UserService {
	return &UserService{
		repo:    repo,
		tokens:  tokens,
		log:     log,
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}
}

// Register creates a USER account. Self-registration never grants ADMIN.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// EnsureAdmin creates the bootstrap ADMIN account when it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (*domain.User, error) {
	existing, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.log.Warn().Str("username", username).Msg("bootstrap admin username is taken by a non-admin account")
		}
		return existing, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	user, err := s.Register(ctx, ports.RegisterInput{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	expected := user.Version
	user.Role = domain.RoleAdmin
	user.Version++
	user.UpdatedAt = s.now().UTC()
	promoted, err := s.repo.Update(ctx, user, expected)
	if err != nil {
		return nil, lostRace("user", user.ID, err)
	}
	return promoted, nil
}

// Login verifies the password and issues a credential. Unknown usernames and
// wrong passwords are reported identically.
func (s *UserService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.compare(dummyHash(), []byte(password))
			s.log.Debug().Str("username", username).Msg("login for unknown user")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if s.compare([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("user_id", user.ID).Msg("login with wrong password")
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("credential issued")

	return &ports.LoginResult{Token: cred.Token, ExpiresAt: cred.ExpiresAt, User: user}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every account; ADMIN only.
func (s *UserService) List(ctx context.Context, caller domain.Identity) ([]*domain.User, error) {
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Update changes an account. The account is its own owner, so the same
// ownership rule as feedback applies; changing a role additionally needs ADMIN.
func (s *UserService) Update(ctx context.Context, caller domain.Identity, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeMutation(caller, user.ID); err != nil {
		return nil, err
	}
	expected := user.Version

	if in.Role != nil && *in.Role != user.Role {
		if err := policy.RequireAdmin(caller); err != nil {
			return nil, err
		}
		if _, err := domain.ParseRole(string(*in.Role)); err != nil {
			return nil, err
		}
		user.Role = *in.Role
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, fmt.Errorf("%w: username must not be empty", domain.ErrInvalidInput)
		}
		user.Username = name
	}
	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("update user: hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.Version++
	user.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, user, expected)
	if err != nil {
		return nil, lostRace("user", id, err)
	}
	s.log.Info().Str("user_id", id).Str("actor", caller.Subject).Msg("user updated")
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.AuthorizeMutation(caller, user.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, user.Version); err != nil {
		return lostRace("user", id, err)
	}
	s.log.Info().Str("user_id", id).Str("actor", caller.Subject).Msg("user deleted")
	return nil
}
