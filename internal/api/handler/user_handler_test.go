package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/feedbackhub/feedback-system/internal/api/middleware"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

type stubUserService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	getFn      func(ctx context.Context, id string) (*domain.User, error)
	listFn     func(ctx context.Context, caller domain.Identity) ([]*domain.User, error)
	updateFn   func(ctx context.Context, caller domain.Identity, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn   func(ctx context.Context, caller domain.Identity, id string) error
}

func (s *stubUserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) List(ctx context.Context, caller domain.Identity) ([]*domain.User, error) {
	return s.listFn(ctx, caller)
}

func (s *stubUserService) Update(ctx context.Context, caller domain.Identity, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, caller, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, caller domain.Identity, id string) error {
	return s.deleteFn(ctx, caller, id)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newContext builds an echo context; a non-nil caller is attached the same
// way the backend identity middleware does it.
func newContext(e *echo.Echo, req *http.Request, caller *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	if caller != nil {
		req.Header.Set(middleware.HeaderUserID, caller.Subject)
		req.Header.Set(middleware.HeaderUserRole, caller.Role.String())
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = middleware.TrustedIdentity()(func(echo.Context) error { return nil })(c)
	return c, rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestUserHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Email != "a@example.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "U1", Username: in.Username, Role: domain.RoleUser, PasswordHash: "hash"}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(e, jsonRequest(http.MethodPost, "/users/register", `{"username":"alice","password":"secret1","email":"a@example.com","role":"ADMIN"}`), nil)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user := resp["user"]
	if user["id"] != "U1" || user["role"] != "USER" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}
}

func TestUserHandler_Register_ValidationAndConflict(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewUserHandler(stub)

	c, _ := newContext(e, jsonRequest(http.MethodPost, "/users/register", `{"username":"al","password":"x"}`), nil)
	if code := httpCode(t, h.Register(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}

	c, _ = newContext(e, jsonRequest(http.MethodPost, "/users/register", `{not json`), nil)
	if code := httpCode(t, h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	c, _ = newContext(e, jsonRequest(http.MethodPost, "/users/register", `{"username":"alice","password":"secret1"}`), nil)
	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserHandler_Login(t *testing.T) {
	e := newTestEcho()
	expires := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubUserService{
		loginFn: func(_ context.Context, username, password string) (*ports.LoginResult, error) {
			if password != "right" {
				return nil, domain.ErrInvalidCredentials
			}
			return &ports.LoginResult{
				Token:     "a.b.c",
				ExpiresAt: expires,
				User:      &domain.User{ID: "U1", Username: username, Role: domain.RoleUser},
			}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(e, jsonRequest(http.MethodPost, "/users/login", `{"username":"bob","password":"right"}`), nil)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "a.b.c" || !resp.ExpiresAt.Equal(expires) || resp.User.ID != "U1" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	c, _ = newContext(e, jsonRequest(http.MethodPost, "/users/login", `{"username":"bob","password":"wrong"}`), nil)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserHandler_Me(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		getFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "carol", Role: domain.RoleUser}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(e, httptest.NewRequest(http.MethodGet, "/users/me", nil), &domain.Identity{Subject: "U7", Role: domain.RoleUser})
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "U7" {
		t.Fatalf("expected caller's own record, got %+v", resp)
	}

	c, _ = newContext(e, httptest.NewRequest(http.MethodGet, "/users/me", nil), nil)
	if code := httpCode(t, h.Me(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", code)
	}
}

func TestUserHandler_Update_ParsesRole(t *testing.T) {
	e := newTestEcho()
	caller := domain.Identity{Subject: "A1", Role: domain.RoleAdmin}
	stub := &stubUserService{
		updateFn: func(_ context.Context, got domain.Identity, id string, in ports.UpdateUserInput) (*domain.User, error) {
			if got != caller || id != "U1" {
				t.Fatalf("unexpected caller/id: %+v %s", got, id)
			}
			if in.Role == nil || *in.Role != domain.RoleAdmin || in.Email != nil {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: id, Role: *in.Role}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(e, jsonRequest(http.MethodPut, "/users/U1", `{"role":"ADMIN"}`), &caller)
	c.SetParamNames("id")
	c.SetParamValues("U1")
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newContext(e, jsonRequest(http.MethodPut, "/users/U1", `{"role":"admin"}`), &caller)
	c.SetParamNames("id")
	c.SetParamValues("U1")
	if code := httpCode(t, h.Update(c)); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for lower-case role, got %d", code)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	e := newTestEcho()
	stub := &stubUserService{
		deleteFn: func(_ context.Context, caller domain.Identity, id string) error {
			if caller.Subject != id {
				return domain.ErrForbidden
			}
			return nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := newContext(e, httptest.NewRequest(http.MethodDelete, "/users/U1", nil), &domain.Identity{Subject: "U1", Role: domain.RoleUser})
	c.SetParamNames("id")
	c.SetParamValues("U1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c, _ = newContext(e, httptest.NewRequest(http.MethodDelete, "/users/U2", nil), &domain.Identity{Subject: "U1", Role: domain.RoleUser})
	c.SetParamNames("id")
	c.SetParamValues("U2")
	if err := h.Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
