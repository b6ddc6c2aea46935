package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedback-system/internal/api/gateway"
	"github.com/feedbackhub/feedback-system/internal/api/middleware"
	"github.com/feedbackhub/feedback-system/internal/core/credential"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

type fakeUsers struct {
	lists atomic.Int32
}

func (f *fakeUsers) user(id string, role domain.Role) *domain.User {
	return &domain.User{ID: id, Username: "user-" + id, Role: role, CreatedAt: time.Unix(0, 0).UTC()}
}

func (f *fakeUsers) Register(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
	return f.user("new", domain.RoleUser), nil
}

func (f *fakeUsers) Login(_ context.Context, username, _ string) (*ports.LoginResult, error) {
	return &ports.LoginResult{Token: "tok", ExpiresAt: time.Unix(3600, 0).UTC(), User: f.user("u-1", domain.RoleUser)}, nil
}

func (f *fakeUsers) Get(_ context.Context, id string) (*domain.User, error) {
	return f.user(id, domain.RoleUser), nil
}

func (f *fakeUsers) List(_ context.Context, _ domain.Identity) ([]*domain.User, error) {
	f.lists.Add(1)
	return []*domain.User{f.user("u-1", domain.RoleUser)}, nil
}

func (f *fakeUsers) Update(_ context.Context, _ domain.Identity, id string, _ ports.UpdateUserInput) (*domain.User, error) {
	return f.user(id, domain.RoleUser), nil
}

func (f *fakeUsers) Delete(context.Context, domain.Identity, string) error { return nil }

type fakeFeedback struct {
	listAll atomic.Int32
}

func (f *fakeFeedback) Create(context.Context, domain.Identity, ports.CreateFeedbackInput) (*ports.CreateFeedbackResult, error) {
	return nil, domain.ErrInvalidInput
}

func (f *fakeFeedback) Get(context.Context, string) (*domain.Feedback, error) {
	return nil, domain.ErrFeedbackNotFound
}

func (f *fakeFeedback) ListByOwner(context.Context, string) ([]*domain.Feedback, error) {
	return nil, nil
}

func (f *fakeFeedback) ListAll(context.Context, domain.Identity) ([]*domain.Feedback, error) {
	f.listAll.Add(1)
	return nil, nil
}

func (f *fakeFeedback) Update(context.Context, domain.Identity, string, ports.UpdateFeedbackInput) (*domain.Feedback, error) {
	return nil, domain.ErrFeedbackNotFound
}

func (f *fakeFeedback) Delete(context.Context, domain.Identity, string) error {
	return domain.ErrFeedbackNotFound
}

func (f *fakeFeedback) ImageURL(context.Context, string) (string, error) {
	return "", domain.ErrInvalidInput
}

type stack struct {
	gateway  *echo.Echo
	codec    *credential.Codec
	users    *fakeUsers
	feedback *fakeFeedback
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := zerolog.Nop()

	users := &fakeUsers{}
	feedback := &fakeFeedback{}
	userSrv := httptest.NewServer(NewUserRouter(UserDeps{Log: log, Service: users}))
	t.Cleanup(userSrv.Close)
	feedbackSrv := httptest.NewServer(NewFeedbackRouter(FeedbackDeps{Log: log, Service: feedback}))
	t.Cleanup(feedbackSrv.Close)

	key, err := credential.NewSigningKey(strings.Repeat("k", 32))
	require.NoError(t, err)
	codec := credential.NewCodec(key, time.Hour)

	routes, err := gateway.Routes(userSrv.URL, feedbackSrv.URL)
	require.NoError(t, err)

	gw := NewGatewayRouter(GatewayDeps{
		Log:         log,
		Verifier:    codec,
		PublicPaths: []string{"/users/register", "/users/login"},
		Routes:      routes,
	})
	return &stack{gateway: gw, codec: codec, users: users, feedback: feedback}
}

func (s *stack) do(t *testing.T, method, target string, caller *domain.Identity, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if caller != nil {
		cred, err := s.codec.Issue(*caller)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+cred.Token)
	}
	rec := httptest.NewRecorder()
	s.gateway.ServeHTTP(rec, req)
	return rec
}

func TestGateway_RejectsMissingCredential(t *testing.T) {
	s := newStack(t)

	rec := s.do(t, http.MethodGet, "/users/me", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestGateway_ForwardsVerifiedIdentity(t *testing.T) {
	s := newStack(t)
	caller := domain.Identity{Subject: "u-7", Role: domain.RoleUser}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	cred, err := s.codec.Issue(caller)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+cred.Token)
	req.Header.Set(middleware.HeaderUserID, "admin-1")
	req.Header.Set(middleware.HeaderUserRole, "ADMIN")
	rec := httptest.NewRecorder()
	s.gateway.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u-7", body["id"])
}

func TestGateway_PublicLoginNeedsNoCredential(t *testing.T) {
	s := newStack(t)

	rec := s.do(t, http.MethodPost, "/users/login", nil, `{"username":"alice","password":"secret1"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token":"tok"`)
}

func TestGateway_AdminOnlyListings(t *testing.T) {
	s := newStack(t)
	user := domain.Identity{Subject: "u-1", Role: domain.RoleUser}
	admin := domain.Identity{Subject: "a-1", Role: domain.RoleAdmin}

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/users", &user, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/feedback", &user, "").Code)
	assert.Equal(t, int32(0), s.users.lists.Load())
	assert.Equal(t, int32(0), s.feedback.listAll.Load())

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/users", &admin, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/feedback", &admin, "").Code)
	assert.Equal(t, int32(1), s.users.lists.Load())
	assert.Equal(t, int32(1), s.feedback.listAll.Load())
}

func TestGateway_DomainErrorsSurfaceThroughProxy(t *testing.T) {
	s := newStack(t)
	user := domain.Identity{Subject: "u-1", Role: domain.RoleUser}

	rec := s.do(t, http.MethodGet, "/feedback/missing", &user, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestGateway_HealthIsOutsideTheGate(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health/ready", nil, "").Code)
}

func TestBackend_RejectsForgedIdentityHeaders(t *testing.T) {
	e := NewUserRouter(UserDeps{Log: zerolog.Nop(), Service: &fakeUsers{}})

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(middleware.HeaderUserID, "u-1")
	req.Header.Set(middleware.HeaderUserRole, "ROOT")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBackend_ServesSwaggerUI(t *testing.T) {
	e := NewFeedbackRouter(FeedbackDeps{Log: zerolog.Nop(), Service: &fakeFeedback{}})

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
