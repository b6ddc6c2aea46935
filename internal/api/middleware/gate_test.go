package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/core/credential"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

type stubVerifier struct {
	identity domain.Identity
	err      error
	calls    int
	tokens   []string
}

func (v *stubVerifier) Verify(token string) (domain.Identity, error) {
	v.calls++
	v.tokens = append(v.tokens, token)
	if v.err != nil {
		return domain.Identity{}, v.err
	}
	return v.identity, nil
}

var testPublic = []string{"/users/register", "/users/login"}

// serveGate runs a request through Gate and reports whether next was reached
// and what identity it observed.
func serveGate(t *testing.T, v *stubVerifier, req *http.Request) (*httptest.ResponseRecorder, bool, domain.Identity, http.Header) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		called   bool
		seen     domain.Identity
		seenHdrs http.Header
	)
	h := Gate(v, GateConfig{PublicPrefixes: testPublic, Logger: zerolog.Nop()})(func(c echo.Context) error {
		called = true
		seen, _ = domain.IdentityFromContext(c.Request().Context())
		seenHdrs = c.Request().Header.Clone()
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called, seen, seenHdrs
}

func TestGate_ValidBearerForwardsIdentity(t *testing.T) {
	want := domain.Identity{Subject: "U1", Role: domain.RoleUser}
	v := &stubVerifier{identity: want}

	req := httptest.NewRequest(http.MethodGet, "/feedback/F1", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")

	rec, called, seen, _ := serveGate(t, v, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected request to be forwarded, got %d", rec.Code)
	}
	if seen != want {
		t.Fatalf("identity in context = %+v, want %+v", seen, want)
	}
	if len(v.tokens) != 1 || v.tokens[0] != "abc.def.ghi" {
		t.Fatalf("unexpected verified tokens: %v", v.tokens)
	}
}

func TestGate_AllowlistedPathSkipsVerify(t *testing.T) {
	for _, p := range []string{"/users/login", "/users/register", "/users/login/extra"} {
		v := &stubVerifier{}
		req := httptest.NewRequest(http.MethodPost, p, nil)

		rec, called, seen, _ := serveGate(t, v, req)
		if !called || rec.Code != http.StatusOK {
			t.Fatalf("%s: expected forward, got %d", p, rec.Code)
		}
		if v.calls != 0 {
			t.Fatalf("%s: Verify must not be called, got %d calls", p, v.calls)
		}
		if !seen.IsZero() {
			t.Fatalf("%s: allowlisted request must carry no identity, got %+v", p, seen)
		}
	}
}

func TestGate_NonCanonicalPathsAreNotAllowlisted(t *testing.T) {
	for _, p := range []string{
		"/users/login/../../feedback",
		"/users/login/%2e%2e/%2e%2e/feedback",
		"//users/login",
		"/users/login/",
		"/users/loginx",
		"/users/%6Cogin",
	} {
		v := &stubVerifier{}
		req := httptest.NewRequest(http.MethodGet, "http://gateway"+p, nil)

		rec, called, _, _ := serveGate(t, v, req)
		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without credential, got %d (forwarded=%v)", p, rec.Code, called)
		}
	}
}

func TestGate_RejectsBadAuthorizationHeaders(t *testing.T) {
	for _, h := range []string{
		"",
		"Basic xyz",
		"bearer abc",
		"BEARER abc",
		"Bearer",
		"Bearer ",
		"Bearer  abc",
		"Bearer abc def",
		"Token abc",
	} {
		v := &stubVerifier{identity: domain.Identity{Subject: "U1", Role: domain.RoleUser}}
		req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}

		rec, called, _, _ := serveGate(t, v, req)
		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", h, rec.Code)
		}
		if v.calls != 0 {
			t.Fatalf("%q: Verify must not be called", h)
		}
	}
}

func TestGate_VerifyFailuresAreGeneric401(t *testing.T) {
	for _, verr := range []error{domain.ErrMalformedToken, domain.ErrSignatureMismatch, domain.ErrTokenExpired} {
		v := &stubVerifier{err: verr}
		req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
		req.Header.Set("Authorization", "Bearer a.b.c")

		rec, called, _, _ := serveGate(t, v, req)
		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("%v: expected 401, got %d", verr, rec.Code)
		}
		body := rec.Body.String()
		if strings.Contains(body, "expired") || strings.Contains(body, "signature") || strings.Contains(body, "malformed") {
			t.Fatalf("%v: response leaks failure detail: %s", verr, body)
		}
	}
}

func TestGate_SpoofedIdentityHeadersAreStripped(t *testing.T) {
	// Allowlisted: headers are removed and no identity is attached.
	req := httptest.NewRequest(http.MethodPost, "/users/register", nil)
	req.Header.Set(HeaderUserID, "A1")
	req.Header.Set(HeaderUserRole, "ADMIN")

	_, called, _, hdrs := serveGate(t, &stubVerifier{}, req)
	if !called {
		t.Fatalf("expected forward")
	}
	if hdrs.Get(HeaderUserID) != "" || hdrs.Get(HeaderUserRole) != "" {
		t.Fatalf("spoofed headers survived: %v", hdrs)
	}

	// Protected without credential: still rejected despite the headers.
	req = httptest.NewRequest(http.MethodGet, "/feedback", nil)
	req.Header.Set(HeaderUserID, "A1")
	req.Header.Set(HeaderUserRole, "ADMIN")
	rec, called, _, _ := serveGate(t, &stubVerifier{}, req)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGate_WithRealCodec(t *testing.T) {
	now := time.Now()
	key, err := credential.NewSigningKey(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	codec := credential.NewCodec(key, time.Hour, credential.WithClock(func() time.Time { return now }))
	cred, err := codec.Issue(domain.Identity{Subject: "U9", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/feedback/F1", nil)
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen domain.Identity
	h := Gate(codec, GateConfig{PublicPrefixes: testPublic, Logger: zerolog.Nop()})(func(c echo.Context) error {
		seen, _ = IdentityFrom(c)
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if seen.Subject != "U9" || seen.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity %+v", seen)
	}
}

func TestIsPublic_IgnoresBlankAndRelativePrefixes(t *testing.T) {
	prefixes := normalizePrefixes([]string{"", "  ", "users/login", "/health/"})
	if len(prefixes) != 1 || prefixes[0] != "/health" {
		t.Fatalf("unexpected prefixes: %v", prefixes)
	}
}
