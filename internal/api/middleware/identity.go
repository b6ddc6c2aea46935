package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// Headers carrying the verified identity from the gateway to the backends.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

const identityKey = "identity"

// StripIdentityHeaders removes any identity headers from h.
func StripIdentityHeaders(h http.Header) {
	h.Del(HeaderUserID)
	h.Del(HeaderUserRole)
}

// WriteIdentityHeaders replaces the identity headers in h with id.
func WriteIdentityHeaders(h http.Header, id domain.Identity) {
	StripIdentityHeaders(h)
	h.Set(HeaderUserID, id.Subject)
	h.Set(HeaderUserRole, id.Role.String())
}

// ReadIdentityHeaders parses the identity headers. ok is false when neither
// header is present; a partial or unknown identity is an error.
func ReadIdentityHeaders(h http.Header) (id domain.Identity, ok bool, err error) {
	subjects, roles := h.Values(HeaderUserID), h.Values(HeaderUserRole)
	if len(subjects) == 0 && len(roles) == 0 {
		return domain.Identity{}, false, nil
	}
	if len(subjects) != 1 || len(roles) != 1 {
		return domain.Identity{}, false, fmt.Errorf("%w: ambiguous identity headers", domain.ErrUnauthenticated)
	}

	subject := strings.TrimSpace(subjects[0])
	if subject == "" {
		return domain.Identity{}, false, fmt.Errorf("%w: empty %s", domain.ErrUnauthenticated, HeaderUserID)
	}
	role, err := domain.ParseRole(roles[0])
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return domain.Identity{Subject: subject, Role: role}, true, nil
}

// TrustedIdentity runs on the backend services, which are only reachable
// through the gateway. It lifts the injected identity headers into the
// request context; requests without them stay anonymous.
func TrustedIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok, err := ReadIdentityHeaders(c.Request().Header)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if ok {
				setIdentity(c, id)
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity established for this request by Gate or
// TrustedIdentity.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	if id, ok := c.Get(identityKey).(domain.Identity); ok && !id.IsZero() {
		return id, true
	}
	return domain.IdentityFromContext(c.Request().Context())
}

func setIdentity(c echo.Context, id domain.Identity) {
	req := c.Request()
	c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), id)))
	c.Set(identityKey, id)
}
