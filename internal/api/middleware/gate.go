package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/api/metrics"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

const bearerPrefix = "Bearer "

// GateConfig configures the gateway authentication gate.
type GateConfig struct {
	// PublicPrefixes are forwarded without a credential. A request path
	// matches when it equals a prefix or is nested under it.
	PublicPrefixes []string
	Logger         zerolog.Logger
}

// Gate authenticates every request entering the gateway.
//
// Identity headers supplied by the client are always dropped. Allowlisted
// paths pass without touching the verifier; everything else needs
// "Authorization: Bearer <token>" with a credential that verifies. Any
// failure is a bare 401.
func Gate(verifier ports.TokenVerifier, cfg GateConfig) echo.MiddlewareFunc {
	public := normalizePrefixes(cfg.PublicPrefixes)
	log := cfg.Logger

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			StripIdentityHeaders(req.Header)

			if isPublic(req.URL, public) {
				metrics.GateDecisionsTotal.WithLabelValues("allowlisted").Inc()
				return next(c)
			}

			header := req.Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return reject(c, log, "missing_credential", nil)
			}
			token, ok := strings.CutPrefix(header, bearerPrefix)
			if !ok || token == "" || strings.ContainsAny(token, " \t") {
				return reject(c, log, "bad_scheme", nil)
			}

			id, err := verifier.Verify(token)
			if err != nil {
				return reject(c, log, verifyOutcome(err), err)
			}

			setIdentity(c, id)
			metrics.GateDecisionsTotal.WithLabelValues("verified").Inc()
			return next(c)
		}
	}
}

func reject(c echo.Context, log zerolog.Logger, outcome string, err error) error {
	metrics.GateDecisionsTotal.WithLabelValues(outcome).Inc()
	log.Warn().
		Err(err).
		Str("outcome", outcome).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Str("remote_ip", c.RealIP()).
		Msg("request rejected by gate")
	return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func verifyOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrSignatureMismatch):
		return "bad_signature"
	default:
		return "malformed"
	}
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" || !strings.HasPrefix(p, "/") {
			continue
		}
		out = append(out, path.Clean(p))
	}
	return out
}

// isPublic reports whether u is allowlisted. Only canonical paths can match:
// anything path.Clean would rewrite, or that arrived percent-encoded, is
// treated as protected.
func isPublic(u *url.URL, prefixes []string) bool {
	p := u.Path
	if p == "" || u.RawPath != "" || path.Clean(p) != p {
		return false
	}
	for _, prefix := range prefixes {
		if p == prefix || (prefix != "/" && strings.HasPrefix(p, prefix+"/")) {
			return true
		}
	}
	return false
}
