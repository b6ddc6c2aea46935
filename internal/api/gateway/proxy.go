// Package gateway routes authenticated requests from the public edge to the
// backend services.
package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/api/metrics"
	"github.com/feedbackhub/feedback-system/internal/api/middleware"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// Route maps a path prefix to the backend that serves it.
type Route struct {
	Prefix string
	Target *url.URL
}

// Routes builds the static routing table.
func Routes(userServiceURL, feedbackServiceURL string) ([]Route, error) {
	table := []struct{ prefix, raw string }{
		{"/users", userServiceURL},
		{"/feedback", feedbackServiceURL},
	}

	routes := make([]Route, 0, len(table))
	for _, r := range table {
		u, err := url.Parse(strings.TrimSpace(r.raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("gateway: invalid upstream %q for %s", r.raw, r.prefix)
		}
		routes = append(routes, Route{Prefix: r.prefix, Target: u})
	}
	return routes, nil
}

// Mount registers every route on e behind gate. Requests are proxied
// unchanged; transport sees the outbound request and is where the identity
// is attached.
func Mount(e *echo.Echo, routes []Route, gate echo.MiddlewareFunc, transport http.RoundTripper, log zerolog.Logger) {
	for _, route := range routes {
		route := route // per-iteration copy; the go directive predates 1.22 loop semantics
		proxy := echomw.ProxyWithConfig(echomw.ProxyConfig{
			Balancer:  echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{Name: route.Prefix, URL: route.Target}}),
			Transport: transport,
			ErrorHandler: func(c echo.Context, err error) error {
				metrics.UpstreamErrorsTotal.WithLabelValues(route.Prefix).Inc()
				log.Error().Err(err).Str("route", route.Prefix).Str("path", c.Request().URL.Path).Msg("upstream request failed")
				return echo.NewHTTPError(http.StatusBadGateway, "upstream unavailable")
			},
		})

		e.Any(route.Prefix, echo.NotFoundHandler, gate, proxy)
		e.Any(route.Prefix+"/*", echo.NotFoundHandler, gate, proxy)
	}
}

// IdentityTransport writes the verified identity stored in the request
// context onto the outbound request as X-User-Id / X-User-Role. Requests
// without an identity are forwarded with neither header.
type IdentityTransport struct {
	Base http.RoundTripper
}

func NewIdentityTransport(base http.RoundTripper) *IdentityTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &IdentityTransport{Base: base}
}

func (t *IdentityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	middleware.StripIdentityHeaders(out.Header)
	if id, ok := domain.IdentityFromContext(req.Context()); ok {
		middleware.WriteIdentityHeaders(out.Header, id)
	}
	return t.Base.RoundTrip(out)
}
