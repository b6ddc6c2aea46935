package http

import (
	"sync"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/feedbackhub/feedback-system/internal/infrastructure/http/handlers"
)

// Options configures the base server shared by every service.
type Options struct {
	Service string
	Log     zerolog.Logger
	Checks  []handlers.Check
}

var (
	promOnce       sync.Once
	promMiddleware echo.MiddlewareFunc
)

// requestMetrics returns the echoprometheus middleware. Its collectors live in
// the default registry, so it is built once per process.
func requestMetrics() echo.MiddlewareFunc {
	promOnce.Do(func() {
		promMiddleware = echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace: "feedbackhub",
			Subsystem: "http",
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		})
	})
	return promMiddleware
}

// NewRouter builds the Echo instance with the middleware and operational
// endpoints common to the gateway and the backends.
func NewRouter(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	log := opts.Log.With().Str("service", opts.Service).Logger()

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(requestMetrics())

	// --- Operational endpoints (no auth required) ---
	healthHandler := handlers.NewHealthHandler(opts.Service)
	healthDepsHandler := handlers.NewHealthDependenciesHandler(opts.Checks...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}

// DefaultShutdownTimeout bounds graceful shutdown in the cmd mains.
const DefaultShutdownTimeout = 10 * time.Second
