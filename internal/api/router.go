package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/feedbackhub/feedback-system/docs"
	"github.com/feedbackhub/feedback-system/internal/api/gateway"
	"github.com/feedbackhub/feedback-system/internal/api/handler"
	"github.com/feedbackhub/feedback-system/internal/api/middleware"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
	infrahttp "github.com/feedbackhub/feedback-system/internal/infrastructure/http"
	"github.com/feedbackhub/feedback-system/internal/infrastructure/http/handlers"
)

// feedbackBodyLimit caps multipart submissions: the image plus form fields.
const feedbackBodyLimit = "6M"

// GatewayDeps wires the public entry point.
type GatewayDeps struct {
	Log         zerolog.Logger
	Verifier    ports.TokenVerifier
	PublicPaths []string
	Routes      []gateway.Route
	// Transport is the base transport for upstream calls. Nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
	Checks    []handlers.Check
}

// NewGatewayRouter builds the gateway: every proxied route sits behind the
// authentication gate; operational endpoints do not.
func NewGatewayRouter(deps GatewayDeps) *echo.Echo {
	e := newBase("gateway", deps.Log, deps.Checks)

	gate := middleware.Gate(deps.Verifier, middleware.GateConfig{
		PublicPrefixes: deps.PublicPaths,
		Logger:         deps.Log,
	})
	gateway.Mount(e, deps.Routes, gate, gateway.NewIdentityTransport(deps.Transport), deps.Log)

	return e
}

// UserDeps wires the user service.
type UserDeps struct {
	Log     zerolog.Logger
	Service ports.UserService
	Checks  []handlers.Check
}

// NewUserRouter builds the user service. Identity comes from the headers
// written by the gateway.
func NewUserRouter(deps UserDeps) *echo.Echo {
	e := newBase("user-service", deps.Log, deps.Checks)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	h := handler.NewUserHandler(deps.Service)

	users := e.Group("/users", middleware.TrustedIdentity())
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.GET("/me", h.Me)
	users.GET("", h.List, middleware.RequireRole(domain.RoleAdmin))
	users.GET("/:id", h.Get)
	users.PUT("/:id", h.Update)
	users.DELETE("/:id", h.Delete)

	return e
}

// FeedbackDeps wires the feedback service.
type FeedbackDeps struct {
	Log     zerolog.Logger
	Service ports.FeedbackService
	Checks  []handlers.Check
}

func NewFeedbackRouter(deps FeedbackDeps) *echo.Echo {
	e := newBase("feedback-service", deps.Log, deps.Checks)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	h := handler.NewFeedbackHandler(deps.Service)

	fb := e.Group("/feedback", middleware.TrustedIdentity())
	fb.POST("", h.Create, echomiddleware.BodyLimit(feedbackBodyLimit))
	fb.GET("", h.List, middleware.RequireRole(domain.RoleAdmin))
	fb.GET("/user/:userId", h.ListByUser)
	fb.GET("/uploads/:key", h.Image)
	fb.GET("/:id", h.Get)
	fb.PUT("/:id", h.Update)
	fb.DELETE("/:id", h.Delete)

	return e
}

func newBase(service string, log zerolog.Logger, checks []handlers.Check) *echo.Echo {
	e := infrahttp.NewRouter(infrahttp.Options{
		Service: service,
		Log:     log,
		Checks:  checks,
	})
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log.With().Str("service", service).Logger())
	return e
}
