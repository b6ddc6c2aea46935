package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/feedbackhub/feedback-system/internal/api/middleware"
	"github.com/feedbackhub/feedback-system/internal/core/domain"
)

// callerIdentity returns the identity the gateway forwarded for this request.
// Handlers acting on behalf of a caller fail fast with 401 without it.
func callerIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.Subject == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
