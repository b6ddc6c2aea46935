package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/feedbackhub/feedback-system/internal/api/metrics"
	"github.com/feedbackhub/feedback-system/internal/core/ports"
)

const (
	maxImageBytes     = 5 << 20
	idempotencyHeader = "Idempotency-Key"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// FeedbackHandler handles HTTP requests for feedback records.
type FeedbackHandler struct {
	service ports.FeedbackService
}

func NewFeedbackHandler(service ports.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// Create handles POST /feedback.
//
// @Summary      Submit feedback
// @Tags         feedback
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string  false  "Idempotency key to prevent duplicate submissions"
// @Param        rating           formData  int     true   "Rating from 1 to 5"
// @Param        description      formData  string  false  "Free text"
// @Param        image            formData  file    false  "Optional image"
// @Success      201              {object}  feedbackResponse
// @Success      200              {object}  feedbackResponse  "Replayed submission"
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      413              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /feedback [post]
func (h *FeedbackHandler) Create(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var req createFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	in := ports.CreateFeedbackInput{
		Rating:         req.Rating,
		Description:    req.Description,
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		file, err := openImage(fh)
		if err != nil {
			return err
		}
		defer file.Close()
		in.Image = &ports.ImageInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
	}

	result, err := h.service.Create(c.Request().Context(), caller, in)
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		metrics.IdempotentReplaysTotal.Inc()
		return c.JSON(http.StatusOK, toFeedbackResponse(result.Feedback))
	}
	metrics.FeedbackCreatedTotal.WithLabelValues(strconv.FormatBool(result.Feedback.HasImage())).Inc()
	return c.JSON(http.StatusCreated, toFeedbackResponse(result.Feedback))
}

func openImage(fh *multipart.FileHeader) (multipart.File, error) {
	if fh.Size > maxImageBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 5MB")
	}
	if _, ok := allowedImageTypes[fh.Header.Get(echo.HeaderContentType)]; !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "image must be jpeg, png, gif or webp")
	}
	file, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}
	return file, nil
}

// List handles GET /feedback.
//
// @Summary      List all feedback (ADMIN)
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   feedbackResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /feedback [get]
func (h *FeedbackHandler) List(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	items, err := h.service.ListAll(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedbackResponses(items))
}

// Get handles GET /feedback/:id.
//
// @Summary      Get feedback by id
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Feedback ID"
// @Success      200  {object}  feedbackResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /feedback/{id} [get]
func (h *FeedbackHandler) Get(c echo.Context) error {
	if _, err := callerIdentity(c); err != nil {
		return err
	}
	fb, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedbackResponse(fb))
}

// ListByUser handles GET /feedback/user/:userId.
//
// @Summary      List feedback left by a user
// @Tags         feedback
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "Owner user ID"
// @Success      200     {array}   feedbackResponse
// @Failure      401     {object}  errorResponse
// @Router       /feedback/user/{userId} [get]
func (h *FeedbackHandler) ListByUser(c echo.Context) error {
	if _, err := callerIdentity(c); err != nil {
		return err
	}
	items, err := h.service.ListByOwner(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedbackResponses(items))
}

// Update handles PUT /feedback/:id.
//
// @Summary      Update feedback
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "Feedback ID"
// @Param        body  body      updateFeedbackRequest  true  "New rating and description"
// @Success      200   {object}  feedbackResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /feedback/{id} [put]
func (h *FeedbackHandler) Update(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	// Content rules are enforced by the service after existence and
	// ownership, so only the JSON shape is checked here.
	var req updateFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	fb, err := h.service.Update(c.Request().Context(), caller, c.Param("id"), ports.UpdateFeedbackInput{
		Rating:      req.Rating,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFeedbackResponse(fb))
}

// Delete handles DELETE /feedback/:id.
//
// @Summary      Delete feedback
// @Tags         feedback
// @Security     BearerAuth
// @Param        id   path  string  true  "Feedback ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /feedback/{id} [delete]
func (h *FeedbackHandler) Delete(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Image handles GET /feedback/uploads/:key by redirecting to a time-limited
// object URL.
//
// @Summary      Download a feedback image
// @Tags         feedback
// @Security     BearerAuth
// @Param        key  path  string  true  "Image key"
// @Success      307
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Router       /feedback/uploads/{key} [get]
func (h *FeedbackHandler) Image(c echo.Context) error {
	if _, err := callerIdentity(c); err != nil {
		return err
	}
	url, err := h.service.ImageURL(c.Request().Context(), c.Param("key"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}
