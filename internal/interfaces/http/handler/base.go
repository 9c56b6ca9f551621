package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salespipe/backend/internal/application/syncengine"
	"github.com/salespipe/backend/internal/domain/calendar"
	"github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/shared"
	"github.com/salespipe/backend/internal/domain/warehouse"
	"github.com/salespipe/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key set by the RequestID middleware
const RequestIDKey = "request_id"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeSyncInProgress, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps pipeline errors onto HTTP responses:
// window and channel-selector mistakes are the caller's fault,
// a held run lock is a conflict, and total upstream failure is 502.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrSyncInProgress):
		h.Conflict(c, shared.ErrSyncInProgress.Message)
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrInvertedWindow),
		errors.Is(err, warehouse.ErrUnknownChannel),
		errors.Is(err, syncengine.ErrInvalidCostEntry):
		h.BadRequest(c, err.Error())
	case errors.Is(err, syncengine.ErrAllChannelsFailed),
		errors.Is(err, channel.ErrNotConfigured),
		errors.Is(err, channel.ErrUnavailable),
		errors.Is(err, channel.ErrRequestFailed),
		errors.Is(err, channel.ErrInvalidResponse):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, err.Error())
	default:
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			code := dto.NormalizeErrorCode(domainErr.Code)
			h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
			return
		}
		h.InternalError(c, "An unexpected error occurred")
	}
}
