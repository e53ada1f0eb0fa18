package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"greenlens/internal/domain"
	"greenlens/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Errors the user must see verbatim keep their own message.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidationRejected):
		return http.StatusBadRequest, "VALIDATION_REJECTED", err.Error()
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, "UPLOAD_FAILED", err.Error()
	case errors.Is(err, domain.ErrStreamInterrupted):
		return http.StatusBadGateway, "STREAM_INTERRUPTED", err.Error()
	case errors.Is(err, domain.ErrStreamError):
		return http.StatusBadGateway, "STREAM_ERROR", err.Error()
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, "SUPERSEDED", "upload was superseded by a newer upload or reset"
	case errors.Is(err, domain.ErrNoResult):
		return http.StatusConflict, "NO_RESULT", "no analysis result available"
	case errors.Is(err, domain.ErrInitiativeNotFound):
		return http.StatusNotFound, "INITIATIVE_NOT_FOUND", "initiative not found"
	case errors.Is(err, domain.ErrInvalidPageLabel):
		return http.StatusUnprocessableEntity, "INVALID_PAGE_LABEL", err.Error()
	case errors.Is(err, domain.ErrPageOutOfRange):
		return http.StatusUnprocessableEntity, "PAGE_OUT_OF_RANGE", err.Error()
	case errors.Is(err, domain.ErrViewerDetached):
		return http.StatusServiceUnavailable, "VIEWER_DETACHED", "no document viewer attached"
	case errors.Is(err, domain.ErrWorkflowClosed):
		return http.StatusServiceUnavailable, "WORKFLOW_CLOSED", "workflow is shutting down"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
// Server-side failures are logged to logger.
func HandleError(c *gin.Context, logger *slog.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		logger.Error("request failed",
			"request_id", c.GetString(middleware.RequestIDKey),
			"code", code,
			"error", err,
		)
	}
	RespondError(c, status, code, msg)
}
