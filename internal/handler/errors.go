package handler

import (
	"errors"
	"net/http"
	"time"

	"gameforge-server/internal/models"
	"gameforge-server/internal/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newErrorResponse(message string, details any) errorResponse {
	return errorResponse{
		Error:     message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// handleServiceError maps service errors onto the HTTP surface. Callers
// branch on error type here, never on message content.
func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var vErr *validator.ValidationError
	var upErr *models.UpstreamError

	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse("artifact validation failed", gin.H{
			"errors":   vErr.Errors,
			"warnings": vErr.Warnings,
		}))
	case errors.Is(err, models.ErrLowReputation):
		c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(err.Error(), nil))
	case errors.Is(err, models.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, newErrorResponse(err.Error(), nil))
	case errors.Is(err, models.ErrBadRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, newErrorResponse(err.Error(), nil))
	case errors.Is(err, models.ErrThreadAssigned):
		c.AbortWithStatusJSON(http.StatusConflict, newErrorResponse(err.Error(), nil))
	case errors.Is(err, models.ErrSessionConflict):
		logger.Error("Session conflict surfaced after retries", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(err.Error(), nil))
	case errors.As(err, &upErr):
		logger.Error("Upstream service failure", zap.Error(err))
		status := http.StatusInternalServerError
		// Propagate the upstream status when the service supplied one.
		if upErr.StatusCode >= http.StatusBadRequest {
			status = upErr.StatusCode
		}
		c.AbortWithStatusJSON(status, newErrorResponse(upErr.Message, gin.H{
			"upstreamStatus": upErr.StatusCode,
		}))
	default:
		logger.Error("Unhandled internal error", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			newErrorResponse("an unexpected internal error occurred", nil))
	}
}
