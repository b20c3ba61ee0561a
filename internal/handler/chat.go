package handler

import (
	"fmt"
	"io"

	"gameforge-server/internal/models"
	"gameforge-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// submitChatMessage streams the agent's response as server-sent events.
// Errors before the stream starts use the regular JSON error shape; once
// streaming has begun, failures arrive as an "error" event on the stream.
func (h *GameForgeHandler) submitChatMessage(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}

	events, err := h.chat.SubmitMessage(c.Request.Context(), id, req.Text)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		switch ev.Type {
		case service.ChatEventError:
			payload := gin.H{"type": ev.Type}
			if ev.Err != nil {
				payload["error"] = ev.Err.Error()
			}
			c.SSEvent("message", payload)
		default:
			c.SSEvent("message", ev)
		}
		return true
	})

	h.logger.Debug("Chat stream closed", zap.String("buildID", id.String()))
}
