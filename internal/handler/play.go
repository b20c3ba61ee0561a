package handler

import (
	"errors"
	"net/http"

	"gameforge-server/internal/models"
	"gameforge-server/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// playBuild serves the playable artifact. Both identifiers are required.
// A broken artifact still answers 200 with fallback HTML so the embedding
// iframe never shows a broken-frame error; the validation outcome is
// recorded in logs and metrics instead.
func (h *GameForgeHandler) playBuild(c *gin.Context) {
	player := c.Query("player")
	game := c.Query("game")
	if player == "" || game == "" {
		c.JSON(http.StatusBadRequest, newErrorResponse("player and game query parameters are required", nil))
		return
	}

	buildID, err := uuid.Parse(game)
	if err != nil {
		c.JSON(http.StatusBadRequest, newErrorResponse("game must be a build UUID", nil))
		return
	}

	html, err := h.builds.Artifact(c.Request.Context(), buildID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, newErrorResponse(err.Error(), nil))
			return
		}
		h.logger.Error("Failed to load artifact",
			zap.String("buildID", buildID.String()),
			zap.String("player", player),
			zap.Error(err))
		html = validator.ErrorPageHTML("This game could not be loaded. Please try again later.")
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
