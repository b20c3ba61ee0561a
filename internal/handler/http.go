package handler

import (
	"fmt"
	"net/http"

	"gameforge-server/internal/models"
	"gameforge-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GameForgeHandler wires the HTTP surface onto the services.
type GameForgeHandler struct {
	builds     service.BuildService
	versions   service.VersionService
	chat       service.ChatService
	updates    service.UpdateService
	coins      service.CoinService
	generation service.GenerationService
	logger     *zap.Logger
}

func NewGameForgeHandler(
	builds service.BuildService,
	versions service.VersionService,
	chat service.ChatService,
	updates service.UpdateService,
	coins service.CoinService,
	generation service.GenerationService,
	logger *zap.Logger,
) *GameForgeHandler {
	return &GameForgeHandler{
		builds:     builds,
		versions:   versions,
		chat:       chat,
		updates:    updates,
		coins:      coins,
		generation: generation,
		logger:     logger.Named("GameForgeHandler"),
	}
}

func (h *GameForgeHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/play", h.playBuild)

	api := router.Group("/api")
	{
		api.POST("/builds", h.createBuild)
		api.GET("/builds", h.listBuilds)
		api.GET("/builds/:id", h.getBuild)
		api.DELETE("/builds/:id", h.deleteBuild)
		api.PATCH("/builds/:id/title", h.updateBuildTitle)

		api.GET("/builds/:id/versions", h.listVersions)
		api.GET("/builds/:id/versions/:versionId", h.getVersion)
		api.DELETE("/builds/:id/versions/:versionId", h.deleteVersion)
		api.POST("/builds/:id/versions/:versionId/restore", h.restoreVersion)

		api.POST("/builds/:id/chat", h.submitChatMessage)
		api.GET("/builds/:id/messages", h.listMessages)
		api.POST("/builds/:id/runs/:runId/cancel", h.cancelRun)
		api.POST("/chat/update", h.updateBuildContent)

		api.POST("/builds/:id/publish", h.publishBuild)
		api.GET("/builds/:id/coin", h.getCoin)
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			newErrorResponse(fmt.Sprintf("invalid %s: must be a UUID", name), nil))
		return uuid.Nil, false
	}
	return id, true
}

func (h *GameForgeHandler) createBuild(c *gin.Context) {
	var req createBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}

	build, err := h.builds.Create(c.Request.Context(), req.FID, req.Description, req.Model)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	// Hand off generation out-of-band; the dispatcher marks the build
	// failed itself if the hand-off never succeeds.
	if err := h.generation.Dispatch(c.Request.Context(), build.ID); err != nil {
		h.logger.Error("Generation hand-off failed", zap.String("buildID", build.ID.String()), zap.Error(err))
	}

	c.JSON(http.StatusCreated, build)
}

func (h *GameForgeHandler) listBuilds(c *gin.Context) {
	var query struct {
		FID int64 `form:"fid" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		handleServiceError(c, fmt.Errorf("%w: fid query parameter is required", models.ErrBadRequest), h.logger)
		return
	}

	builds, err := h.builds.List(c.Request.Context(), query.FID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": builds})
}

func (h *GameForgeHandler) getBuild(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	build, err := h.builds.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *GameForgeHandler) deleteBuild(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.builds.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GameForgeHandler) updateBuildTitle(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}
	build, err := h.builds.UpdateTitle(c.Request.Context(), id, req.FID, req.Title)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *GameForgeHandler) listVersions(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	versions, err := h.versions.List(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *GameForgeHandler) getVersion(c *gin.Context) {
	buildID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseUUIDParam(c, "versionId")
	if !ok {
		return
	}
	version, err := h.versions.Get(c.Request.Context(), buildID, versionID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, version)
}

func (h *GameForgeHandler) deleteVersion(c *gin.Context) {
	buildID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseUUIDParam(c, "versionId")
	if !ok {
		return
	}
	if err := h.versions.Delete(c.Request.Context(), buildID, versionID); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GameForgeHandler) restoreVersion(c *gin.Context) {
	buildID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseUUIDParam(c, "versionId")
	if !ok {
		return
	}
	var req restoreVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}
	build, err := h.versions.Restore(c.Request.Context(), buildID, versionID, req.FID)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *GameForgeHandler) listMessages(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	messages, err := h.chat.ListMessages(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *GameForgeHandler) cancelRun(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	runID := c.Param("runId")
	if runID == "" {
		handleServiceError(c, fmt.Errorf("%w: runId is required", models.ErrBadRequest), h.logger)
		return
	}
	if err := h.chat.CancelRun(c.Request.Context(), id, runID); err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": runID})
}

// updateBuildContent commits title/html coming from a completed tool call.
func (h *GameForgeHandler) updateBuildContent(c *gin.Context) {
	var req updateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}
	build, err := h.updates.ApplyUpdate(c.Request.Context(), req.ThreadID, req.Title, req.HTML)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, build)
}

func (h *GameForgeHandler) publishBuild(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req publishBuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err), h.logger)
		return
	}
	coin, err := h.coins.Publish(c.Request.Context(), id, req)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, coin)
}

func (h *GameForgeHandler) getCoin(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	coin, err := h.coins.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, coin)
}
