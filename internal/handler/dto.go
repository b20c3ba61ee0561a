package handler

import "gameforge-server/internal/service"

type createBuildRequest struct {
	FID         int64  `json:"fid" binding:"required"`
	Description string `json:"description" binding:"required"`
	Model       string `json:"model" binding:"required"`
}

type updateTitleRequest struct {
	FID   int64  `json:"fid" binding:"required"`
	Title string `json:"title" binding:"required"`
}

type restoreVersionRequest struct {
	FID int64 `json:"fid" binding:"required"`
}

type chatMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type updateContentRequest struct {
	ThreadID string `json:"threadId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	HTML     string `json:"html" binding:"required"`
}

type publishBuildRequest = service.PublishParams
