package models

import (
	"time"

	"github.com/google/uuid"
)

// Build is one game artifact under iterative construction.
type Build struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Title        string      `json:"title" db:"title"`
	HTML         string      `json:"html" db:"html"`
	Description  string      `json:"description" db:"description"`
	Model        string      `json:"model" db:"model"`
	FID          int64       `json:"fid" db:"fid"`
	ThreadID     string      `json:"threadId,omitempty" db:"thread_id"`
	Image        string      `json:"image,omitempty" db:"image"`
	Tutorial     string      `json:"tutorial,omitempty" db:"tutorial"`
	Status       BuildStatus `json:"status" db:"status"`
	ErrorMessage string      `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time   `json:"updatedAt" db:"updated_at"`
}

// BuildVersion is an immutable pre-change snapshot of a build's title/html.
// Versions are append-only; VersionNumber increases per build.
type BuildVersion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	BuildID       uuid.UUID `json:"buildId" db:"build_id"`
	VersionNumber int       `json:"versionNumber" db:"version_number"`
	Title         string    `json:"title" db:"title"`
	HTML          string    `json:"html" db:"html"`
	CreatedByFID  int64     `json:"createdByFid" db:"created_by_fid"`
	Description   string    `json:"description" db:"description"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// ChatMessage is one entry of a build's conversational session, oldest first.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
