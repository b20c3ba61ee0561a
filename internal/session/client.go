package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gameforge-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
)

// RunStatus mirrors the external session service's run lifecycle.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// IsActive reports whether the run is still consuming the session.
func (s RunStatus) IsActive() bool {
	return s == RunStatusQueued || s == RunStatusInProgress || s == RunStatusRequiresAction
}

// IsTerminal reports whether the run can never become active again.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled || s == RunStatusExpired
}

// Run is one execution attempt of the agent against a thread.
type Run struct {
	ID       string
	ThreadID string
	Status   RunStatus
}

// ToolCall is an agent-initiated action request carried by a
// requires_action run.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// EventType enumerates the stream events a caller must handle.
type EventType string

const (
	// EventTextDelta appends text to the in-progress assistant message.
	EventTextDelta EventType = "text_delta"
	// EventImageFile yields a reference to a retrievable file.
	EventImageFile EventType = "image_file"
	// EventRequiresAction means the agent invoked a tool call; the caller
	// must act, submit tool outputs, then cancel the run.
	EventRequiresAction EventType = "requires_action"
	EventCompleted      EventType = "completed"
	EventFailed         EventType = "failed"
)

// Event is one item of a run's event stream.
type Event struct {
	Type      EventType
	RunID     string
	TextDelta string
	FileID    string
	ToolCalls []ToolCall
	Err       error
}

// Stream delivers run events to the caller unconsumed. The channel is
// closed after a terminal event; Close releases the underlying poller.
type Stream interface {
	Events() <-chan Event
	Close()
}

// Client is the boundary to the external conversational session service.
// All methods are suspension points; none of them cache run state.
type Client interface {
	CreateThread(ctx context.Context) (string, error)
	ListRuns(ctx context.Context, threadID string) ([]Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (Run, error)
	// RequestCancel dispatches a cancellation and returns immediately; the
	// external service cancels eventually, never synchronously. Observe the
	// effect by polling RetrieveRun.
	RequestCancel(ctx context.Context, threadID, runID string) error
	CreateMessage(ctx context.Context, threadID, content string) error
	ListMessages(ctx context.Context, threadID string) ([]models.ChatMessage, error)
	// StreamRun starts a new run with the given instructions and returns
	// its event stream unconsumed.
	StreamRun(ctx context.Context, threadID, instructions string) (Stream, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs map[string]string) error
}

// IsConflictErr reports whether an error is the session service's
// active-run conflict. A structured 409 is honored when the SDK supplies
// one; the message probe is the documented compatibility risk with upstream
// wording changes and is confined to this function.
func IsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrSessionConflict) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusConflict {
		return true
	}
	var upErr *models.UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "active run") || strings.Contains(msg, "while a run")
}
