package service

import (
	"context"
	"encoding/json"
	"fmt"

	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"
	"gameforge-server/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const updateBuildToolName = "update_build"

// ChatEventType enumerates the outbound events a chat consumer receives.
type ChatEventType string

const (
	ChatEventDelta        ChatEventType = "delta"
	ChatEventImage        ChatEventType = "image"
	ChatEventBuildUpdated ChatEventType = "build_updated"
	ChatEventDone         ChatEventType = "done"
	ChatEventError        ChatEventType = "error"
)

// ChatEvent is one item of the outbound chat stream.
type ChatEvent struct {
	Type  ChatEventType `json:"type"`
	Text  string        `json:"text,omitempty"`
	Build *models.Build `json:"build,omitempty"`
	Err   error         `json:"-"`
}

// ChatService runs conversational edit turns against a build's session.
type ChatService interface {
	// SubmitMessage delivers the instruction to the build's session and
	// returns the response event stream. Tool calls updating the build are
	// handled internally before the stream completes.
	SubmitMessage(ctx context.Context, buildID uuid.UUID, text string) (<-chan ChatEvent, error)
	ListMessages(ctx context.Context, buildID uuid.UUID) ([]models.ChatMessage, error)
	CancelRun(ctx context.Context, buildID uuid.UUID, runID string) error
}

type chatServiceImpl struct {
	builds     repository.BuildRepository
	updates    UpdateService
	controller *session.Controller
	client     session.Client
	logger     *zap.Logger
}

func NewChatService(
	builds repository.BuildRepository,
	updates UpdateService,
	controller *session.Controller,
	client session.Client,
	logger *zap.Logger,
) ChatService {
	return &chatServiceImpl{
		builds:     builds,
		updates:    updates,
		controller: controller,
		client:     client,
		logger:     logger.Named("ChatService"),
	}
}

// runInstructions embeds the current artifact so the agent edits the real
// live content rather than whatever it remembers from earlier turns.
func runInstructions(build *models.Build, userText string) string {
	return fmt.Sprintf(`You are editing an HTML mini-game titled %q.
The current live HTML document is:

%s

Apply the user's instruction below. When the change is ready, call the %s tool with the complete new title and the complete new HTML document. Never call the tool with a fragment.

User instruction: %s`, build.Title, build.HTML, updateBuildToolName, userText)
}

func (s *chatServiceImpl) SubmitMessage(ctx context.Context, buildID uuid.UUID, text string) (<-chan ChatEvent, error) {
	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if build.ThreadID == "" {
		return nil, fmt.Errorf("%w: build has no session thread yet", models.ErrBadRequest)
	}

	stream, err := s.controller.SubmitInstruction(ctx, build.ThreadID, text, runInstructions(build, text))
	if err != nil {
		return nil, err
	}

	out := make(chan ChatEvent, 16)
	go s.consume(ctx, build.ThreadID, stream, out)
	return out, nil
}

// emit forwards one chat event unless the consumer is gone. Sends must
// never park forever: once the SSE client disconnects nothing drains the
// channel anymore.
func emit(ctx context.Context, out chan<- ChatEvent, ev ChatEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// consume translates session events into chat events, handling the
// update_build tool call inline.
func (s *chatServiceImpl) consume(ctx context.Context, threadID string, stream session.Stream, out chan<- ChatEvent) {
	defer close(out)
	defer stream.Close()
	log := s.logger.With(zap.String("threadID", threadID))

	for ev := range stream.Events() {
		switch ev.Type {
		case session.EventTextDelta:
			if !emit(ctx, out, ChatEvent{Type: ChatEventDelta, Text: ev.TextDelta}) {
				return
			}
		case session.EventImageFile:
			if !emit(ctx, out, ChatEvent{Type: ChatEventImage, Text: ev.FileID}) {
				return
			}
		case session.EventRequiresAction:
			s.handleToolCalls(ctx, threadID, ev, out, log)
		case session.EventCompleted:
			emit(ctx, out, ChatEvent{Type: ChatEventDone})
			return
		case session.EventFailed:
			log.Error("Run failed", zap.String("runID", ev.RunID), zap.Error(ev.Err))
			emit(ctx, out, ChatEvent{Type: ChatEventError, Err: ev.Err})
			return
		}
	}
}

func (s *chatServiceImpl) handleToolCalls(ctx context.Context, threadID string, ev session.Event, out chan<- ChatEvent, log *zap.Logger) {
	outputs := make(map[string]string, len(ev.ToolCalls))
	updated := false

	for _, tc := range ev.ToolCalls {
		if tc.Name != updateBuildToolName {
			log.Warn("Ignoring unknown tool call", zap.String("tool", tc.Name))
			outputs[tc.ID] = `{"ok": false, "error": "unknown tool"}`
			continue
		}

		var args struct {
			Title string `json:"title"`
			HTML  string `json:"html"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			log.Warn("Malformed tool call arguments", zap.Error(err))
			outputs[tc.ID] = fmt.Sprintf(`{"ok": false, "error": %q}`, "malformed arguments: "+err.Error())
			continue
		}

		build, err := s.updates.ApplyUpdate(ctx, threadID, args.Title, args.HTML)
		if err != nil {
			log.Warn("Tool call update rejected", zap.Error(err))
			outputs[tc.ID] = fmt.Sprintf(`{"ok": false, "error": %q}`, err.Error())
			continue
		}
		outputs[tc.ID] = `{"ok": true}`
		updated = true
		// Tool outputs still get submitted and the run cancelled even when
		// nobody is listening anymore.
		emit(ctx, out, ChatEvent{Type: ChatEventBuildUpdated, Build: build})
	}

	if err := s.client.SubmitToolOutputs(ctx, threadID, ev.RunID, outputs); err != nil {
		log.Warn("Failed to submit tool outputs", zap.String("runID", ev.RunID), zap.Error(err))
	}

	// The turn ends once the build is updated. Cancelling here instead of
	// waiting for natural completion stops the model from narrating past
	// the applied change.
	if updated {
		if err := s.controller.CancelRun(ctx, threadID, ev.RunID); err != nil {
			log.Warn("Failed to cancel run after successful update", zap.String("runID", ev.RunID), zap.Error(err))
		}
	}
}

func (s *chatServiceImpl) ListMessages(ctx context.Context, buildID uuid.UUID) ([]models.ChatMessage, error) {
	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	if build.ThreadID == "" {
		return []models.ChatMessage{}, nil
	}
	return s.client.ListMessages(ctx, build.ThreadID)
}

func (s *chatServiceImpl) CancelRun(ctx context.Context, buildID uuid.UUID, runID string) error {
	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return err
	}
	if build.ThreadID == "" {
		return fmt.Errorf("%w: build has no session thread", models.ErrBadRequest)
	}
	return s.controller.CancelRun(ctx, build.ThreadID, runID)
}
