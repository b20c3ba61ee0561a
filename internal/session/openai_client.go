package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gameforge-server/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	listRunsLimit    = 20
	runPollInterval  = 800 * time.Millisecond
	streamBufferSize = 16
)

// openAIClient implements Client against the OpenAI assistants API. The
// assistants surface exposes no server-side run event stream, so StreamRun
// synthesizes one by polling the run and fetching its messages on
// completion.
type openAIClient struct {
	client      *openai.Client
	assistantID string
	model       string
	logger      *zap.Logger
}

// OpenAIConfig holds the settings for the assistants-backed session client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	AssistantID string
	Model       string
	Timeout     time.Duration
}

// NewOpenAIClient creates a session client backed by the OpenAI assistants
// API.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &openAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		assistantID: cfg.AssistantID,
		model:       cfg.Model,
		logger:      logger.Named("OpenAISessionClient"),
	}
}

// wrapErr converts SDK errors into tagged upstream failures carrying the
// HTTP status when the SDK supplied one.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &models.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	return &models.UpstreamError{Message: err.Error()}
}

func (c *openAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", wrapErr(err)
	}
	return thread.ID, nil
}

func (c *openAIClient) ListRuns(ctx context.Context, threadID string) ([]Run, error) {
	limit := listRunsLimit
	list, err := c.client.ListRuns(ctx, threadID, openai.Pagination{Limit: &limit})
	if err != nil {
		return nil, wrapErr(err)
	}
	runs := make([]Run, 0, len(list.Runs))
	for _, r := range list.Runs {
		runs = append(runs, Run{ID: r.ID, ThreadID: threadID, Status: RunStatus(r.Status)})
	}
	return runs, nil
}

func (c *openAIClient) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	r, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, wrapErr(err)
	}
	return Run{ID: r.ID, ThreadID: threadID, Status: RunStatus(r.Status)}, nil
}

func (c *openAIClient) RequestCancel(ctx context.Context, threadID, runID string) error {
	// The service cancels asynchronously; the returned run usually still
	// reads "cancelling" here and must be re-observed by the caller.
	if _, err := c.client.CancelRun(ctx, threadID, runID); err != nil {
		// Conflict detection needs the raw error shape, keep it unwrapped
		// enough for the probe.
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return &models.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
		return wrapErr(err)
	}
	return nil
}

func (c *openAIClient) CreateMessage(ctx context.Context, threadID, content string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	return wrapErr(err)
}

func (c *openAIClient) ListMessages(ctx context.Context, threadID string) ([]models.ChatMessage, error) {
	order := "asc"
	list, err := c.client.ListMessage(ctx, threadID, nil, &order, nil, nil, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	msgs := make([]models.ChatMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		text := ""
		for _, part := range m.Content {
			if part.Text != nil {
				text += part.Text.Value
			}
		}
		msgs = append(msgs, models.ChatMessage{
			ID:        m.ID,
			Role:      m.Role,
			Text:      text,
			CreatedAt: time.Unix(int64(m.CreatedAt), 0).UTC(),
		})
	}
	return msgs, nil
}

func (c *openAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs map[string]string) error {
	toolOutputs := make([]openai.ToolOutput, 0, len(outputs))
	for callID, output := range outputs {
		toolOutputs = append(toolOutputs, openai.ToolOutput{ToolCallID: callID, Output: output})
	}
	_, err := c.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: toolOutputs,
	})
	return wrapErr(err)
}

func (c *openAIClient) StreamRun(ctx context.Context, threadID, instructions string) (Stream, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID:  c.assistantID,
		Model:        c.model,
		Instructions: instructions,
	})
	if err != nil {
		return nil, wrapErr(err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s := &pollStream{
		events: make(chan Event, streamBufferSize),
		cancel: cancel,
	}
	go c.pollRun(pollCtx, threadID, run.ID, s)
	return s, nil
}

type pollStream struct {
	events    chan Event
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (s *pollStream) Events() <-chan Event { return s.events }

func (s *pollStream) Close() {
	s.closeOnce.Do(s.cancel)
}

// send delivers one event unless the stream was closed or the request
// context ended; a send must never outlive its reader.
func (s *pollStream) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// pollRun drives the synthesized event stream: it emits requires_action as
// soon as the run asks for tool output, and the assistant's text/image
// content once the run terminates.
func (c *openAIClient) pollRun(ctx context.Context, threadID, runID string, s *pollStream) {
	defer close(s.events)
	log := c.logger.With(zap.String("threadID", threadID), zap.String("runID", runID))

	actionEmitted := false
	ticker := time.NewTicker(runPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		run, err := c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient poll failures never abort the stream loop.
			log.Warn("Run poll failed, continuing", zap.Error(err))
			continue
		}

		switch run.Status {
		case openai.RunStatusRequiresAction:
			if actionEmitted {
				continue
			}
			actionEmitted = true
			if !s.send(ctx, Event{
				Type:      EventRequiresAction,
				RunID:     runID,
				ToolCalls: extractToolCalls(run),
			}) {
				return
			}
		case openai.RunStatusCompleted:
			c.emitRunOutput(ctx, threadID, runID, s, log)
			s.send(ctx, Event{Type: EventCompleted, RunID: runID})
			return
		case openai.RunStatusCancelled:
			// A deliberate cancel ends the turn successfully after a tool
			// call has been handled.
			s.send(ctx, Event{Type: EventCompleted, RunID: runID})
			return
		case openai.RunStatusFailed, openai.RunStatusExpired:
			msg := string(run.Status)
			if run.LastError != nil {
				msg = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
			}
			s.send(ctx, Event{
				Type:  EventFailed,
				RunID: runID,
				Err:   &models.UpstreamError{Message: msg},
			})
			return
		}
	}
}

// emitRunOutput fetches the run's messages and replays them as stream
// events.
func (c *openAIClient) emitRunOutput(ctx context.Context, threadID, runID string, s *pollStream, log *zap.Logger) {
	order := "asc"
	list, err := c.client.ListMessage(ctx, threadID, nil, &order, nil, nil, &runID)
	if err != nil {
		log.Warn("Failed to fetch run messages for stream output", zap.Error(err))
		return
	}
	for _, m := range list.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range m.Content {
			if part.Text != nil && part.Text.Value != "" {
				if !s.send(ctx, Event{Type: EventTextDelta, RunID: runID, TextDelta: part.Text.Value}) {
					return
				}
			}
			if part.ImageFile != nil && part.ImageFile.FileID != "" {
				if !s.send(ctx, Event{Type: EventImageFile, RunID: runID, FileID: part.ImageFile.FileID}) {
					return
				}
			}
		}
	}
}

func extractToolCalls(run openai.Run) []ToolCall {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	calls := make([]ToolCall, 0, len(run.RequiredAction.SubmitToolOutputs.ToolCalls))
	for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}
