package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gameforge-server/internal/models"

	"go.uber.org/zap"
)

// ControllerConfig tunes the in-request control loop. Every polling loop is
// bounded by an explicit attempt count; nothing here waits forever.
type ControllerConfig struct {
	CancelPollMaxAttempts int
	CancelPollBaseDelay   time.Duration
	CancelPollMaxDelay    time.Duration
	SettlingDelay         time.Duration
	SubmitMaxAttempts     int
	SubmitBaseBackoff     time.Duration
}

// DefaultControllerConfig returns production defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		CancelPollMaxAttempts: 10,
		CancelPollBaseDelay:   500 * time.Millisecond,
		CancelPollMaxDelay:    5 * time.Second,
		SettlingDelay:         time.Second,
		SubmitMaxAttempts:     5,
		SubmitBaseBackoff:     time.Second,
	}
}

// Controller guarantees that an instruction is delivered to the agent
// session and a response stream obtained, even though the external service
// forbids adding a message while a run is active and cancels runs only
// eventually. It is a pure retry loop over the external status oracle: run
// state is re-queried before every decision, never cached.
type Controller struct {
	client Client
	cfg    ControllerConfig
	logger *zap.Logger
}

// NewController creates a session controller.
func NewController(client Client, cfg ControllerConfig, logger *zap.Logger) *Controller {
	if cfg.SubmitMaxAttempts <= 0 {
		cfg.SubmitMaxAttempts = 1
	}
	return &Controller{
		client: client,
		cfg:    cfg,
		logger: logger.Named("SessionController"),
	}
}

// SubmitInstruction delivers content to the thread and starts a new run
// with the given instructions, returning its event stream unconsumed.
//
// Order is strict: active runs are cancelled and observed terminal (best
// effort) before any message-create call; submission conflicts are retried
// with exponential backoff plus jitter up to the configured attempt count,
// re-issuing cancellation before each retry. Non-conflict submission errors
// propagate immediately.
func (c *Controller) SubmitInstruction(ctx context.Context, threadID, content, instructions string) (Stream, error) {
	log := c.logger.With(zap.String("threadID", threadID))

	c.cancelActiveRuns(ctx, threadID, log)
	c.sleep(ctx, c.cfg.SettlingDelay)

	var lastErr error
	submitted := false
	for attempt := 1; attempt <= c.cfg.SubmitMaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoffDelay(attempt - 1)
			log.Info("Retrying message submission after conflict",
				zap.Int("attempt", attempt), zap.Duration("backoff", delay))
			c.sleep(ctx, delay)
			c.cancelActiveRuns(ctx, threadID, log)
		}

		// Re-query the oracle; stale "no active run" knowledge is the bug
		// class this loop exists to prevent.
		active, err := c.activeRuns(ctx, threadID)
		if err != nil {
			log.Warn("Failed to list runs before submission, attempting anyway", zap.Error(err))
		} else if len(active) > 0 {
			log.Info("Active runs found before submission, treating as conflict",
				zap.Int("activeRuns", len(active)), zap.Int("attempt", attempt))
			c.requestCancels(ctx, threadID, active, log)
			lastErr = models.ErrSessionConflict
			metricsSubmitConflict()
			continue
		}

		err = c.client.CreateMessage(ctx, threadID, content)
		if err == nil {
			submitted = true
			break
		}
		if IsConflictErr(err) {
			log.Warn("Message submission hit active-run conflict", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			metricsSubmitConflict()
			continue
		}
		log.Error("Message submission failed with non-conflict error", zap.Error(err))
		return nil, err
	}

	if !submitted {
		log.Error("Message submission exhausted retries", zap.Int("maxAttempts", c.cfg.SubmitMaxAttempts), zap.Error(lastErr))
		return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrSessionConflict, c.cfg.SubmitMaxAttempts, lastErr)
	}

	stream, err := c.client.StreamRun(ctx, threadID, instructions)
	if err != nil {
		log.Error("Failed to start run after message submission", zap.Error(err))
		return nil, err
	}
	return stream, nil
}

// CancelRun dispatches a cancel for one run and waits (bounded) for it to
// leave the active set.
func (c *Controller) CancelRun(ctx context.Context, threadID, runID string) error {
	log := c.logger.With(zap.String("threadID", threadID), zap.String("runID", runID))
	if err := c.client.RequestCancel(ctx, threadID, runID); err != nil {
		log.Warn("Cancel request failed", zap.Error(err))
		return err
	}
	metricsCancelIssued()
	c.awaitTerminal(ctx, threadID, runID, log)
	return nil
}

// activeRuns returns the runs currently consuming the session.
func (c *Controller) activeRuns(ctx context.Context, threadID string) ([]Run, error) {
	runs, err := c.client.ListRuns(ctx, threadID)
	if err != nil {
		return nil, err
	}
	var active []Run
	for _, r := range runs {
		if r.Status.IsActive() {
			active = append(active, r)
		}
	}
	return active, nil
}

// cancelActiveRuns dispatches cancels for every active run, then waits for
// each to reach a terminal status. Entirely best-effort: listing or cancel
// failures are logged and swallowed, and a stuck run never blocks forever.
func (c *Controller) cancelActiveRuns(ctx context.Context, threadID string, log *zap.Logger) {
	active, err := c.activeRuns(ctx, threadID)
	if err != nil {
		log.Warn("Failed to list runs for preemptive cancellation", zap.Error(err))
		return
	}
	if len(active) == 0 {
		return
	}
	log.Info("Cancelling active runs before submission", zap.Int("count", len(active)))
	c.requestCancels(ctx, threadID, active, log)
	for _, r := range active {
		c.awaitTerminal(ctx, threadID, r.ID, log)
	}
}

func (c *Controller) requestCancels(ctx context.Context, threadID string, runs []Run, log *zap.Logger) {
	for _, r := range runs {
		if err := c.client.RequestCancel(ctx, threadID, r.ID); err != nil {
			log.Warn("Cancel request failed", zap.String("runID", r.ID), zap.Error(err))
			continue
		}
		metricsCancelIssued()
	}
}

// awaitTerminal polls one run until it reaches a terminal status, with
// linearly increasing delay (base x attempt, capped) and a bounded attempt
// count. Gives up gracefully: a cancel is advisory and must be re-observed,
// never assumed.
func (c *Controller) awaitTerminal(ctx context.Context, threadID, runID string, log *zap.Logger) {
	for attempt := 1; attempt <= c.cfg.CancelPollMaxAttempts; attempt++ {
		run, err := c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			log.Warn("Run status poll failed", zap.String("runID", runID), zap.Int("attempt", attempt), zap.Error(err))
		} else if run.Status.IsTerminal() {
			log.Debug("Run reached terminal status",
				zap.String("runID", runID), zap.String("status", string(run.Status)), zap.Int("attempts", attempt))
			return
		}
		delay := c.cfg.CancelPollBaseDelay * time.Duration(attempt)
		if c.cfg.CancelPollMaxDelay > 0 && delay > c.cfg.CancelPollMaxDelay {
			delay = c.cfg.CancelPollMaxDelay
		}
		c.sleep(ctx, delay)
	}
	log.Warn("Run did not reach terminal status within poll budget, proceeding anyway",
		zap.String("runID", runID), zap.Int("maxAttempts", c.cfg.CancelPollMaxAttempts))
}

// backoffDelay computes exponential backoff with +-10% jitter for the n-th
// retry.
func (c *Controller) backoffDelay(retry int) time.Duration {
	base := float64(c.cfg.SubmitBaseBackoff)
	if base <= 0 {
		return 0
	}
	delay := base * math.Pow(2, float64(retry-1))
	jitter := delay * 0.1
	delay += jitter * (rand.Float64()*2 - 1)
	return time.Duration(delay)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
