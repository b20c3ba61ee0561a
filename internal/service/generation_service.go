package service

import (
	"context"
	"fmt"
	"time"

	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"
	"gameforge-server/internal/session"
	"gameforge-server/internal/storage"
	"gameforge-server/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	generationQueueSize   = 64
	dispatchRetryDelay    = 200 * time.Millisecond
	processTimeout        = 5 * time.Minute
	genericFailureMessage = "game generation failed, please try again"
)

// GenerationService drives the initial build creation pipeline through its
// status state machine: pending, generating_content, generating_image,
// completed, with failed absorbing from any non-terminal state.
type GenerationService interface {
	// Dispatch hands the build off to a background worker. The hand-off is
	// retried a small fixed number of times; if it never succeeds the build
	// is marked failed.
	Dispatch(ctx context.Context, buildID uuid.UUID) error
	// Process runs the pipeline synchronously. Exported for the workers and
	// for tests; handlers should use Dispatch.
	Process(ctx context.Context, buildID uuid.UUID) error
	// Start launches the background workers consuming dispatched builds.
	Start(ctx context.Context, workers int)
}

type generationServiceImpl struct {
	builds           repository.BuildRepository
	sessions         session.Client
	generator        ContentGenerator
	images           storage.ImageStore
	dispatchAttempts int
	tasks            chan uuid.UUID
	logger           *zap.Logger
}

func NewGenerationService(
	builds repository.BuildRepository,
	sessions session.Client,
	generator ContentGenerator,
	images storage.ImageStore,
	dispatchAttempts int,
	logger *zap.Logger,
) GenerationService {
	if dispatchAttempts <= 0 {
		dispatchAttempts = 1
	}
	return &generationServiceImpl{
		builds:           builds,
		sessions:         sessions,
		generator:        generator,
		images:           images,
		dispatchAttempts: dispatchAttempts,
		tasks:            make(chan uuid.UUID, generationQueueSize),
		logger:           logger.Named("GenerationService"),
	}
}

func (s *generationServiceImpl) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		go s.worker(ctx, i)
	}
	s.logger.Info("Generation workers started", zap.Int("workers", workers))
}

func (s *generationServiceImpl) worker(ctx context.Context, id int) {
	log := s.logger.With(zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case buildID := <-s.tasks:
			runCtx, cancel := context.WithTimeout(ctx, processTimeout)
			if err := s.Process(runCtx, buildID); err != nil {
				log.Error("Generation pipeline failed", zap.String("buildID", buildID.String()), zap.Error(err))
			}
			cancel()
		}
	}
}

func (s *generationServiceImpl) Dispatch(ctx context.Context, buildID uuid.UUID) error {
	for attempt := 1; attempt <= s.dispatchAttempts; attempt++ {
		select {
		case s.tasks <- buildID:
			return nil
		default:
		}
		s.logger.Warn("Generation queue full, retrying hand-off",
			zap.String("buildID", buildID.String()), zap.Int("attempt", attempt))
		time.Sleep(dispatchRetryDelay)
	}
	observeGenerationFailure("dispatch")
	s.markFailed(ctx, buildID, fmt.Errorf("generation queue full after %d hand-off attempts", s.dispatchAttempts))
	return fmt.Errorf("%w: generation hand-off exhausted retries", models.ErrUpstreamFailure)
}

func (s *generationServiceImpl) Process(ctx context.Context, buildID uuid.UUID) error {
	log := s.logger.With(zap.String("buildID", buildID.String()))

	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return err
	}
	if build.Status != models.StatusPending {
		return fmt.Errorf("%w: build is %s, pipeline only starts from pending", models.ErrInvalidTransition, build.Status)
	}

	// Session first: the thread id is persisted before any content exists so
	// conversational edits can attach to partially generated builds.
	threadID, err := s.sessions.CreateThread(ctx)
	if err != nil {
		observeGenerationFailure("create_thread")
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.builds.AssignThread(ctx, buildID, threadID); err != nil {
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.transition(ctx, build, models.StatusGeneratingContent); err != nil {
		return err
	}

	title, html, tutorial, err := s.generator.GenerateContent(ctx, build.Model, build.Description)
	if err != nil {
		observeGenerationFailure("content")
		s.markFailed(ctx, buildID, err)
		return err
	}

	// Generated HTML is untrusted; it never reaches the store unvalidated.
	fix := validator.ValidateAndFix(html)
	if !fix.IsValid {
		observeGenerationFailure("validation")
		err := &validator.ValidationError{Errors: fix.Errors, Warnings: fix.Warnings}
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.builds.UpdateContent(ctx, buildID, title, fix.FixedHTML); err != nil {
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.builds.UpdateTutorial(ctx, buildID, tutorial); err != nil {
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.transition(ctx, build, models.StatusGeneratingImage); err != nil {
		return err
	}

	imageURL, err := s.generator.GenerateImage(ctx, build.Description)
	if err != nil {
		observeGenerationFailure("image")
		s.markFailed(ctx, buildID, err)
		return err
	}
	hostedURL, err := s.images.Rehost(ctx, buildID, imageURL)
	if err != nil {
		observeGenerationFailure("image_rehost")
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.builds.UpdateImage(ctx, buildID, hostedURL); err != nil {
		s.markFailed(ctx, buildID, err)
		return err
	}
	if err := s.transition(ctx, build, models.StatusCompleted); err != nil {
		return err
	}

	log.Info("Generation pipeline completed", zap.String("title", title))
	return nil
}

// transition advances the tracked status, rejecting anything the state
// machine forbids.
func (s *generationServiceImpl) transition(ctx context.Context, build *models.Build, next models.BuildStatus) error {
	if !build.Status.CanTransitionTo(next) {
		s.logger.Error("Illegal status transition",
			zap.String("buildID", build.ID.String()),
			zap.String("from", string(build.Status)),
			zap.String("to", string(next)))
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, build.Status, next)
	}
	if err := s.builds.UpdateStatus(ctx, build.ID, next, ""); err != nil {
		return err
	}
	build.Status = next
	return nil
}

// markFailed moves the build to the absorbing failed state with a
// human-readable message. Best-effort; a store failure here is only logged.
func (s *generationServiceImpl) markFailed(ctx context.Context, buildID uuid.UUID, cause error) {
	message := genericFailureMessage
	if cause != nil && cause.Error() != "" {
		message = cause.Error()
	}
	if err := s.builds.UpdateStatus(ctx, buildID, models.StatusFailed, message); err != nil {
		s.logger.Error("Failed to mark build as failed",
			zap.String("buildID", buildID.String()), zap.Error(err))
	}
}
