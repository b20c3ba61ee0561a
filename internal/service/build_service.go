package service

import (
	"context"
	"fmt"

	"gameforge-server/internal/cache"
	"gameforge-server/internal/clients"
	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"
	"gameforge-server/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildService handles build lifecycle outside the generation pipeline.
type BuildService interface {
	Create(ctx context.Context, fid int64, description, model string) (*models.Build, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Build, error)
	List(ctx context.Context, fid int64) ([]*models.Build, error)
	// UpdateTitle checkpoints the current state, then renames the build.
	UpdateTitle(ctx context.Context, id uuid.UUID, fid int64, title string) (*models.Build, error)
	// Delete removes the build, its versions and any coin record.
	Delete(ctx context.Context, id uuid.UUID) error
	// Artifact returns the build's playable HTML, substituting a fallback
	// error page when the stored artifact fails validation.
	Artifact(ctx context.Context, id uuid.UUID) (string, error)
}

type buildServiceImpl struct {
	builds        repository.BuildRepository
	versions      repository.BuildVersionRepository
	identity      clients.IdentityClient
	artifactCache cache.ArtifactCache
	minScore      float64
	logger        *zap.Logger
}

func NewBuildService(
	builds repository.BuildRepository,
	versions repository.BuildVersionRepository,
	identity clients.IdentityClient,
	artifactCache cache.ArtifactCache,
	minScore float64,
	logger *zap.Logger,
) BuildService {
	return &buildServiceImpl{
		builds:        builds,
		versions:      versions,
		identity:      identity,
		artifactCache: artifactCache,
		minScore:      minScore,
		logger:        logger.Named("BuildService"),
	}
}

func (s *buildServiceImpl) Create(ctx context.Context, fid int64, description, model string) (*models.Build, error) {
	log := s.logger.With(zap.Int64("fid", fid))

	creator, err := s.identity.GetCreator(ctx, fid)
	if err != nil {
		return nil, err
	}
	if creator.Score < s.minScore {
		log.Info("Build creation rejected for low reputation", zap.Float64("score", creator.Score))
		return nil, fmt.Errorf("%w (score %.2f)", models.ErrLowReputation, creator.Score)
	}

	build := &models.Build{
		ID:          uuid.New(),
		Description: description,
		Model:       model,
		FID:         fid,
		Status:      models.StatusPending,
	}
	if err := s.builds.Create(ctx, build); err != nil {
		return nil, err
	}
	buildsCreatedTotal.Inc()
	log.Info("Build created", zap.String("buildID", build.ID.String()))
	return build, nil
}

func (s *buildServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Build, error) {
	return s.builds.GetByID(ctx, id)
}

func (s *buildServiceImpl) List(ctx context.Context, fid int64) ([]*models.Build, error) {
	return s.builds.ListByFID(ctx, fid)
}

func (s *buildServiceImpl) UpdateTitle(ctx context.Context, id uuid.UUID, fid int64, title string) (*models.Build, error) {
	build, err := s.builds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Checkpoint before the mutation so the rename is restorable.
	checkpoint := &models.BuildVersion{
		BuildID:      build.ID,
		Title:        build.Title,
		HTML:         build.HTML,
		CreatedByFID: fid,
		Description:  fmt.Sprintf("Title changed from %q to %q", build.Title, title),
	}
	if err := s.versions.Create(ctx, checkpoint); err != nil {
		return nil, err
	}
	if err := s.builds.UpdateTitle(ctx, id, title); err != nil {
		return nil, err
	}
	build.Title = title
	return build, nil
}

func (s *buildServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.builds.Delete(ctx, id); err != nil {
		return err
	}
	s.artifactCache.Invalidate(ctx, id)
	return nil
}

func (s *buildServiceImpl) Artifact(ctx context.Context, id uuid.UUID) (string, error) {
	if html, ok := s.artifactCache.Get(ctx, id); ok {
		return html, nil
	}

	build, err := s.builds.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	result := validator.Validate(build.HTML)
	if !result.IsValid {
		observeValidation("invalid")
		s.logger.Warn("Stored artifact failed validation, serving fallback",
			zap.String("buildID", id.String()),
			zap.Strings("errors", result.Errors))
		return validator.ErrorPageHTML("This game is being repaired. Please try again later."), nil
	}

	observeValidation("valid")
	s.artifactCache.Set(ctx, id, build.HTML)
	return build.HTML, nil
}
