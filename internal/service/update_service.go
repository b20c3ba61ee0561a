package service

import (
	"context"

	"gameforge-server/internal/cache"
	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"
	"gameforge-server/internal/validator"

	"go.uber.org/zap"
)

// UpdateService commits artifact updates coming out of the agent's tool
// calls.
type UpdateService interface {
	// ApplyUpdate validates (and repairs if possible) the new html, writes a
	// checkpoint version of the build's pre-update content, then replaces
	// the live title/html. Nothing is persisted when validation fails.
	ApplyUpdate(ctx context.Context, threadID, title, html string) (*models.Build, error)
}

type updateServiceImpl struct {
	builds        repository.BuildRepository
	versions      repository.BuildVersionRepository
	artifactCache cache.ArtifactCache
	logger        *zap.Logger
}

func NewUpdateService(
	builds repository.BuildRepository,
	versions repository.BuildVersionRepository,
	artifactCache cache.ArtifactCache,
	logger *zap.Logger,
) UpdateService {
	return &updateServiceImpl{
		builds:        builds,
		versions:      versions,
		artifactCache: artifactCache,
		logger:        logger.Named("UpdateService"),
	}
}

func (s *updateServiceImpl) ApplyUpdate(ctx context.Context, threadID, title, html string) (*models.Build, error) {
	log := s.logger.With(zap.String("threadID", threadID))

	fix := validator.ValidateAndFix(html)
	if !fix.IsValid {
		observeValidation("invalid")
		log.Warn("Update rejected, artifact invalid beyond repair", zap.Strings("errors", fix.Errors))
		return nil, &validator.ValidationError{Errors: fix.Errors, Warnings: fix.Warnings}
	}
	if fix.FixedHTML != html {
		observeValidation("fixed")
	} else {
		observeValidation("valid")
	}

	build, err := s.builds.GetByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}

	// Checkpoint the pre-update content first; the snapshot must be durable
	// before the live row is overwritten.
	checkpoint := &models.BuildVersion{
		BuildID:      build.ID,
		Title:        build.Title,
		HTML:         build.HTML,
		CreatedByFID: build.FID,
		Description:  "Updated via conversational edit",
	}
	if err := s.versions.Create(ctx, checkpoint); err != nil {
		return nil, err
	}

	if err := s.builds.UpdateContentByThreadID(ctx, threadID, title, fix.FixedHTML); err != nil {
		return nil, err
	}
	s.artifactCache.Invalidate(ctx, build.ID)

	build.Title = title
	build.HTML = fix.FixedHTML
	log.Info("Build updated from tool call",
		zap.String("buildID", build.ID.String()),
		zap.Int("versionNumber", checkpoint.VersionNumber))
	return build, nil
}
