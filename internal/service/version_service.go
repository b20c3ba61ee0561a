package service

import (
	"context"
	"fmt"

	"gameforge-server/internal/cache"
	"gameforge-server/internal/models"
	"gameforge-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VersionService exposes a build's version history. Every operation takes
// both the build and version ids; a version belonging to a different build
// is reported as a distinct not-found, never served.
type VersionService interface {
	List(ctx context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error)
	Get(ctx context.Context, buildID, versionID uuid.UUID) (*models.BuildVersion, error)
	Delete(ctx context.Context, buildID, versionID uuid.UUID) error
	// Restore checkpoints the build's current state, then copies the
	// version's title/html onto the live build.
	Restore(ctx context.Context, buildID, versionID uuid.UUID, fid int64) (*models.Build, error)
}

type versionServiceImpl struct {
	builds        repository.BuildRepository
	versions      repository.BuildVersionRepository
	artifactCache cache.ArtifactCache
	logger        *zap.Logger
}

func NewVersionService(
	builds repository.BuildRepository,
	versions repository.BuildVersionRepository,
	artifactCache cache.ArtifactCache,
	logger *zap.Logger,
) VersionService {
	return &versionServiceImpl{
		builds:        builds,
		versions:      versions,
		artifactCache: artifactCache,
		logger:        logger.Named("VersionService"),
	}
}

func (s *versionServiceImpl) List(ctx context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error) {
	if _, err := s.builds.GetByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.versions.ListByBuild(ctx, buildID)
}

// resolve fetches a version and verifies it belongs to the given build.
func (s *versionServiceImpl) resolve(ctx context.Context, buildID, versionID uuid.UUID) (*models.BuildVersion, error) {
	version, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.BuildID != buildID {
		s.logger.Warn("Version belongs to a different build",
			zap.String("versionID", versionID.String()),
			zap.String("requestedBuildID", buildID.String()),
			zap.String("owningBuildID", version.BuildID.String()))
		return nil, models.ErrVersionMismatch
	}
	return version, nil
}

func (s *versionServiceImpl) Get(ctx context.Context, buildID, versionID uuid.UUID) (*models.BuildVersion, error) {
	if _, err := s.builds.GetByID(ctx, buildID); err != nil {
		return nil, err
	}
	return s.resolve(ctx, buildID, versionID)
}

func (s *versionServiceImpl) Delete(ctx context.Context, buildID, versionID uuid.UUID) error {
	if _, err := s.resolve(ctx, buildID, versionID); err != nil {
		return err
	}
	return s.versions.Delete(ctx, versionID)
}

func (s *versionServiceImpl) Restore(ctx context.Context, buildID, versionID uuid.UUID, fid int64) (*models.Build, error) {
	build, err := s.builds.GetByID(ctx, buildID)
	if err != nil {
		return nil, err
	}
	version, err := s.resolve(ctx, buildID, versionID)
	if err != nil {
		return nil, err
	}

	// Checkpoint the state being replaced so the restore itself is
	// reversible.
	checkpoint := &models.BuildVersion{
		BuildID:      build.ID,
		Title:        build.Title,
		HTML:         build.HTML,
		CreatedByFID: fid,
		Description:  fmt.Sprintf("Restored to version %d", version.VersionNumber),
	}
	if err := s.versions.Create(ctx, checkpoint); err != nil {
		return nil, err
	}

	if err := s.builds.UpdateContent(ctx, buildID, version.Title, version.HTML); err != nil {
		return nil, err
	}
	s.artifactCache.Invalidate(ctx, buildID)

	build.Title = version.Title
	build.HTML = version.HTML
	s.logger.Info("Build restored from version",
		zap.String("buildID", buildID.String()),
		zap.Int("versionNumber", version.VersionNumber))
	return build, nil
}
