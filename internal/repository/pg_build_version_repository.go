package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameforge-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ BuildVersionRepository = (*pgBuildVersionRepository)(nil)

type pgBuildVersionRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgBuildVersionRepository(db DBTX, logger *zap.Logger) BuildVersionRepository {
	return &pgBuildVersionRepository{
		db:     db,
		logger: logger.Named("PgBuildVersionRepo"),
	}
}

// The next version number is computed inside the insert so concurrent
// snapshots of the same build cannot both claim it. Deleting a version
// leaves a gap, except for the newest one, whose number the following
// checkpoint takes over.
const createBuildVersionQuery = `
INSERT INTO build_versions (id, build_id, version_number, title, html, created_by_fid, description, created_at)
SELECT $1, $2, COALESCE(MAX(version_number), 0) + 1, $3, $4, $5, $6, $7
FROM build_versions WHERE build_id = $2
RETURNING version_number`

const listBuildVersionsQuery = `
SELECT id, build_id, version_number, title, html, created_by_fid, description, created_at
FROM build_versions
WHERE build_id = $1
ORDER BY version_number DESC`

const getBuildVersionByIDQuery = `
SELECT id, build_id, version_number, title, html, created_by_fid, description, created_at
FROM build_versions
WHERE id = $1`

const deleteBuildVersionQuery = `
DELETE FROM build_versions WHERE id = $1`

func (r *pgBuildVersionRepository) Create(ctx context.Context, version *models.BuildVersion) error {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(ctx, createBuildVersionQuery,
		version.ID,
		version.BuildID,
		version.Title,
		version.HTML,
		version.CreatedByFID,
		version.Description,
		version.CreatedAt,
	).Scan(&version.VersionNumber)
	if err != nil {
		r.logger.Error("Failed to create build version", zap.Error(err), zap.String("buildID", version.BuildID.String()))
		return fmt.Errorf("failed to create version for build %s: %w", version.BuildID, err)
	}
	r.logger.Info("Build version created",
		zap.String("buildID", version.BuildID.String()),
		zap.Int("versionNumber", version.VersionNumber))
	return nil
}

func (r *pgBuildVersionRepository) ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error) {
	var versions []*models.BuildVersion
	err := pgxscan.Select(ctx, r.db, &versions, listBuildVersionsQuery, buildID)
	if err != nil {
		r.logger.Error("Failed to list build versions", zap.Error(err), zap.String("buildID", buildID.String()))
		return nil, fmt.Errorf("failed to list versions for build %s: %w", buildID, err)
	}
	return versions, nil
}

func (r *pgBuildVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BuildVersion, error) {
	var version models.BuildVersion
	err := pgxscan.Get(ctx, r.db, &version, getBuildVersionByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Build version not found", zap.String("versionID", id.String()))
			return nil, models.ErrVersionNotFound
		}
		r.logger.Error("Failed to get build version", zap.Error(err), zap.String("versionID", id.String()))
		return nil, fmt.Errorf("failed to get version %s: %w", id, err)
	}
	return &version, nil
}

func (r *pgBuildVersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteBuildVersionQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete build version", zap.Error(err), zap.String("versionID", id.String()))
		return fmt.Errorf("failed to delete version %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrVersionNotFound
	}
	r.logger.Info("Build version deleted", zap.String("versionID", id.String()))
	return nil
}
