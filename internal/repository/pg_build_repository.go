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

var _ BuildRepository = (*pgBuildRepository)(nil)

type pgBuildRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgBuildRepository(db DBTX, logger *zap.Logger) BuildRepository {
	return &pgBuildRepository{
		db:     db,
		logger: logger.Named("PgBuildRepo"),
	}
}

const createBuildQuery = `
INSERT INTO builds (id, title, html, description, model, fid, thread_id, image, tutorial, status, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const getBuildByIDQuery = `
SELECT id, title, html, description, model, fid, thread_id, image, tutorial, status, error_message, created_at, updated_at
FROM builds
WHERE id = $1`

const getBuildByThreadIDQuery = `
SELECT id, title, html, description, model, fid, thread_id, image, tutorial, status, error_message, created_at, updated_at
FROM builds
WHERE thread_id = $1`

const listBuildsByFIDQuery = `
SELECT id, title, html, description, model, fid, thread_id, image, tutorial, status, error_message, created_at, updated_at
FROM builds
WHERE fid = $1
ORDER BY created_at DESC`

const updateBuildContentQuery = `
UPDATE builds SET title = $2, html = $3, updated_at = NOW() WHERE id = $1`

const updateBuildContentByThreadQuery = `
UPDATE builds SET title = $2, html = $3, updated_at = NOW() WHERE thread_id = $1`

const updateBuildTitleQuery = `
UPDATE builds SET title = $2, updated_at = NOW() WHERE id = $1`

const updateBuildTutorialQuery = `
UPDATE builds SET tutorial = $2, updated_at = NOW() WHERE id = $1`

const updateBuildImageQuery = `
UPDATE builds SET image = $2, updated_at = NOW() WHERE id = $1`

const updateBuildStatusQuery = `
UPDATE builds SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`

const assignBuildThreadQuery = `
UPDATE builds SET thread_id = $2, updated_at = NOW() WHERE id = $1 AND (thread_id IS NULL OR thread_id = '')`

const deleteBuildQuery = `
DELETE FROM builds WHERE id = $1`

func (r *pgBuildRepository) Create(ctx context.Context, build *models.Build) error {
	if build.ID == uuid.Nil {
		build.ID = uuid.New()
	}
	now := time.Now()
	if build.CreatedAt.IsZero() {
		build.CreatedAt = now
	}
	build.UpdatedAt = now

	_, err := r.db.Exec(ctx, createBuildQuery,
		build.ID,
		build.Title,
		build.HTML,
		build.Description,
		build.Model,
		build.FID,
		build.ThreadID,
		build.Image,
		build.Tutorial,
		build.Status,
		build.ErrorMessage,
		build.CreatedAt,
		build.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create build", zap.Error(err), zap.Int64("fid", build.FID))
		return fmt.Errorf("failed to create build: %w", err)
	}
	r.logger.Info("Build created", zap.String("buildID", build.ID.String()), zap.Int64("fid", build.FID))
	return nil
}

func (r *pgBuildRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Build, error) {
	var build models.Build
	err := pgxscan.Get(ctx, r.db, &build, getBuildByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Build not found", zap.String("buildID", id.String()))
			return nil, models.ErrBuildNotFound
		}
		r.logger.Error("Failed to get build", zap.Error(err), zap.String("buildID", id.String()))
		return nil, fmt.Errorf("failed to get build %s: %w", id, err)
	}
	return &build, nil
}

func (r *pgBuildRepository) GetByThreadID(ctx context.Context, threadID string) (*models.Build, error) {
	var build models.Build
	err := pgxscan.Get(ctx, r.db, &build, getBuildByThreadIDQuery, threadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Build not found by thread", zap.String("threadID", threadID))
			return nil, models.ErrBuildNotFound
		}
		r.logger.Error("Failed to get build by thread", zap.Error(err), zap.String("threadID", threadID))
		return nil, fmt.Errorf("failed to get build by thread %s: %w", threadID, err)
	}
	return &build, nil
}

func (r *pgBuildRepository) ListByFID(ctx context.Context, fid int64) ([]*models.Build, error) {
	var builds []*models.Build
	err := pgxscan.Select(ctx, r.db, &builds, listBuildsByFIDQuery, fid)
	if err != nil {
		r.logger.Error("Failed to list builds", zap.Error(err), zap.Int64("fid", fid))
		return nil, fmt.Errorf("failed to list builds for fid %d: %w", fid, err)
	}
	return builds, nil
}

func (r *pgBuildRepository) UpdateContent(ctx context.Context, id uuid.UUID, title, html string) error {
	return r.exec(ctx, updateBuildContentQuery, "update build content", id.String(), id, title, html)
}

func (r *pgBuildRepository) UpdateContentByThreadID(ctx context.Context, threadID, title, html string) error {
	return r.exec(ctx, updateBuildContentByThreadQuery, "update build content by thread", threadID, threadID, title, html)
}

func (r *pgBuildRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	return r.exec(ctx, updateBuildTitleQuery, "update build title", id.String(), id, title)
}

func (r *pgBuildRepository) UpdateTutorial(ctx context.Context, id uuid.UUID, tutorial string) error {
	return r.exec(ctx, updateBuildTutorialQuery, "update build tutorial", id.String(), id, tutorial)
}

func (r *pgBuildRepository) UpdateImage(ctx context.Context, id uuid.UUID, image string) error {
	return r.exec(ctx, updateBuildImageQuery, "update build image", id.String(), id, image)
}

func (r *pgBuildRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BuildStatus, errorMessage string) error {
	err := r.exec(ctx, updateBuildStatusQuery, "update build status", id.String(), id, status, errorMessage)
	if err == nil {
		r.logger.Info("Build status updated", zap.String("buildID", id.String()), zap.String("status", string(status)))
	}
	return err
}

func (r *pgBuildRepository) AssignThread(ctx context.Context, id uuid.UUID, threadID string) error {
	tag, err := r.db.Exec(ctx, assignBuildThreadQuery, id, threadID)
	if err != nil {
		r.logger.Error("Failed to assign thread", zap.Error(err), zap.String("buildID", id.String()))
		return fmt.Errorf("failed to assign thread to build %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the build is gone or it already has a thread; disambiguate.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		r.logger.Warn("Thread already assigned", zap.String("buildID", id.String()))
		return models.ErrThreadAssigned
	}
	return nil
}

func (r *pgBuildRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteBuildQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete build", zap.Error(err), zap.String("buildID", id.String()))
		return fmt.Errorf("failed to delete build %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrBuildNotFound
	}
	r.logger.Info("Build deleted", zap.String("buildID", id.String()))
	return nil
}

// exec runs a single-row update and maps zero affected rows to not-found.
func (r *pgBuildRepository) exec(ctx context.Context, query, action, key string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, zap.Error(err), zap.String("key", key))
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Debug("No build matched for "+action, zap.String("key", key))
		return models.ErrBuildNotFound
	}
	return nil
}
