package repository

import (
	"context"

	"gameforge-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX accepts either *pgxpool.Pool or pgx.Tx so repositories can run inside
// transactions without changing their constructors.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BuildRepository persists game builds.
type BuildRepository interface {
	Create(ctx context.Context, build *models.Build) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Build, error)
	GetByThreadID(ctx context.Context, threadID string) (*models.Build, error)
	ListByFID(ctx context.Context, fid int64) ([]*models.Build, error)
	// UpdateContent replaces the live title and html of a build.
	UpdateContent(ctx context.Context, id uuid.UUID, title, html string) error
	// UpdateContentByThreadID replaces the live title and html of the build
	// owning the given session thread.
	UpdateContentByThreadID(ctx context.Context, threadID, title, html string) error
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	UpdateTutorial(ctx context.Context, id uuid.UUID, tutorial string) error
	UpdateImage(ctx context.Context, id uuid.UUID, image string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BuildStatus, errorMessage string) error
	// AssignThread binds a session thread to the build. The binding is
	// write-once; a second assignment returns ErrThreadAssigned.
	AssignThread(ctx context.Context, id uuid.UUID, threadID string) error
	// Delete removes the build; versions and coin rows go with it via
	// cascading foreign keys.
	Delete(ctx context.Context, id uuid.UUID) error
}

// BuildVersionRepository persists the append-only version history of builds.
type BuildVersionRepository interface {
	// Create inserts a snapshot, assigning the next version number for the
	// build atomically in the insert itself.
	Create(ctx context.Context, version *models.BuildVersion) error
	// ListByBuild returns all versions of a build, newest first.
	ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BuildVersion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CoinRepository persists reward-token records, one per build.
type CoinRepository interface {
	Create(ctx context.Context, coin *models.Coin) error
	GetByBuildID(ctx context.Context, buildID uuid.UUID) (*models.Coin, error)
}
