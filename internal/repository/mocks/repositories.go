package mocks

import (
	"context"

	"gameforge-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock BuildRepository
type BuildRepository struct {
	mock.Mock
}

func (m *BuildRepository) Create(ctx context.Context, build *models.Build) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}
func (m *BuildRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Build, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Build)
	return b, args.Error(1)
}
func (m *BuildRepository) GetByThreadID(ctx context.Context, threadID string) (*models.Build, error) {
	args := m.Called(ctx, threadID)
	b, _ := args.Get(0).(*models.Build)
	return b, args.Error(1)
}
func (m *BuildRepository) ListByFID(ctx context.Context, fid int64) ([]*models.Build, error) {
	args := m.Called(ctx, fid)
	b, _ := args.Get(0).([]*models.Build)
	return b, args.Error(1)
}
func (m *BuildRepository) UpdateContent(ctx context.Context, id uuid.UUID, title, html string) error {
	args := m.Called(ctx, id, title, html)
	return args.Error(0)
}
func (m *BuildRepository) UpdateContentByThreadID(ctx context.Context, threadID, title, html string) error {
	args := m.Called(ctx, threadID, title, html)
	return args.Error(0)
}
func (m *BuildRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}
func (m *BuildRepository) UpdateTutorial(ctx context.Context, id uuid.UUID, tutorial string) error {
	args := m.Called(ctx, id, tutorial)
	return args.Error(0)
}
func (m *BuildRepository) UpdateImage(ctx context.Context, id uuid.UUID, image string) error {
	args := m.Called(ctx, id, image)
	return args.Error(0)
}
func (m *BuildRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BuildStatus, errorMessage string) error {
	args := m.Called(ctx, id, status, errorMessage)
	return args.Error(0)
}
func (m *BuildRepository) AssignThread(ctx context.Context, id uuid.UUID, threadID string) error {
	args := m.Called(ctx, id, threadID)
	return args.Error(0)
}
func (m *BuildRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock BuildVersionRepository
type BuildVersionRepository struct {
	mock.Mock
}

func (m *BuildVersionRepository) Create(ctx context.Context, version *models.BuildVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}
func (m *BuildVersionRepository) ListByBuild(ctx context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error) {
	args := m.Called(ctx, buildID)
	v, _ := args.Get(0).([]*models.BuildVersion)
	return v, args.Error(1)
}
func (m *BuildVersionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BuildVersion, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*models.BuildVersion)
	return v, args.Error(1)
}
func (m *BuildVersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock CoinRepository
type CoinRepository struct {
	mock.Mock
}

func (m *CoinRepository) Create(ctx context.Context, coin *models.Coin) error {
	args := m.Called(ctx, coin)
	return args.Error(0)
}
func (m *CoinRepository) GetByBuildID(ctx context.Context, buildID uuid.UUID) (*models.Coin, error) {
	args := m.Called(ctx, buildID)
	c, _ := args.Get(0).(*models.Coin)
	return c, args.Error(1)
}
