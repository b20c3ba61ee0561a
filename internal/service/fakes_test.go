package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"gameforge-server/internal/clients"
	"gameforge-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

// In-memory repositories for tests asserting sequence properties
// (checkpoint ordering, version numbering) that are awkward to express with
// call-recording mocks.

type memState struct {
	mu       sync.Mutex
	builds   map[uuid.UUID]*models.Build
	versions map[uuid.UUID]*models.BuildVersion
}

func newMemState() *memState {
	return &memState{
		builds:   make(map[uuid.UUID]*models.Build),
		versions: make(map[uuid.UUID]*models.BuildVersion),
	}
}

func (s *memState) addBuild(b *models.Build) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	s.builds[b.ID] = &cp
}

type memBuildRepo struct{ state *memState }

func (r *memBuildRepo) Create(_ context.Context, b *models.Build) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.addBuild(b)
	return nil
}

func (r *memBuildRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Build, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	b, ok := r.state.builds[id]
	if !ok {
		return nil, models.ErrBuildNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBuildRepo) GetByThreadID(_ context.Context, threadID string) (*models.Build, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, b := range r.state.builds {
		if b.ThreadID == threadID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, models.ErrBuildNotFound
}

func (r *memBuildRepo) ListByFID(_ context.Context, fid int64) ([]*models.Build, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []*models.Build
	for _, b := range r.state.builds {
		if b.FID == fid {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memBuildRepo) mutate(id uuid.UUID, fn func(*models.Build)) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	b, ok := r.state.builds[id]
	if !ok {
		return models.ErrBuildNotFound
	}
	fn(b)
	return nil
}

func (r *memBuildRepo) UpdateContent(_ context.Context, id uuid.UUID, title, html string) error {
	return r.mutate(id, func(b *models.Build) { b.Title, b.HTML = title, html })
}

func (r *memBuildRepo) UpdateContentByThreadID(_ context.Context, threadID, title, html string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, b := range r.state.builds {
		if b.ThreadID == threadID {
			b.Title, b.HTML = title, html
			return nil
		}
	}
	return models.ErrBuildNotFound
}

func (r *memBuildRepo) UpdateTitle(_ context.Context, id uuid.UUID, title string) error {
	return r.mutate(id, func(b *models.Build) { b.Title = title })
}

func (r *memBuildRepo) UpdateTutorial(_ context.Context, id uuid.UUID, tutorial string) error {
	return r.mutate(id, func(b *models.Build) { b.Tutorial = tutorial })
}

func (r *memBuildRepo) UpdateImage(_ context.Context, id uuid.UUID, image string) error {
	return r.mutate(id, func(b *models.Build) { b.Image = image })
}

func (r *memBuildRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.BuildStatus, errorMessage string) error {
	return r.mutate(id, func(b *models.Build) { b.Status, b.ErrorMessage = status, errorMessage })
}

func (r *memBuildRepo) AssignThread(_ context.Context, id uuid.UUID, threadID string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	b, ok := r.state.builds[id]
	if !ok {
		return models.ErrBuildNotFound
	}
	if b.ThreadID != "" {
		return models.ErrThreadAssigned
	}
	b.ThreadID = threadID
	return nil
}

func (r *memBuildRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if _, ok := r.state.builds[id]; !ok {
		return models.ErrBuildNotFound
	}
	delete(r.state.builds, id)
	for vid, v := range r.state.versions {
		if v.BuildID == id {
			delete(r.state.versions, vid)
		}
	}
	return nil
}

type memVersionRepo struct{ state *memState }

func (r *memVersionRepo) Create(_ context.Context, v *models.BuildVersion) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	max := 0
	for _, existing := range r.state.versions {
		if existing.BuildID == v.BuildID && existing.VersionNumber > max {
			max = existing.VersionNumber
		}
	}
	v.VersionNumber = max + 1
	cp := *v
	r.state.versions[v.ID] = &cp
	return nil
}

func (r *memVersionRepo) ListByBuild(_ context.Context, buildID uuid.UUID) ([]*models.BuildVersion, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	var out []*models.BuildVersion
	for _, v := range r.state.versions {
		if v.BuildID == buildID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *memVersionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BuildVersion, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	v, ok := r.state.versions[id]
	if !ok {
		return nil, models.ErrVersionNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memVersionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if _, ok := r.state.versions[id]; !ok {
		return models.ErrVersionNotFound
	}
	delete(r.state.versions, id)
	return nil
}

// noopCache satisfies cache.ArtifactCache without storing anything.
type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (string, bool) { return "", false }
func (noopCache) Set(context.Context, uuid.UUID, string)        {}
func (noopCache) Invalidate(context.Context, uuid.UUID)         {}

// Mock IdentityClient
type mockIdentityClient struct {
	mock.Mock
}

func (m *mockIdentityClient) GetCreator(ctx context.Context, fid int64) (*clients.Creator, error) {
	args := m.Called(ctx, fid)
	c, _ := args.Get(0).(*clients.Creator)
	return c, args.Error(1)
}
