package service

import (
	"context"
	"testing"

	"gameforge-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVersionFixture() (VersionService, *memState) {
	state := newMemState()
	builds := &memBuildRepo{state: state}
	versions := &memVersionRepo{state: state}
	svc := NewVersionService(builds, versions, noopCache{}, zap.NewNop())
	return svc, state
}

func TestRestoreCopiesVersionContentAndCheckpointsCurrent(t *testing.T) {
	svc, state := newVersionFixture()
	build := seedBuild(state, "Current", "<html><body>current</body></html>", "thread_1")

	old := &models.BuildVersion{
		BuildID:      build.ID,
		Title:        "Older",
		HTML:         "<html><body>older</body></html>",
		CreatedByFID: 42,
	}
	require.NoError(t, (&memVersionRepo{state: state}).Create(context.Background(), old))

	restored, err := svc.Restore(context.Background(), build.ID, old.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, "Older", restored.Title)
	assert.Equal(t, "<html><body>older</body></html>", restored.HTML)

	versions, err := svc.List(context.Background(), build.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	// Newest version is the checkpoint of the replaced state.
	assert.Equal(t, "Current", versions[0].Title)
	assert.Equal(t, "<html><body>current</body></html>", versions[0].HTML)
}

func TestRestoreOfRestoreCheckpointRoundTrips(t *testing.T) {
	svc, state := newVersionFixture()
	build := seedBuild(state, "State A", "<html><body>A</body></html>", "thread_1")

	versionB := &models.BuildVersion{
		BuildID:      build.ID,
		Title:        "State B",
		HTML:         "<html><body>B</body></html>",
		CreatedByFID: 42,
	}
	require.NoError(t, (&memVersionRepo{state: state}).Create(context.Background(), versionB))

	// First restore: A -> B, checkpointing A.
	afterFirst, err := svc.Restore(context.Background(), build.ID, versionB.ID, 42)
	require.NoError(t, err)
	require.Equal(t, "State B", afterFirst.Title)

	versions, err := svc.List(context.Background(), build.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	checkpoint := versions[0]
	require.Equal(t, "State A", checkpoint.Title)

	// Second restore targets the checkpoint created by the first; the build
	// must return to exactly the pre-restore state.
	afterSecond, err := svc.Restore(context.Background(), build.ID, checkpoint.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, "State A", afterSecond.Title)
	assert.Equal(t, "<html><body>A</body></html>", afterSecond.HTML)
}

func TestVersionOperations404Triage(t *testing.T) {
	svc, state := newVersionFixture()
	buildA := seedBuild(state, "A", "<html><body>a</body></html>", "thread_a")
	buildB := seedBuild(state, "B", "<html><body>b</body></html>", "thread_b")

	versionOfB := &models.BuildVersion{BuildID: buildB.ID, Title: "B v1", HTML: "x", CreatedByFID: 1}
	require.NoError(t, (&memVersionRepo{state: state}).Create(context.Background(), versionOfB))

	t.Run("build not found", func(t *testing.T) {
		_, err := svc.List(context.Background(), newUUID(t))
		assert.ErrorIs(t, err, models.ErrBuildNotFound)
	})

	t.Run("version not found", func(t *testing.T) {
		_, err := svc.Get(context.Background(), buildA.ID, newUUID(t))
		assert.ErrorIs(t, err, models.ErrVersionNotFound)
	})

	t.Run("version of another build", func(t *testing.T) {
		_, err := svc.Get(context.Background(), buildA.ID, versionOfB.ID)
		assert.ErrorIs(t, err, models.ErrVersionMismatch)
		// Still a not-found to the HTTP layer.
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("delete rejects mismatched version", func(t *testing.T) {
		err := svc.Delete(context.Background(), buildA.ID, versionOfB.ID)
		assert.ErrorIs(t, err, models.ErrVersionMismatch)

		// The version is untouched.
		_, err = svc.Get(context.Background(), buildB.ID, versionOfB.ID)
		assert.NoError(t, err)
	})

	t.Run("restore rejects mismatched version", func(t *testing.T) {
		_, err := svc.Restore(context.Background(), buildA.ID, versionOfB.ID, 1)
		assert.ErrorIs(t, err, models.ErrVersionMismatch)
	})
}

func TestDeleteVersion(t *testing.T) {
	svc, state := newVersionFixture()
	build := seedBuild(state, "A", "<html><body>a</body></html>", "thread_a")

	version := &models.BuildVersion{BuildID: build.ID, Title: "v1", HTML: "x", CreatedByFID: 1}
	require.NoError(t, (&memVersionRepo{state: state}).Create(context.Background(), version))

	require.NoError(t, svc.Delete(context.Background(), build.ID, version.ID))
	_, err := svc.Get(context.Background(), build.ID, version.ID)
	assert.ErrorIs(t, err, models.ErrVersionNotFound)
}

func TestVersionNumbersFollowSurvivingMax(t *testing.T) {
	svc, state := newVersionFixture()
	build := seedBuild(state, "A", "<html><body>a</body></html>", "thread_a")
	repo := &memVersionRepo{state: state}

	v1 := &models.BuildVersion{BuildID: build.ID, Title: "v1", HTML: "x", CreatedByFID: 1}
	v2 := &models.BuildVersion{BuildID: build.ID, Title: "v2", HTML: "y", CreatedByFID: 1}
	require.NoError(t, repo.Create(context.Background(), v1))
	require.NoError(t, repo.Create(context.Background(), v2))
	require.Equal(t, 2, v2.VersionNumber)

	// Deleting a middle version leaves a gap.
	require.NoError(t, svc.Delete(context.Background(), build.ID, v1.ID))
	v3 := &models.BuildVersion{BuildID: build.ID, Title: "v3", HTML: "z", CreatedByFID: 1}
	require.NoError(t, repo.Create(context.Background(), v3))
	assert.Equal(t, 3, v3.VersionNumber)

	// Deleting the newest frees its number for the next checkpoint.
	require.NoError(t, svc.Delete(context.Background(), build.ID, v3.ID))
	v4 := &models.BuildVersion{BuildID: build.ID, Title: "v4", HTML: "w", CreatedByFID: 1}
	require.NoError(t, repo.Create(context.Background(), v4))
	assert.Equal(t, 3, v4.VersionNumber)
}
