package service

import (
	"context"
	"fmt"
	"testing"

	"gameforge-server/internal/models"
	"gameforge-server/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validGameHTML = `<!DOCTYPE html><html><head></head><body><canvas id="game"></canvas></body></html>`

func newUpdateFixture() (UpdateService, *memState) {
	state := newMemState()
	builds := &memBuildRepo{state: state}
	versions := &memVersionRepo{state: state}
	svc := NewUpdateService(builds, versions, noopCache{}, zap.NewNop())
	return svc, state
}

func seedBuild(state *memState, title, html, threadID string) *models.Build {
	build := &models.Build{
		Title:    title,
		HTML:     html,
		FID:      42,
		ThreadID: threadID,
		Status:   models.StatusCompleted,
	}
	state.addBuild(build)
	return build
}

func TestApplyUpdateCheckpointsPreUpdateContent(t *testing.T) {
	svc, state := newUpdateFixture()
	seedBuild(state, "Old Title", validGameHTML, "thread_1")

	newHTML := `<!DOCTYPE html><html><head></head><body><canvas></canvas><p>v2</p></body></html>`
	updated, err := svc.ApplyUpdate(context.Background(), "thread_1", "New Title", newHTML)
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, newHTML, updated.HTML)

	versions, err := (&memVersionRepo{state: state}).ListByBuild(context.Background(), updated.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	// The snapshot holds the content that existed before the update.
	assert.Equal(t, "Old Title", versions[0].Title)
	assert.Equal(t, validGameHTML, versions[0].HTML)
	assert.Equal(t, 1, versions[0].VersionNumber)
}

func TestApplyUpdateNUpdatesCreateNVersions(t *testing.T) {
	svc, state := newUpdateFixture()
	build := seedBuild(state, "Title 0", validGameHTML, "thread_1")

	const n = 4
	contents := []string{validGameHTML}
	for i := 1; i <= n; i++ {
		html := fmt.Sprintf(`<!DOCTYPE html><html><head></head><body><canvas></canvas><p>rev %d</p></body></html>`, i)
		contents = append(contents, html)
		_, err := svc.ApplyUpdate(context.Background(), "thread_1", fmt.Sprintf("Title %d", i), html)
		require.NoError(t, err)
	}

	versions, err := (&memVersionRepo{state: state}).ListByBuild(context.Background(), build.ID)
	require.NoError(t, err)
	require.Len(t, versions, n)
	// Newest first; version k snapshots the content before update k.
	for i, v := range versions {
		k := n - i
		assert.Equal(t, k, v.VersionNumber)
		assert.Equal(t, fmt.Sprintf("Title %d", k-1), v.Title)
		assert.Equal(t, contents[k-1], v.HTML)
	}
}

func TestApplyUpdateValidationFailureHasNoSideEffects(t *testing.T) {
	svc, state := newUpdateFixture()
	build := seedBuild(state, "Old Title", validGameHTML, "thread_1")

	_, err := svc.ApplyUpdate(context.Background(), "thread_1", "New Title", "")
	require.Error(t, err)

	var vErr *validator.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Errors)

	current, err := (&memBuildRepo{state: state}).GetByID(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Title", current.Title)
	assert.Equal(t, validGameHTML, current.HTML)

	versions, err := (&memVersionRepo{state: state}).ListByBuild(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestApplyUpdatePersistsRepairedHTML(t *testing.T) {
	svc, state := newUpdateFixture()
	seedBuild(state, "Old Title", validGameHTML, "thread_1")

	updated, err := svc.ApplyUpdate(context.Background(), "thread_1", "Fixed", "<div>fragment</div>")
	require.NoError(t, err)
	assert.Contains(t, updated.HTML, "<html>")
	assert.Contains(t, updated.HTML, "<body>")
	assert.Contains(t, updated.HTML, "<div>fragment</div>")
}

func TestApplyUpdateUnknownThread(t *testing.T) {
	svc, _ := newUpdateFixture()

	_, err := svc.ApplyUpdate(context.Background(), "no_such_thread", "T", validGameHTML)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
