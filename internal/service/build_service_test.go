package service

import (
	"context"
	"strings"
	"testing"

	"gameforge-server/internal/clients"
	"gameforge-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBuildFixture(identity *mockIdentityClient) (BuildService, *memState) {
	state := newMemState()
	builds := &memBuildRepo{state: state}
	versions := &memVersionRepo{state: state}
	svc := NewBuildService(builds, versions, identity, noopCache{}, 0.7, zap.NewNop())
	return svc, state
}

func TestCreateBuildRejectsLowReputation(t *testing.T) {
	identity := new(mockIdentityClient)
	identity.On("GetCreator", mock.Anything, int64(7)).
		Return(&clients.Creator{FID: 7, Score: 0.5}, nil)

	svc, _ := newBuildFixture(identity)
	_, err := svc.Create(context.Background(), 7, "tap the dot", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrLowReputation)
	assert.True(t, strings.Contains(err.Error(), "0.7"), "error should name the required minimum: %v", err)
	identity.AssertExpectations(t)
}

func TestCreateBuildUnknownCreator(t *testing.T) {
	identity := new(mockIdentityClient)
	identity.On("GetCreator", mock.Anything, int64(8)).
		Return(nil, models.ErrCreatorNotFound)

	svc, _ := newBuildFixture(identity)
	_, err := svc.Create(context.Background(), 8, "tap the dot", "x")
	assert.ErrorIs(t, err, models.ErrCreatorNotFound)
}

func TestCreateBuildStartsPending(t *testing.T) {
	identity := new(mockIdentityClient)
	identity.On("GetCreator", mock.Anything, int64(9)).
		Return(&clients.Creator{FID: 9, Score: 0.9}, nil)

	svc, state := newBuildFixture(identity)
	build, err := svc.Create(context.Background(), 9, "tap the dot", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, build.Status)
	assert.Equal(t, "tap the dot", build.Description)
	assert.Empty(t, build.ThreadID)

	stored, err := (&memBuildRepo{state: state}).GetByID(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestUpdateTitleCheckpointsAndRecordsNote(t *testing.T) {
	identity := new(mockIdentityClient)
	svc, state := newBuildFixture(identity)
	build := seedBuild(state, "Before", validGameHTML, "thread_1")

	updated, err := svc.UpdateTitle(context.Background(), build.ID, 42, "After")
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)

	versions, err := (&memVersionRepo{state: state}).ListByBuild(context.Background(), build.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "Before", versions[0].Title)
	assert.Equal(t, `Title changed from "Before" to "After"`, versions[0].Description)
}

func TestDeleteBuildCascades(t *testing.T) {
	identity := new(mockIdentityClient)
	svc, state := newBuildFixture(identity)
	build := seedBuild(state, "Doomed", validGameHTML, "thread_1")
	require.NoError(t, (&memVersionRepo{state: state}).Create(context.Background(),
		&models.BuildVersion{BuildID: build.ID, Title: "v", HTML: "x", CreatedByFID: 1}))

	require.NoError(t, svc.Delete(context.Background(), build.ID))

	_, err := svc.Get(context.Background(), build.ID)
	assert.ErrorIs(t, err, models.ErrBuildNotFound)
	versions, err := (&memVersionRepo{state: state}).ListByBuild(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestArtifactServesFallbackForInvalidHTML(t *testing.T) {
	identity := new(mockIdentityClient)
	svc, state := newBuildFixture(identity)
	build := seedBuild(state, "Broken", "<div><span>hi</div>", "thread_1")

	html, err := svc.Artifact(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(html), "<html")
	assert.NotContains(t, html, "<span>hi")
}

func TestArtifactServesValidHTML(t *testing.T) {
	identity := new(mockIdentityClient)
	svc, state := newBuildFixture(identity)
	build := seedBuild(state, "Good", validGameHTML, "thread_1")

	html, err := svc.Artifact(context.Background(), build.ID)
	require.NoError(t, err)
	assert.Equal(t, validGameHTML, html)
}
