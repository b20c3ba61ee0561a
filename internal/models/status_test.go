package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to BuildStatus
		allowed  bool
	}{
		{StatusPending, StatusGeneratingContent, true},
		{StatusGeneratingContent, StatusGeneratingImage, true},
		{StatusGeneratingImage, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusGeneratingContent, StatusFailed, true},
		{StatusGeneratingImage, StatusFailed, true},

		// Backward and skipping transitions are illegal.
		{StatusCompleted, StatusGeneratingContent, false},
		{StatusGeneratingImage, StatusGeneratingContent, false},
		{StatusGeneratingContent, StatusPending, false},
		{StatusPending, StatusGeneratingImage, false},
		{StatusPending, StatusCompleted, false},

		// Terminal states never leave.
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusGeneratingContent.IsTerminal())
	assert.False(t, StatusGeneratingImage.IsTerminal())
}
