package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")

	// Not-found variants. All satisfy errors.Is(err, ErrNotFound) so the
	// HTTP layer can 404 uniformly while callers still branch on the kind.
	ErrBuildNotFound   = fmt.Errorf("build %w", ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("version %w", ErrNotFound)
	ErrCreatorNotFound = fmt.Errorf("creator %w", ErrNotFound)
	ErrCoinNotFound    = fmt.Errorf("coin %w", ErrNotFound)

	// ErrVersionMismatch: the version exists but belongs to a different
	// build. Treated as a 404, never served.
	ErrVersionMismatch = fmt.Errorf("version does not belong to this build: %w", ErrNotFound)

	// ErrLowReputation rejects build creation for creators below the
	// minimum reputation score.
	ErrLowReputation = errors.New("creator reputation score below required minimum of 0.7")

	// ErrSessionConflict: the agent session still has an active run after
	// the bounded cancel/retry loop was exhausted.
	ErrSessionConflict = errors.New("agent session has an active run")

	// ErrThreadAssigned guards the assign-once invariant on Build.ThreadID.
	ErrThreadAssigned = errors.New("build already has a session thread assigned")

	// ErrInvalidTransition rejects illegal build status transitions.
	ErrInvalidTransition = errors.New("illegal build status transition")

	ErrUpstreamFailure = errors.New("upstream service failure")
)

// UpstreamError carries the message and, when the underlying service
// supplied one, an HTTP-like status code to propagate to the client.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream service failure (status %d): %s", e.StatusCode, e.Message)
	}
	return "upstream service failure: " + e.Message
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamFailure }
