package models

// BuildStatus is the generation pipeline state stored on a Build.
type BuildStatus string

const (
	StatusPending           BuildStatus = "pending"
	StatusGeneratingContent BuildStatus = "generating_content"
	StatusGeneratingImage   BuildStatus = "generating_image"
	StatusCompleted         BuildStatus = "completed"
	StatusFailed            BuildStatus = "failed"
)

// forward transitions; StatusFailed is reachable from any non-terminal state.
var statusTransitions = map[BuildStatus][]BuildStatus{
	StatusPending:           {StatusGeneratingContent, StatusFailed},
	StatusGeneratingContent: {StatusGeneratingImage, StatusFailed},
	StatusGeneratingImage:   {StatusCompleted, StatusFailed},
	StatusCompleted:         {},
	StatusFailed:            {},
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition. Backward transitions are never legal.
func (s BuildStatus) CanTransitionTo(next BuildStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s BuildStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
