package analyses

import (
	"errors"
	"strings"
)

var (
	ErrNotFound = errors.New("analysis not found")
	// ErrNotPending is returned when a run is requested for an analysis that already left pending.
	ErrNotPending = errors.New("analysis is not pending")
	// ErrNotRunning is returned when a call outcome arrives for an analysis that is no longer
	// running, typically because the reconciler already flagged it.
	ErrNotRunning = errors.New("analysis is not running")
	// ErrCountersExhausted means every call of the analysis is already accounted for.
	ErrCountersExhausted = errors.New("analysis counters exhausted")
)

// Issue describes one rejected input field.
type Issue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError rejects a submission before any row is written.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Issue)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
