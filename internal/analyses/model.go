package analyses

import "time"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Analysis is one batch execution of a query against a fixed set of calls.
type Analysis struct {
	ID                string
	Name              string
	QueryText         string
	TemplateID        string
	CallIDs           []string
	ForceRetranscribe bool
	Status            string
	Progress          int
	TotalCalls        int
	ProcessedCalls    int
	ErrorCount        int
	ErrorMessage      string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	HeartbeatAt       *time.Time
	UpdatedAt         time.Time
}

// Terminal reports whether the analysis reached completed or error.
func (a Analysis) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusError
}

// LastBeat is the most recent sign of life: the heartbeat, or creation for runs that never started.
func (a Analysis) LastBeat() time.Time {
	if a.HeartbeatAt != nil {
		return *a.HeartbeatAt
	}
	return a.CreatedAt
}

// progressPercent rounds half up, matching ROUND() on numerics in Postgres.
func progressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*processed + total) / (2 * total)
}
