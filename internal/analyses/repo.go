package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	// List returns analyses newest-first.
	List(ctx context.Context, limit, offset int) ([]Analysis, error)
	// MarkRunning moves a pending analysis to running. Anything else yields ErrNotPending.
	MarkRunning(ctx context.Context, analysisID string, at time.Time) error
	// RecordCallOutcome atomically counts one processed call, bumping error_count when failed,
	// and returns the updated row. It never lets processed_calls exceed total_calls and never
	// touches an analysis that is not running (ErrNotRunning).
	RecordCallOutcome(ctx context.Context, analysisID string, failed bool, at time.Time) (Analysis, error)
	Heartbeat(ctx context.Context, analysisID string, at time.Time) error
	// Finish moves a non-terminal analysis to a terminal status.
	Finish(ctx context.Context, analysisID, status, errorMessage string, at time.Time) error
	// ListStale returns non-terminal analyses whose last sign of life is before their status's cutoff.
	ListStale(ctx context.Context, cutoffs StaleCutoffs) ([]Analysis, error)
	// MarkStale errors an analysis only if it is still non-terminal and still stale.
	MarkStale(ctx context.Context, analysisID string, cutoffs StaleCutoffs, message string, at time.Time) (bool, error)
}
