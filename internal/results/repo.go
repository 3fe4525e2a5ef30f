package results

import "context"

// Repo persists at most one result per (analysis, call) pair.
type Repo interface {
	// Upsert replaces any prior row for the same analysis and call.
	Upsert(ctx context.Context, r Result) error
	// List returns the rows of an analysis ordered by submission position.
	List(ctx context.Context, analysisID string) ([]Result, error)
}
