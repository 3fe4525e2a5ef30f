package calls

import (
	"context"
	"time"
)

// Repo defines persistence operations for calls.
type Repo interface {
	Create(ctx context.Context, call Call) error
	GetByID(ctx context.Context, id string) (Call, error)
	// GetMany returns the calls that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]Call, error)
	List(ctx context.Context, filter ListFilter) ([]Call, error)
	SetStatus(ctx context.Context, id, status string) error
	// MarkTranscribed records a completed transcription: status processed,
	// has_transcript set, timestamp updated, duration filled when known.
	MarkTranscribed(ctx context.Context, id string, at time.Time, durationSec *float64) error
	Delete(ctx context.Context, id string) error
}
