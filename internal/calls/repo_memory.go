package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo stores calls in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Call
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Call)}
}

// Create stores the call.
func (r *MemoryRepo) Create(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[call.ID] = call
	return nil
}

// GetByID returns a call by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Call, error) {
	if err := ctx.Err(); err != nil {
		return Call{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.byID[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return call, nil
}

// GetMany returns the subset of ids that exist.
func (r *MemoryRepo) GetMany(ctx context.Context, ids []string) (map[string]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Call, len(ids))
	for _, id := range ids {
		if call, ok := r.byID[id]; ok {
			out[id] = call
		}
	}
	return out, nil
}

// List returns calls newest-first.
func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	r.mu.RLock()
	out := make([]Call, 0, len(r.byID))
	for _, call := range r.byID {
		if filter.Status != "" && call.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(call.Filename), search) {
			continue
		}
		out = append(out, call)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Call{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// SetStatus updates the status of a call.
func (r *MemoryRepo) SetStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, id, func(c *Call) { c.Status = status })
}

// MarkTranscribed records a completed transcription.
func (r *MemoryRepo) MarkTranscribed(ctx context.Context, id string, at time.Time, durationSec *float64) error {
	return r.update(ctx, id, func(c *Call) {
		c.Status = StatusProcessed
		c.HasTranscript = true
		ts := at
		c.TranscriptUpdatedAt = &ts
		if durationSec != nil {
			d := *durationSec
			c.DurationSec = &d
		}
	})
}

// Delete removes a call.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Call)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&call)
	r.byID[id] = call
	return nil
}
