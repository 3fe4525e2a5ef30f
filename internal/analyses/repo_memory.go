package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Analysis)}
}

// Create stores the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis.CallIDs = append([]string(nil), analysis.CallIDs...)
	r.byID[analysis.ID] = analysis
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return copyAnalysis(analysis), nil
}

func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Analysis, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, copyAnalysis(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Analysis{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkRunning(ctx context.Context, analysisID string, at time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusPending {
			return ErrNotPending
		}
		a.Status = StatusRunning
		a.StartedAt = &at
		a.HeartbeatAt = &at
		a.UpdatedAt = at
		return nil
	})
}

func (r *MemoryRepo) RecordCallOutcome(ctx context.Context, analysisID string, failed bool, at time.Time) (Analysis, error) {
	var out Analysis
	err := r.update(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusRunning {
			return ErrNotRunning
		}
		if a.ProcessedCalls >= a.TotalCalls {
			return ErrCountersExhausted
		}
		a.ProcessedCalls++
		if failed {
			a.ErrorCount++
		}
		a.Progress = progressPercent(a.ProcessedCalls, a.TotalCalls)
		a.HeartbeatAt = &at
		a.UpdatedAt = at
		out = copyAnalysis(*a)
		return nil
	})
	return out, err
}

func (r *MemoryRepo) Heartbeat(ctx context.Context, analysisID string, at time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		if a.Status != StatusRunning {
			return nil
		}
		a.HeartbeatAt = &at
		a.UpdatedAt = at
		return nil
	})
}

func (r *MemoryRepo) Finish(ctx context.Context, analysisID, status, errorMessage string, at time.Time) error {
	return r.update(ctx, analysisID, func(a *Analysis) error {
		if a.Terminal() {
			return nil
		}
		a.Status = status
		a.ErrorMessage = errorMessage
		a.CompletedAt = &at
		a.UpdatedAt = at
		return nil
	})
}

func (r *MemoryRepo) ListStale(ctx context.Context, cutoffs StaleCutoffs) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Analysis
	for _, a := range r.byID {
		if cutoffs.Stale(a) {
			out = append(out, copyAnalysis(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkStale(ctx context.Context, analysisID string, cutoffs StaleCutoffs, message string, at time.Time) (bool, error) {
	marked := false
	err := r.update(ctx, analysisID, func(a *Analysis) error {
		if !cutoffs.Stale(*a) {
			return nil
		}
		a.Status = StatusError
		a.ErrorMessage = message
		a.CompletedAt = &at
		a.UpdatedAt = at
		marked = true
		return nil
	})
	return marked, err
}

func (r *MemoryRepo) update(ctx context.Context, analysisID string, fn func(*Analysis) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[analysisID]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&a); err != nil {
		return err
	}
	r.byID[analysisID] = a
	return nil
}

func copyAnalysis(a Analysis) Analysis {
	a.CallIDs = append([]string(nil), a.CallIDs...)
	return a
}
