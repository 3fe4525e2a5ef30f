package results

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores results in memory.
type MemoryRepo struct {
	mu         sync.RWMutex
	byAnalysis map[string]map[string]Result
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byAnalysis: make(map[string]map[string]Result)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, res Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, ok := r.byAnalysis[res.AnalysisID]
	if !ok {
		rows = make(map[string]Result)
		r.byAnalysis[res.AnalysisID] = rows
	}
	if prev, ok := rows[res.CallID]; ok {
		res.ID = prev.ID
		res.CreatedAt = prev.CreatedAt
	}
	rows[res.CallID] = res
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, analysisID string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	rows := r.byAnalysis[analysisID]
	out := make([]Result, 0, len(rows))
	for _, res := range rows {
		out = append(out, res)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].CallID < out[j].CallID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}
