package transcripts

import (
	"context"
	"sync"
)

// MemoryRepo stores transcripts in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	byCall map[string]Transcript
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCall: make(map[string]Transcript)}
}

func (r *MemoryRepo) Get(ctx context.Context, callID string) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byCall[callID]
	if !ok {
		return Transcript{}, ErrNotFound
	}
	return t.clone(), nil
}

func (r *MemoryRepo) Put(ctx context.Context, t Transcript) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCall[t.CallID] = t.clone()
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, callID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byCall, callID)
	return nil
}
