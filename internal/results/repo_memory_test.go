package results

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepoUpsertReplacesPair(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Minute)

	if err := repo.Upsert(ctx, Result{ID: "r1", AnalysisID: "a1", CallID: "c1", Position: 0, Status: StatusFailed, CreatedAt: created}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, Result{ID: "r2", AnalysisID: "a1", CallID: "c1", Position: 0, Status: StatusOK, Payload: &Payload{Findings: []Finding{}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rows, err := repo.List(ctx, "a1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row per pair, got %d", len(rows))
	}
	if rows[0].Status != StatusOK || rows[0].ID != "r1" || !rows[0].CreatedAt.Equal(created) {
		t.Fatalf("expected replaced row keeping identity, got %+v", rows[0])
	}
}

func TestMemoryRepoListOrdersByPosition(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for _, r := range []Result{
		{AnalysisID: "a1", CallID: "c3", Position: 2},
		{AnalysisID: "a1", CallID: "c1", Position: 0},
		{AnalysisID: "a1", CallID: "c2", Position: 1},
		{AnalysisID: "other", CallID: "c9", Position: 0},
	} {
		if err := repo.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	rows, _ := repo.List(ctx, "a1")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if rows[i].CallID != want {
			t.Fatalf("row %d = %s, want %s", i, rows[i].CallID, want)
		}
	}
}
