package results

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	ok := Result{
		ID: "r1", AnalysisID: "a1", CallID: "c1", Position: 0, Filename: "a.wav",
		Status: StatusOK, Summary: "1 findings, 0 incidents",
		Payload:   &Payload{Findings: []Finding{{Criterion: "greeting", Value: true}}},
		CreatedAt: now, UpdatedAt: now,
	}
	failed := Result{
		ID: "r2", AnalysisID: "a1", CallID: "c2", Position: 1, Filename: "b.wav",
		Status: StatusFailed, ErrorMessage: "transcription failed",
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO analysis_results (.+) ON CONFLICT \\(analysis_id, call_id\\) DO UPDATE").
		WithArgs("r1", "a1", "c1", 0, "a.wav", StatusOK, "1 findings, 0 incidents", `{"findings":[{"criterion":"greeting","value":true}]}`, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs("r2", "a1", "c2", 1, "b.wav", StatusFailed, "", nil, "transcription failed", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), ok); err != nil {
		t.Fatalf("Upsert ok: %v", err)
	}
	if err := repo.Upsert(context.Background(), failed); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	repo := &PGRepo{DB: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "analysis_id", "call_id", "position", "filename", "status", "summary", "json_result", "error_message", "created_at", "updated_at"}).
		AddRow("r1", "a1", "c1", 0, "a.wav", StatusOK, "s", []byte(`{"findings":[],"incidents":[{"type":"rudeness","severity":"high","start_time":12,"end_time":null,"description":"d","quote":"q"}]}`), nil, now, now).
		AddRow("r2", "a1", "c2", 1, "b.wav", StatusFailed, "", nil, "engine down", now, now)
	mock.ExpectQuery("FROM analysis_results").WithArgs("a1").WillReturnRows(rows)

	got, err := repo.List(context.Background(), "a1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if !got[0].HasIncidents() || got[0].Payload.Incidents[0].StartTime == nil || *got[0].Payload.Incidents[0].StartTime != 12 {
		t.Fatalf("unexpected first row payload %+v", got[0].Payload)
	}
	if got[0].Payload.Incidents[0].EndTime != nil {
		t.Fatalf("expected nil end time")
	}
	if got[1].Payload != nil || got[1].ErrorMessage != "engine down" {
		t.Fatalf("unexpected failed row %+v", got[1])
	}
}
