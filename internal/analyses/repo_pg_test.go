package analyses

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var analysisColumnNames = []string{
	"id", "name", "query_text", "template_id", "call_ids", "force_retranscribe", "status", "progress",
	"total_calls", "processed_calls", "error_count", "error_message",
	"created_at", "started_at", "completed_at", "heartbeat_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateEncodesCallIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO analyses`)).
		WithArgs("a-1", "Sweep", "q", nil, `["c-1","c-2"]`, false, StatusPending, 0, 2, 0, 0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), Analysis{
		ID: "a-1", Name: "Sweep", QueryText: "q", CallIDs: []string{"c-1", "c-2"},
		Status: StatusPending, TotalCalls: 2, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoRecordCallOutcomeReturnsCounters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(analysisColumnNames).
		AddRow("a-1", "Sweep", "q", nil, []byte(`["c-1","c-2","c-3"]`), false, StatusRunning, 33,
			3, 1, 1, nil, now, now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND status = 'running' AND processed_calls < total_calls`)).
		WithArgs("a-1", 1, now).
		WillReturnRows(rows)

	a, err := repo.RecordCallOutcome(context.Background(), "a-1", true, now)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.ProcessedCalls != 1 || a.ErrorCount != 1 || a.Progress != 33 || len(a.CallIDs) != 3 {
		t.Fatalf("unexpected analysis %+v", a)
	}
	if a.HeartbeatAt == nil || a.CompletedAt != nil {
		t.Fatalf("unexpected timestamps %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoRecordCallOutcomeExhausted(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND status = 'running' AND processed_calls < total_calls`)).
		WithArgs("a-1", 0, now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE id = $1`)).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisColumnNames).
			AddRow("a-1", "Sweep", "q", nil, []byte(`["c-1"]`), false, StatusRunning, 100,
				1, 1, 0, nil, now, now, nil, now, now))

	if _, err := repo.RecordCallOutcome(context.Background(), "a-1", false, now); !errors.Is(err, ErrCountersExhausted) {
		t.Fatalf("expected ErrCountersExhausted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoRecordCallOutcomeRejectsTerminalAnalysis(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND status = 'running' AND processed_calls < total_calls`)).
		WithArgs("a-1", 1, now).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE id = $1`)).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisColumnNames).
			AddRow("a-1", "Sweep", "q", nil, []byte(`["c-1","c-2"]`), false, StatusError, 50,
				2, 1, 0, "abandoned", now, now, now, now, now))

	if _, err := repo.RecordCallOutcome(context.Background(), "a-1", true, now); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoMarkRunningRejectsNonPending(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status = 'pending'`)).
		WithArgs("a-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE id = $1`)).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisColumnNames).
			AddRow("a-1", "Sweep", "q", nil, []byte(`["c-1"]`), false, StatusCompleted, 100,
				1, 1, 0, nil, now, now, now, now, now))

	if err := repo.MarkRunning(context.Background(), "a-1", now); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status = 'pending'`)).
		WithArgs("a-404", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM analyses WHERE id = $1`)).
		WithArgs("a-404").
		WillReturnError(sql.ErrNoRows)

	if err := repo.MarkRunning(context.Background(), "a-404", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoMarkStaleGuardsOnHeartbeat(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	cutoffs := StaleCutoffs{Running: now.Add(-10 * time.Minute), Pending: now.Add(-24 * time.Hour)}
	guard := regexp.QuoteMeta(`(status = 'running' AND COALESCE(heartbeat_at, created_at) < $2)
  OR (status = 'pending' AND COALESCE(heartbeat_at, created_at) < $3)`)

	mock.ExpectExec(guard).
		WithArgs("a-1", cutoffs.Running, cutoffs.Pending, "abandoned", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(guard).
		WithArgs("a-2", cutoffs.Running, cutoffs.Pending, "abandoned", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkStale(context.Background(), "a-1", cutoffs, "abandoned", now)
	if err != nil || !ok {
		t.Fatalf("expected a-1 marked, got %v, %v", ok, err)
	}
	ok, err = repo.MarkStale(context.Background(), "a-2", cutoffs, "abandoned", now)
	if err != nil || ok {
		t.Fatalf("expected a-2 untouched, got %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
