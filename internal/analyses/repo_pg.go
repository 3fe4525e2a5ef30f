package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, name, query_text, template_id, call_ids, force_retranscribe, status, progress,
       total_calls, processed_calls, error_count, error_message,
       created_at, started_at, completed_at, heartbeat_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, name, query_text, template_id, call_ids, force_retranscribe, status, progress,
	total_calls, processed_calls, error_count, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`
	ids := analysis.CallIDs
	if ids == nil {
		ids = []string{}
	}
	callIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode call ids: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.Name,
		analysis.QueryText,
		nullString(analysis.TemplateID),
		string(callIDs),
		analysis.ForceRetranscribe,
		analysis.Status,
		analysis.Progress,
		analysis.TotalCalls,
		analysis.ProcessedCalls,
		analysis.ErrorCount,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, analysisID)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PGRepo) MarkRunning(ctx context.Context, analysisID string, at time.Time) error {
	const query = `
UPDATE analyses
SET status = 'running', started_at = $2, heartbeat_at = $2, updated_at = $2
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, analysisID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, analysisID); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}

func (r *PGRepo) RecordCallOutcome(ctx context.Context, analysisID string, failed bool, at time.Time) (Analysis, error) {
	query := `
UPDATE analyses
SET processed_calls = processed_calls + 1,
    error_count = error_count + $2,
    progress = ROUND(100.0 * (processed_calls + 1) / total_calls),
    heartbeat_at = $3,
    updated_at = $3
WHERE id = $1 AND status = 'running' AND processed_calls < total_calls
RETURNING ` + analysisColumns
	inc := 0
	if failed {
		inc = 1
	}
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID, inc, at))
	if errors.Is(err, sql.ErrNoRows) {
		current, err := r.GetByID(ctx, analysisID)
		if err != nil {
			return Analysis{}, err
		}
		if current.Status != StatusRunning {
			return Analysis{}, ErrNotRunning
		}
		return Analysis{}, ErrCountersExhausted
	}
	return a, err
}

func (r *PGRepo) Heartbeat(ctx context.Context, analysisID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE analyses SET heartbeat_at = $2, updated_at = $2 WHERE id = $1 AND status = 'running'`,
		analysisID, at)
	return err
}

func (r *PGRepo) Finish(ctx context.Context, analysisID, status, errorMessage string, at time.Time) error {
	const query = `
UPDATE analyses
SET status = $2, error_message = $3, completed_at = $4, updated_at = $4
WHERE id = $1 AND status IN ('pending', 'running')`
	_, err := r.DB.ExecContext(ctx, query, analysisID, status, nullString(errorMessage), at)
	return err
}

const staleCondition = `((status = 'running' AND COALESCE(heartbeat_at, created_at) < $%d)
  OR (status = 'pending' AND COALESCE(heartbeat_at, created_at) < $%d))`

func (r *PGRepo) ListStale(ctx context.Context, cutoffs StaleCutoffs) ([]Analysis, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+analysisColumns+` FROM analyses
WHERE `+fmt.Sprintf(staleCondition, 1, 2)+`
ORDER BY created_at`, cutoffs.Running, cutoffs.Pending)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PGRepo) MarkStale(ctx context.Context, analysisID string, cutoffs StaleCutoffs, message string, at time.Time) (bool, error) {
	query := `
UPDATE analyses
SET status = 'error', error_message = $4, completed_at = $5, updated_at = $5
WHERE id = $1 AND ` + fmt.Sprintf(staleCondition, 2, 3)
	res, err := r.DB.ExecContext(ctx, query, analysisID, cutoffs.Running, cutoffs.Pending, message, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func collect(rows *sql.Rows) ([]Analysis, error) {
	defer rows.Close()
	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a            Analysis
		templateID   sql.NullString
		callIDs      []byte
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		heartbeatAt  sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.QueryText, &templateID, &callIDs, &a.ForceRetranscribe, &a.Status, &a.Progress,
		&a.TotalCalls, &a.ProcessedCalls, &a.ErrorCount, &errorMessage,
		&a.CreatedAt, &startedAt, &completedAt, &heartbeatAt, &a.UpdatedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.TemplateID = templateID.String
	a.ErrorMessage = errorMessage.String
	if len(callIDs) > 0 {
		if err := json.Unmarshal(callIDs, &a.CallIDs); err != nil {
			return Analysis{}, fmt.Errorf("decode call ids: %w", err)
		}
	}
	a.StartedAt = timePtr(startedAt)
	a.CompletedAt = timePtr(completedAt)
	a.HeartbeatAt = timePtr(heartbeatAt)
	return a, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
