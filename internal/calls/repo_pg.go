package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const callColumns = `id, filename, storage_key, mime_type, size_bytes, duration_sec, status, has_transcript, transcript_updated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new call.
func (r *PGRepo) Create(ctx context.Context, call Call) error {
	const query = `
INSERT INTO calls (
    id,
    filename,
    storage_key,
    mime_type,
    size_bytes,
    duration_sec,
    status,
    has_transcript,
    transcript_updated_at,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.DB.ExecContext(ctx, query,
		call.ID,
		call.Filename,
		call.StorageKey,
		call.MimeType,
		call.SizeBytes,
		nullFloat(call.DurationSec),
		call.Status,
		call.HasTranscript,
		nullTime(call.TranscriptUpdatedAt),
		call.CreatedAt,
	)
	return err
}

// GetByID returns a call by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`
	call, err := scanCall(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return call, err
}

// GetMany returns the calls that exist among ids.
func (r *PGRepo) GetMany(ctx context.Context, ids []string) (map[string]Call, error) {
	out := make(map[string]Call, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + callColumns + ` FROM calls WHERE id IN (SELECT jsonb_array_elements_text($1::jsonb))`
	rows, err := r.DB.QueryContext(ctx, query, string(payload))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out[call.ID] = call
	}
	return out, rows.Err()
}

// List returns calls newest-first.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Call, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("filename ILIKE $%d", len(args)))
	}
	query := `SELECT ` + callColumns + ` FROM calls`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Call{}
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

// SetStatus updates the status of a call.
func (r *PGRepo) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE calls SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MarkTranscribed records a completed transcription.
func (r *PGRepo) MarkTranscribed(ctx context.Context, id string, at time.Time, durationSec *float64) error {
	const query = `
UPDATE calls
SET status = 'processed',
    has_transcript = TRUE,
    transcript_updated_at = $2,
    duration_sec = COALESCE($3, duration_sec)
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, at, nullFloat(durationSec))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a call; the transcript row goes with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM calls WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanCall(row rowScanner) (Call, error) {
	var (
		call         Call
		duration     sql.NullFloat64
		transcriptAt sql.NullTime
	)
	if err := row.Scan(
		&call.ID,
		&call.Filename,
		&call.StorageKey,
		&call.MimeType,
		&call.SizeBytes,
		&duration,
		&call.Status,
		&call.HasTranscript,
		&transcriptAt,
		&call.CreatedAt,
	); err != nil {
		return Call{}, err
	}
	if duration.Valid {
		d := duration.Float64
		call.DurationSec = &d
	}
	if transcriptAt.Valid {
		t := transcriptAt.Time
		call.TranscriptUpdatedAt = &t
	}
	return call, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
