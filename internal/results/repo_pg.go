package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, res Result) error {
	const query = `
INSERT INTO analysis_results (
    id,
    analysis_id,
    call_id,
    position,
    filename,
    status,
    summary,
    json_result,
    error_message,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (analysis_id, call_id) DO UPDATE SET
    position = EXCLUDED.position,
    filename = EXCLUDED.filename,
    status = EXCLUDED.status,
    summary = EXCLUDED.summary,
    json_result = EXCLUDED.json_result,
    error_message = EXCLUDED.error_message,
    updated_at = EXCLUDED.updated_at`

	var payload any
	if res.Payload != nil {
		raw, err := json.Marshal(res.Payload)
		if err != nil {
			return err
		}
		payload = string(raw)
	}
	var errMsg any
	if res.ErrorMessage != "" {
		errMsg = res.ErrorMessage
	}
	_, err := r.DB.ExecContext(ctx, query,
		res.ID,
		res.AnalysisID,
		res.CallID,
		res.Position,
		res.Filename,
		res.Status,
		res.Summary,
		payload,
		errMsg,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

func (r *PGRepo) List(ctx context.Context, analysisID string) ([]Result, error) {
	const query = `
SELECT id, analysis_id, call_id, position, filename, status, summary, json_result, error_message, created_at, updated_at
FROM analysis_results
WHERE analysis_id = $1
ORDER BY position, call_id`

	rows, err := r.DB.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			res     Result
			payload []byte
			errMsg  sql.NullString
		)
		if err := rows.Scan(
			&res.ID,
			&res.AnalysisID,
			&res.CallID,
			&res.Position,
			&res.Filename,
			&res.Status,
			&res.Summary,
			&payload,
			&errMsg,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(payload) > 0 && string(payload) != "null" {
			var p Payload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, fmt.Errorf("decode json_result for call %s: %w", res.CallID, err)
			}
			res.Payload = &p
		}
		res.ErrorMessage = errMsg.String
		out = append(out, res)
	}
	return out, rows.Err()
}
