package transcripts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context, callID string) (Transcript, error) {
	const query = `
SELECT call_id, full_text, segments, speaker_count, speaker_roles, engine, updated_at
FROM transcripts
WHERE call_id = $1`

	var (
		t        Transcript
		segments []byte
		roles    []byte
	)
	err := r.DB.QueryRowContext(ctx, query, callID).Scan(
		&t.CallID,
		&t.Text,
		&segments,
		&t.SpeakerCount,
		&roles,
		&t.Engine,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, ErrNotFound
	}
	if err != nil {
		return Transcript{}, err
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &t.Segments); err != nil {
			return Transcript{}, fmt.Errorf("decode segments: %w", err)
		}
	}
	if len(roles) > 0 && string(roles) != "null" {
		if err := json.Unmarshal(roles, &t.SpeakerRoles); err != nil {
			return Transcript{}, fmt.Errorf("decode speaker roles: %w", err)
		}
	}
	return t, nil
}

// Put inserts or overwrites the transcript of a call.
func (r *PGRepo) Put(ctx context.Context, t Transcript) error {
	const query = `
INSERT INTO transcripts (call_id, full_text, segments, speaker_count, speaker_roles, engine, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (call_id) DO UPDATE SET
    full_text = EXCLUDED.full_text,
    segments = EXCLUDED.segments,
    speaker_count = EXCLUDED.speaker_count,
    speaker_roles = EXCLUDED.speaker_roles,
    engine = EXCLUDED.engine,
    updated_at = EXCLUDED.updated_at`

	segs := t.Segments
	if segs == nil {
		segs = []Segment{}
	}
	segments, err := json.Marshal(segs)
	if err != nil {
		return err
	}
	var roles any
	if len(t.SpeakerRoles) > 0 {
		raw, err := json.Marshal(t.SpeakerRoles)
		if err != nil {
			return err
		}
		roles = string(raw)
	}
	_, err = r.DB.ExecContext(ctx, query,
		t.CallID,
		t.Text,
		string(segments),
		t.SpeakerCount,
		roles,
		t.Engine,
		t.UpdatedAt,
	)
	return err
}

func (r *PGRepo) Delete(ctx context.Context, callID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM transcripts WHERE call_id = $1`, callID)
	return err
}
