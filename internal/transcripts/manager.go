package transcripts

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-analytics-backend/internal/calls"
	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/storage/object"
	"call-analytics-backend/internal/shared/telemetry"
)

const defaultTimeout = 10 * time.Minute

// Manager makes sure calls have a transcript. Transcription of one call is
// serialised; different calls transcribe in parallel.
type Manager struct {
	Calls   calls.Repo
	Repo    Repo
	Engine  Engine
	Store   object.ObjectStore
	Roles   RoleAssigner
	Timeout time.Duration

	locks keyedMutex
}

// Get returns the stored transcript of a call.
func (m *Manager) Get(ctx context.Context, callID string) (Transcript, error) {
	return m.Repo.Get(ctx, callID)
}

// Delete drops the stored transcript of a call.
func (m *Manager) Delete(ctx context.Context, callID string) error {
	unlock := m.locks.Lock(callID)
	defer unlock()
	return m.Repo.Delete(ctx, callID)
}

// EnsureTranscript returns the cached transcript unless force is set or none
// exists, in which case the engine is called exactly once. Failures come back as
// *TranscriptionError and leave any previous transcript in place.
func (m *Manager) EnsureTranscript(ctx context.Context, callID string, force bool) (Transcript, error) {
	unlock := m.locks.Lock(callID)
	defer unlock()

	call, err := m.Calls.GetByID(ctx, callID)
	if err != nil {
		return Transcript{}, &TranscriptionError{CallID: callID, Err: err}
	}

	if !force && call.HasTranscript {
		t, err := m.Repo.Get(ctx, callID)
		switch {
		case err == nil:
			metrics.IncTranscriptCache("hit")
			telemetry.Debug("transcript.cache_hit", map[string]any{"call_id": callID})
			return t, nil
		case !errors.Is(err, ErrNotFound):
			return Transcript{}, &TranscriptionError{CallID: callID, Err: err}
		}
		// Flag set but row missing: transcribe again.
	}
	if force {
		metrics.IncTranscriptCache("forced")
	} else {
		metrics.IncTranscriptCache("miss")
	}

	return m.transcribe(ctx, call)
}

func (m *Manager) transcribe(ctx context.Context, call calls.Call) (Transcript, error) {
	if err := m.Calls.SetStatus(ctx, call.ID, calls.StatusProcessing); err != nil {
		return Transcript{}, &TranscriptionError{CallID: call.ID, Err: err}
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	engineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := m.Store.Open(engineCtx, call.StorageKey)
	if err != nil {
		return Transcript{}, m.fail(ctx, call.ID, err)
	}
	start := time.Now()
	res, err := m.Engine.Transcribe(engineCtx, Audio{
		CallID:   call.ID,
		Filename: call.Filename,
		MimeType: call.MimeType,
		Body:     body,
	})
	body.Close()
	metrics.ObserveExternalCall("transcription", err, time.Since(start))
	if err != nil {
		return Transcript{}, m.fail(ctx, call.ID, err)
	}

	segments := NormalizeSegments(res.Segments)
	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = joinText(segments)
	}
	if text == "" && len(segments) == 0 {
		return Transcript{}, m.fail(ctx, call.ID, ErrEmptyTranscription)
	}

	roles := res.SpeakerRoles
	if len(roles) == 0 && m.Roles != nil {
		roles = m.Roles.Assign(ctx, segments)
	}
	for i := range segments {
		if role, ok := roles[segments[i].Speaker]; ok {
			segments[i].Role = role
		}
	}
	speakerCount := res.SpeakerCount
	if speakerCount <= 0 {
		speakerCount = len(Speakers(segments))
	}

	now := time.Now().UTC()
	t := Transcript{
		CallID:       call.ID,
		Text:         text,
		Segments:     segments,
		SpeakerCount: speakerCount,
		SpeakerRoles: roles,
		Engine:       m.Engine.Name(),
		UpdatedAt:    now,
	}
	if err := m.Repo.Put(ctx, t); err != nil {
		return Transcript{}, m.fail(ctx, call.ID, err)
	}
	if err := m.Calls.MarkTranscribed(ctx, call.ID, now, res.DurationSec); err != nil {
		return Transcript{}, m.fail(ctx, call.ID, err)
	}

	telemetry.Info("transcript.completed", map[string]any{
		"call_id":       call.ID,
		"engine":        t.Engine,
		"segments":      len(segments),
		"speaker_count": speakerCount,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
	return t, nil
}

func (m *Manager) fail(ctx context.Context, callID string, cause error) error {
	// The request context may already be done; the status must still be written.
	if err := m.Calls.SetStatus(context.WithoutCancel(ctx), callID, calls.StatusError); err != nil {
		telemetry.Error("transcript.status_update_failed", map[string]any{
			"call_id": callID,
			"error":   err.Error(),
		})
	}
	telemetry.Warn("transcript.failed", map[string]any{
		"call_id": callID,
		"error":   cause.Error(),
	})
	return &TranscriptionError{CallID: callID, Err: cause}
}
