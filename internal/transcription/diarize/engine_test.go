package diarize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"call-analytics-backend/internal/transcripts"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	e, err := New(server.URL, "secret", "ru")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.PollInitial = time.Millisecond
	e.PollMax = 5 * time.Millisecond
	return e
}

func audio() transcripts.Audio {
	return transcripts.Audio{CallID: "c1", Filename: "call.wav", Body: strings.NewReader("RIFF")}
}

func TestTranscribePollsUntilDone(t *testing.T) {
	var polls atomic.Int32
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/jobs":
			if r.FormValue("language") != "ru" {
				t.Errorf("expected language field")
			}
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"job_id":"job-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/jobs/job-1":
			n := polls.Add(1)
			if n == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			if n < 3 {
				_, _ = w.Write([]byte(`{"status":"running"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"done","result":{"text":"hi there","speaker_count":2,"duration_sec":5.5,"segments":[{"start":0,"end":1,"speaker":"SPEAKER_00","text":"hi"},{"start":1,"end":2,"speaker":"SPEAKER_01","text":"there"}]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	res, err := e.Transcribe(context.Background(), audio())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
	if res.SpeakerCount != 2 || len(res.Segments) != 2 || res.Segments[1].Speaker != "SPEAKER_01" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.DurationSec == nil || *res.DurationSec != 5.5 {
		t.Fatalf("expected duration 5.5, got %v", res.DurationSec)
	}
}

func TestTranscribeJobFailedIsPermanent(t *testing.T) {
	var polls atomic.Int32
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"job_id":"job-2"}`))
			return
		}
		polls.Add(1)
		_, _ = w.Write([]byte(`{"status":"failed","error":"corrupt audio"}`))
	})

	_, err := e.Transcribe(context.Background(), audio())
	if err == nil || !strings.Contains(err.Error(), "corrupt audio") {
		t.Fatalf("expected job failure, got %v", err)
	}
	if polls.Load() != 1 {
		t.Fatalf("expected a single poll for a failed job, got %d", polls.Load())
	}
}

func TestTranscribeStopsAtDeadline(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"job_id":"job-3"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := e.Transcribe(ctx, audio())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTranscribeSubmitRejected(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte("too big"))
	})
	_, err := e.Transcribe(context.Background(), audio())
	if err == nil || !strings.Contains(err.Error(), "413") {
		t.Fatalf("expected submit error with status, got %v", err)
	}
}
