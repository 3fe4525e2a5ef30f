// Package diarize transcribes calls through an HTTP diarization service.
//
// The service accepts an upload at POST /v1/jobs and returns {"job_id"}. The job
// is polled at GET /v1/jobs/{id} until its status is "done" or "failed".
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/transcripts"
)

// Engine implements transcripts.Engine.
type Engine struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client

	// PollInitial and PollMax bound the delay between status checks.
	PollInitial time.Duration
	PollMax     time.Duration
}

// New constructs an Engine.
func New(baseURL, apiKey, language string) (*Engine, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("DIARIZE_BASE_URL is required for diarize transcription")
	}
	return &Engine{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		language:    strings.TrimSpace(language),
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		PollInitial: time.Second,
		PollMax:     15 * time.Second,
	}, nil
}

func (e *Engine) Name() string { return "diarize" }

type submitResponse struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Text         string                `json:"text"`
		Segments     []transcripts.Segment `json:"segments"`
		SpeakerCount int                   `json:"speaker_count"`
		SpeakerRoles map[string]string     `json:"speaker_roles"`
		DurationSec  *float64              `json:"duration_sec"`
	} `json:"result"`
}

var errJobPending = errors.New("diarization job pending")

// Transcribe submits the audio once, then polls the job with exponential backoff
// until it finishes or ctx is done.
func (e *Engine) Transcribe(ctx context.Context, audio transcripts.Audio) (transcripts.EngineResult, error) {
	jobID, err := e.submit(ctx, audio)
	if err != nil {
		return transcripts.EngineResult{}, err
	}
	telemetry.Debug("diarize.job.submitted", map[string]any{"call_id": audio.CallID, "job_id": jobID})

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.PollInitial
	bo.MaxInterval = e.PollMax
	// The caller's context carries the deadline.
	bo.MaxElapsedTime = 0

	var job jobResponse
	op := func() error {
		got, err := e.status(ctx, jobID)
		if err != nil {
			return err
		}
		switch strings.ToLower(got.Status) {
		case "done", "completed", "success":
			job = got
			return nil
		case "failed", "error":
			msg := got.Error
			if msg == "" {
				msg = "unknown error"
			}
			return backoff.Permanent(fmt.Errorf("diarization job %s failed: %s", jobID, msg))
		default:
			return errJobPending
		}
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if errors.Is(err, errJobPending) && ctx.Err() != nil {
			return transcripts.EngineResult{}, fmt.Errorf("diarization job %s: %w", jobID, ctx.Err())
		}
		return transcripts.EngineResult{}, err
	}
	if job.Result == nil {
		return transcripts.EngineResult{}, fmt.Errorf("diarization job %s returned no result", jobID)
	}
	return transcripts.EngineResult{
		Text:         job.Result.Text,
		Segments:     job.Result.Segments,
		SpeakerCount: job.Result.SpeakerCount,
		SpeakerRoles: job.Result.SpeakerRoles,
		DurationSec:  job.Result.DurationSec,
	}, nil
}

func (e *Engine) submit(ctx context.Context, audio transcripts.Audio) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", audio.Filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio.Body); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if e.language != "" {
		_ = w.WriteField("language", e.language)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/jobs", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var out submitResponse
	if err := e.doJSON(req, &out); err != nil {
		return "", fmt.Errorf("diarization submit: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("diarization submit: missing job_id")
	}
	return out.JobID, nil
}

// status fetches one job snapshot. Client errors are permanent; transport and 5xx errors are retried.
func (e *Engine) status(ctx context.Context, jobID string) (jobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return jobResponse{}, backoff.Permanent(err)
	}
	var out jobResponse
	if err := e.doJSON(req, &out); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			return jobResponse{}, backoff.Permanent(err)
		}
		return jobResponse{}, err
	}
	return out, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.code, e.body)
}

func (e *Engine) doJSON(req *http.Request, target any) error {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ transcripts.Engine = (*Engine)(nil)
