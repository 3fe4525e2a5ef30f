// Package workerproc turns queue payloads into analysis runs and decides what
// the consumer does with each message afterwards.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"call-analytics-backend/internal/analyses"
	"call-analytics-backend/internal/queue"
	"call-analytics-backend/internal/shared/telemetry"
)

// Verdict is the consumer action for a handled message.
type Verdict int

const (
	// Ack deletes the message: the analysis ran or no longer needs to.
	Ack Verdict = iota
	// Retry leaves the message for redelivery after the visibility timeout.
	Retry
	// Drop deletes a message that can never be processed.
	Drop
)

func (v Verdict) String() string {
	switch v {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

var (
	ErrEmptyBody          = errors.New("empty message body")
	ErrMissingAnalysisID  = errors.New("missing analysis id")
	ErrUnsupportedVersion = errors.New("unsupported message version")
)

// Job is a decoded analysis message plus a digest of the raw body for logs.
type Job struct {
	queue.Message
	BodyLen    int
	BodySHA256 string
}

// Processor runs one analysis to a terminal state.
type Processor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Decode parses a queue payload. Messages without a version predate versioning
// and are read as version 1.
func Decode(body string) (Job, error) {
	job := Job{BodyLen: len(body)}
	if strings.TrimSpace(body) == "" {
		return job, ErrEmptyBody
	}
	sum := sha256.Sum256([]byte(body))
	job.BodySHA256 = hex.EncodeToString(sum[:])

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return job, fmt.Errorf("decode message: %w", err)
	}
	job.Message = msg
	if job.Version == 0 {
		job.Version = queue.MessageVersion
	}
	if job.Version > queue.MessageVersion {
		return job, fmt.Errorf("%w: %d", ErrUnsupportedVersion, job.Version)
	}
	job.AnalysisID = strings.TrimSpace(job.AnalysisID)
	if job.AnalysisID == "" {
		return job, ErrMissingAnalysisID
	}
	return job, nil
}

// Handle decodes body and runs the analysis it names.
//
// Undecodable messages and analyses that no longer exist are dropped. Any other
// processing error is retried; ProcessAnalysis skips analyses that are already
// terminal or running, so redelivery never repeats work.
func Handle(ctx context.Context, processor Processor, body string) (Job, Verdict, error) {
	job, err := Decode(body)
	if err != nil {
		return job, Drop, err
	}
	if processor == nil {
		return job, Retry, errors.New("analysis processor not configured")
	}

	err = processor.ProcessAnalysis(telemetry.WithRequestID(ctx, job.RequestID), job.AnalysisID)
	switch {
	case err == nil:
		return job, Ack, nil
	case errors.Is(err, analyses.ErrNotFound):
		return job, Drop, fmt.Errorf("analysis %s: %w", job.AnalysisID, err)
	default:
		return job, Retry, fmt.Errorf("process analysis %s: %w", job.AnalysisID, err)
	}
}
