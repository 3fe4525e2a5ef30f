package transcripts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a call has no stored transcript.
	ErrNotFound = errors.New("transcript not found")
	// ErrEmptyTranscription is returned when the engine produced neither text nor segments.
	ErrEmptyTranscription = errors.New("empty transcription")
	// ErrEngineNotConfigured is returned by NoopEngine.
	ErrEngineNotConfigured = errors.New("transcription engine not configured")
)

// TranscriptionError reports a failed transcription of one call.
type TranscriptionError struct {
	CallID string
	Err    error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed for call %s: %v", e.CallID, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}
