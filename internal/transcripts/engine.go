package transcripts

import (
	"context"
	"io"
)

// Audio is the input handed to a transcription engine.
type Audio struct {
	CallID   string
	Filename string
	MimeType string
	Body     io.Reader
}

// EngineResult is what an engine returns for one recording.
type EngineResult struct {
	Text         string
	Segments     []Segment
	SpeakerCount int
	SpeakerRoles map[string]string
	DurationSec  *float64
}

// Engine turns audio into speaker-labelled text.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audio Audio) (EngineResult, error)
}

// NoopEngine is used when TRANSCRIBE_PROVIDER is none. Every call fails.
type NoopEngine struct{}

func (NoopEngine) Name() string { return "none" }

func (NoopEngine) Transcribe(ctx context.Context, audio Audio) (EngineResult, error) {
	return EngineResult{}, ErrEngineNotConfigured
}
