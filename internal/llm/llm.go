// Package llm is the seam between call analysis and the text models that answer queries.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client sends one rendered prompt and returns the raw text the model produced.
// Implementations do not retry and do not interpret the answer.
type Client interface {
	Query(ctx context.Context, prompt string) (string, error)
}

// SystemPrompt is sent ahead of every prompt by providers that support a system turn.
const SystemPrompt = "You analyse transcripts of recorded phone calls. Answer with a single JSON object and nothing else."

var ErrDisabled = errors.New("no LLM provider configured")

// Disabled fails every query. With it the API still accepts uploads and serves
// transcripts, and analyses record each call as failed.
type Disabled struct {
	Reason string
}

func (d Disabled) Query(context.Context, string) (string, error) {
	if d.Reason == "" {
		return "", ErrDisabled
	}
	return "", fmt.Errorf("%w: %s", ErrDisabled, d.Reason)
}
