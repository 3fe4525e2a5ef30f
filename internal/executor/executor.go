// Package executor runs an analysis query against one transcript.
package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-analytics-backend/internal/llm"
	"call-analytics-backend/internal/results"
	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/transcripts"
)

const (
	defaultTimeout = 3 * time.Minute
	excerptRunes   = 300
	emptyResponse  = "empty model response"
)

// Outcome is the per-call result produced by Run.
type Outcome struct {
	Status  string
	Summary string
	Payload results.Payload
}

// Executor calls the text-analysis engine once per call.
type Executor struct {
	LLM     llm.Client
	Timeout time.Duration
}

// Run renders the query, calls the engine once and parses the answer.
//
// An unreachable engine yields *QueryExecutionError and no outcome. A malformed
// answer yields a usable parse_error Outcome together with *ParseError; callers
// store the outcome and treat it as a soft success.
func (e *Executor) Run(ctx context.Context, queryText string, t transcripts.Transcript) (Outcome, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.LLM.Query(callCtx, RenderPrompt(queryText, t))
	metrics.ObserveExternalCall("llm", err, time.Since(start))
	if err != nil {
		return Outcome{}, &QueryExecutionError{Err: err}
	}

	payload, err := Parse(raw)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			perr = &ParseError{Reason: "unexpected", Err: err}
		}
		return Outcome{
			Status:  results.StatusParseError,
			Summary: excerpt(raw),
			Payload: results.Payload{Findings: []results.Finding{}, ParseError: cleanText(perr.Error())},
		}, perr
	}
	return Outcome{Status: results.StatusOK, Summary: payload.Summary, Payload: payload}, nil
}

func excerpt(raw string) string {
	s := strings.TrimSpace(cleanText(raw))
	if s == "" {
		return emptyResponse
	}
	if r := []rune(s); len(r) > excerptRunes {
		return string(r[:excerptRunes])
	}
	return s
}
