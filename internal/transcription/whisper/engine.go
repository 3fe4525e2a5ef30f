// Package whisper transcribes calls through the OpenAI audio transcription API.
// Whisper does not diarize: every segment is attributed to a single speaker.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"call-analytics-backend/internal/transcripts"
)

const (
	defaultModel  = "whisper-1"
	singleSpeaker = "SPEAKER_00"
)

// Engine implements transcripts.Engine.
type Engine struct {
	client   openai.Client
	model    string
	language string
}

// New constructs an Engine. baseURL may point at any OpenAI-compatible server.
func New(apiKey, model, language, baseURL string, timeout time.Duration) (*Engine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for whisper transcription")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The transcript manager does not retry; neither does the SDK.
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &Engine{
		client:   openai.NewClient(opts...),
		model:    model,
		language: strings.TrimSpace(language),
	}, nil
}

func (e *Engine) Name() string { return "whisper" }

type verboseTranscription struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio once and maps the verbose JSON response.
func (e *Engine) Transcribe(ctx context.Context, audio transcripts.Audio) (transcripts.EngineResult, error) {
	contentType := audio.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(audio.Body, audio.Filename, contentType),
		Model:          openai.AudioModel(e.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if e.language != "" {
		params.Language = openai.String(e.language)
	}

	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return transcripts.EngineResult{}, fmt.Errorf("whisper transcription: %w", err)
	}
	return parseVerbose(resp.RawJSON(), resp.Text)
}

func parseVerbose(raw, fallbackText string) (transcripts.EngineResult, error) {
	var v verboseTranscription
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return transcripts.EngineResult{}, fmt.Errorf("whisper response parse: %w", err)
		}
	}
	if v.Text == "" {
		v.Text = fallbackText
	}

	res := transcripts.EngineResult{Text: strings.TrimSpace(v.Text)}
	for _, s := range v.Segments {
		res.Segments = append(res.Segments, transcripts.Segment{
			Start:   s.Start,
			End:     s.End,
			Speaker: singleSpeaker,
			Text:    s.Text,
		})
	}
	if len(res.Segments) == 0 && res.Text != "" {
		res.Segments = []transcripts.Segment{{Start: 0, End: v.Duration, Speaker: singleSpeaker, Text: res.Text}}
	}
	if len(res.Segments) > 0 {
		res.SpeakerCount = 1
	}
	if v.Duration > 0 {
		d := v.Duration
		res.DurationSec = &d
	}
	return res, nil
}

var _ transcripts.Engine = (*Engine)(nil)
