// Package openai implements llm.Client with the OpenAI chat completions API in JSON mode.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"call-analytics-backend/internal/llm"
	"call-analytics-backend/internal/shared/telemetry"
)

const defaultTimeout = 120 * time.Second

type Client struct {
	api   openai.Client
	model string
}

// NewClient builds a client. baseURL may point at any OpenAI-compatible server; empty
// uses api.openai.com. Retries are left to the caller.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &Client{api: openai.NewClient(opts...), model: strings.TrimSpace(model)}, nil
}

// Query sends the prompt once and returns the trimmed message content. Empty content
// is returned as-is; the executor decides how to treat it.
func (c *Client) Query(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.SystemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	// gpt-5 models only accept the default temperature.
	if !isGPT5(c.model) {
		params.Temperature = openai.Float(0)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", describe(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	telemetry.Debug("llm.response", map[string]any{
		"model":             c.model,
		"response_id":       resp.ID,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func describe(err error) error {
	var apiErr *openai.Error
	switch {
	case errors.As(err, &apiErr):
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.RawJSON()
		}
		return fmt.Errorf("openai http status %d: %s (%s)", apiErr.StatusCode, msg, apiErr.Type)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("openai request timeout: %w", err)
	}
	return fmt.Errorf("openai chat: %w", err)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
