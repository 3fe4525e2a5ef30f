package main

// Run one analysis query against a transcript file and print the parsed result:
//   go run ./cmd/querytest -transcript call.json -template "Aggression analysis"
//   go run ./cmd/querytest -transcript call.txt -query "Was the client satisfied?" -print-prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"call-analytics-backend/internal/executor"
	"call-analytics-backend/internal/llm"
	ollamallm "call-analytics-backend/internal/llm/ollama"
	openaillm "call-analytics-backend/internal/llm/openai"
	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/templates"
	"call-analytics-backend/internal/transcripts"
)

type transcriptFile struct {
	Text         string                `json:"text"`
	Segments     []transcripts.Segment `json:"segments"`
	SpeakerRoles map[string]string     `json:"speaker_roles"`
}

func main() {
	cfg := config.Load()

	transcriptPath := flag.String("transcript", "", "Path to a transcript (.json with text/segments, or plain .txt)")
	query := flag.String("query", "", "Query text")
	templateName := flag.String("template", "", "System template name to take the query from")
	outPath := flag.String("out", "", "Path to write the parsed JSON (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (openai, ollama)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	printPrompt := flag.Bool("print-prompt", false, "Print the rendered prompt and exit")
	flag.Parse()

	if strings.TrimSpace(*transcriptPath) == "" {
		exitErr("transcript path is required")
	}
	t, err := loadTranscript(*transcriptPath)
	if err != nil {
		exitErr(err.Error())
	}

	queryText, err := resolveQuery(*query, *templateName, cfg.TemplatesFile)
	if err != nil {
		exitErr(err.Error())
	}

	if *printPrompt {
		fmt.Println(executor.RenderPrompt(queryText, t))
		return
	}

	client, err := buildClient(cfg, *provider, *model)
	if err != nil {
		exitErr(err.Error())
	}

	exec := &executor.Executor{LLM: client, Timeout: cfg.LLMTimeout}
	start := time.Now()
	out, err := exec.Run(context.Background(), queryText, t)
	var perr *executor.ParseError
	switch {
	case errors.As(err, &perr):
		fmt.Fprintf(os.Stderr, "parse error (%s) after %s\n", perr.Reason, time.Since(start).Round(time.Millisecond))
	case err != nil:
		exitErr(fmt.Sprintf("query: %v", err))
	default:
		fmt.Fprintf(os.Stderr, "ok in %s\n", time.Since(start).Round(time.Millisecond))
	}

	pretty, err := prettyJSON(map[string]any{
		"status":      out.Status,
		"summary":     out.Summary,
		"json_result": out.Payload,
	})
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	_, _ = os.Stdout.Write(pretty)
	_, _ = os.Stdout.Write([]byte("\n"))
}

func loadTranscript(path string) (transcripts.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transcripts.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return transcripts.Transcript{CallID: filepath.Base(path), Text: strings.TrimSpace(string(data))}, nil
	}
	var f transcriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return transcripts.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	segs := transcripts.NormalizeSegments(f.Segments)
	return transcripts.Transcript{
		CallID:       filepath.Base(path),
		Text:         f.Text,
		Segments:     segs,
		SpeakerCount: len(transcripts.Speakers(segs)),
		SpeakerRoles: f.SpeakerRoles,
	}, nil
}

func resolveQuery(query, templateName, templatesFile string) (string, error) {
	if q := strings.TrimSpace(query); q != "" {
		return q, nil
	}
	if strings.TrimSpace(templateName) == "" {
		return "", errors.New("either -query or -template is required")
	}
	seeds, err := templates.LoadSeeds(templatesFile)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if strings.EqualFold(s.Name, templateName) {
			return s.QueryText, nil
		}
		names = append(names, s.Name)
	}
	return "", fmt.Errorf("unknown template %q (have: %s)", templateName, strings.Join(names, ", "))
}

func buildClient(cfg config.Config, provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		if model == "" {
			model = "gpt-4o-mini"
		}
		return openaillm.NewClient(cfg.OpenAIAPIKey, model, cfg.OpenAIBaseURL, cfg.LLMTimeout)
	case "ollama":
		if model == "" {
			model = "llama3.1"
		}
		return ollamallm.NewClient(cfg.OllamaBaseURL, model, cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func prettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
