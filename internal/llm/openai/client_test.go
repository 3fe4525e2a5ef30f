package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestQuerySendsJSONModeRequest(t *testing.T) {
	var payload map[string]any
	var path, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r1","choices":[{"message":{"role":"assistant","content":" {\"summary\":\"ok\"} "}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-4o-mini", server.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Query(context.Background(), "find rude operators")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if out != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %q", out)
	}
	if path != "/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if rf, ok := payload["response_format"].(map[string]any); !ok || rf["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", payload["response_format"])
	}
	if _, ok := payload["temperature"]; !ok {
		t.Fatalf("expected temperature for gpt-4o-mini")
	}
	if msgs, ok := payload["messages"].([]any); !ok || len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", payload["messages"])
	}
}

func TestQueryOmitsTemperatureForGPT5(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-5-mini", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Query(context.Background(), "prompt"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, ok := payload["temperature"]; ok {
		t.Fatalf("expected temperature omitted for gpt-5 models")
	}
}

func TestQuerySurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-4o-mini", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Query(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error with status, got %v", err)
	}
}

func TestQueryTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-4o-mini", server.URL, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Query(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestQueryRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"r2","choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "gpt-4o-mini", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Query(context.Background(), "prompt"); err == nil || !strings.Contains(err.Error(), "missing choices") {
		t.Fatalf("expected missing choices error, got %v", err)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", "", 0); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient("key", " ", "", 0); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
