package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Info("analysis.status", map[string]any{"analysis_id": "a-1", "status": "running"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "analysis.status" {
		t.Fatalf("expected msg analysis.status, got %v", line["msg"])
	}
	if line["level"] != "info" {
		t.Fatalf("expected level info, got %v", line["level"])
	}
	if line["analysis_id"] != "a-1" {
		t.Fatalf("expected analysis_id field, got %v", line["analysis_id"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts field")
	}
}

func TestConfigureFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Configure("info")
	})

	Configure("info")
	Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed at info, got %q", buf.String())
	}

	Configure("debug")
	Debug("shown", nil)
	if buf.Len() == 0 {
		t.Fatalf("expected debug line after Configure(debug)")
	}
}
