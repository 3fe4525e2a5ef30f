package executor

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseValidPayload(t *testing.T) {
	raw := "Here you go:\n```json\n" + `{
  "summary": "Operator was rude once.",
  "findings": [
    {"criterion": "greeting", "value": true, "evidence": ["Good morning"]},
    {"criterion": 7, "value": {"score": 3}},
    "stray string"
  ],
  "incidents": [
    {"type": "rudeness", "severity": " HIGH ", "start_time": "01:05", "end_time": 70.5, "description": "raised voice", "quote": "listen to me"},
    {"severity": "minor", "start_time": "bogus"},
    42
  ]
}` + "\n```"

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Summary != "Operator was rude once." {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
	if len(p.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(p.Findings))
	}
	if p.Findings[0].Value != true || len(p.Findings[0].Evidence) != 1 {
		t.Fatalf("unexpected first finding %+v", p.Findings[0])
	}
	if p.Findings[1].Criterion != "7" {
		t.Fatalf("expected criterion coerced to string, got %q", p.Findings[1].Criterion)
	}
	if len(p.Incidents) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(p.Incidents))
	}
	first := p.Incidents[0]
	if first.Severity != "high" || first.StartTime == nil || *first.StartTime != 65 || *first.EndTime != 70.5 {
		t.Fatalf("unexpected first incident %+v", first)
	}
	second := p.Incidents[1]
	if second.Type != "unknown" || second.StartTime != nil {
		t.Fatalf("unexpected second incident %+v", second)
	}
}

func TestParseSynthesisesSummary(t *testing.T) {
	p, err := Parse(`{"findings":[{"criterion":"a","value":1}],"incidents":[]}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Summary != "1 findings, 0 incidents" {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
}

func TestParseRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: "   "},
		{name: "prose", raw: "I could not find anything."},
		{name: "array", raw: `[{"criterion":"a"}]`},
		{name: "broken json", raw: `{"summary": "x",}`},
		{name: "unrelated object", raw: `{"answer": "yes"}`},
		{name: "findings not array", raw: `{"findings": {"criterion": "a"}}`},
		{name: "incidents not array", raw: `{"summary": "s", "incidents": "none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{in: 12.5, want: 12.5, ok: true},
		{in: "42", want: 42, ok: true},
		{in: "02:30", want: 150, ok: true},
		{in: "1:02:03", want: 3723, ok: true},
		{in: "soon", ok: false},
		{in: -3.0, ok: false},
		{in: nil, ok: false},
		{in: "1:2:3:4", ok: false},
		{in: "inf", ok: false},
		{in: "Infinity", ok: false},
		{in: "-Inf", ok: false},
		{in: "NaN", ok: false},
		{in: "inf:00", ok: false},
		{in: "00:NaN", ok: false},
		{in: "1e308:00:00", ok: false},
	}
	for _, tt := range tests {
		got := parseSeconds(tt.in)
		if !tt.ok {
			if got != nil {
				t.Fatalf("parseSeconds(%v) = %v, want nil", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Fatalf("parseSeconds(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCleansModelText(t *testing.T) {
	raw := `{"summary":"rude\u0000 op` + "\xff" + `",` +
		`"findings":[{"criterion":"tone\u0000","value":{"note\u0000":["a\u0000b"]},"evidence":"x\u0000y"}],` +
		`"incidents":[{"type":"rudeness","quote":"shut\u0000 up","start_time":"inf","end_time":"Infinity"}]}`

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("cleaned payload must encode: %v", err)
	}
	if strings.Contains(string(encoded), `\u0000`) || !utf8.Valid(encoded) {
		t.Fatalf("payload still carries NUL or invalid UTF-8: %s", encoded)
	}
	if p.Summary != "rude op\uFFFD" {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
	if p.Incidents[0].Quote != "shut up" || p.Incidents[0].StartTime != nil || p.Incidents[0].EndTime != nil {
		t.Fatalf("unexpected incident %+v", p.Incidents[0])
	}
	if p.Findings[0].Criterion != "tone" || p.Findings[0].Evidence[0] != "xy" {
		t.Fatalf("unexpected finding %+v", p.Findings[0])
	}
}
