package executor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"call-analytics-backend/internal/results"
)

// Parse decodes a model response into a Payload. Prose and code fences around the
// JSON object are ignored. The object must contain at least one of summary,
// findings or incidents, and findings/incidents must be arrays when present.
func Parse(raw string) (results.Payload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return results.Payload{}, &ParseError{Reason: "empty model response"}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return results.Payload{}, &ParseError{Reason: "no JSON object in response"}
	}

	var top map[string]any
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &top); err != nil {
		return results.Payload{}, &ParseError{Reason: "invalid JSON", Err: err}
	}

	summaryRaw, hasSummary := top["summary"]
	findingsRaw, hasFindings := top["findings"]
	incidentsRaw, hasIncidents := top["incidents"]
	if !hasSummary && !hasFindings && !hasIncidents {
		return results.Payload{}, &ParseError{Reason: "missing summary, findings and incidents"}
	}

	payload := results.Payload{
		Summary:  toString(summaryRaw),
		Findings: []results.Finding{},
	}
	if hasFindings && findingsRaw != nil {
		list, ok := findingsRaw.([]any)
		if !ok {
			return results.Payload{}, &ParseError{Reason: "findings is not an array"}
		}
		payload.Findings = parseFindings(list)
	}
	if hasIncidents && incidentsRaw != nil {
		list, ok := incidentsRaw.([]any)
		if !ok {
			return results.Payload{}, &ParseError{Reason: "incidents is not an array"}
		}
		payload.Incidents = parseIncidents(list)
	}
	if payload.Summary == "" {
		payload.Summary = fmt.Sprintf("%d findings, %d incidents", len(payload.Findings), len(payload.Incidents))
	}
	return payload, nil
}

func parseFindings(list []any) []results.Finding {
	out := make([]results.Finding, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, results.Finding{
			Criterion: toString(m["criterion"]),
			Value:     cleanValue(m["value"]),
			Evidence:  toStrings(m["evidence"]),
		})
	}
	return out
}

func parseIncidents(list []any) []results.Incident {
	out := make([]results.Incident, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ := toString(m["type"])
		if typ == "" {
			typ = "unknown"
		}
		out = append(out, results.Incident{
			Type:        typ,
			Severity:    strings.ToLower(toString(m["severity"])),
			StartTime:   parseSeconds(m["start_time"]),
			EndTime:     parseSeconds(m["end_time"]),
			Description: toString(m["description"]),
			Quote:       toString(m["quote"]),
		})
	}
	return out
}

// parseSeconds accepts a number, a numeric string, "mm:ss" or "hh:mm:ss".
// Negative and non-finite values ("inf", "NaN") are dropped.
func parseSeconds(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return seconds(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(f)
		}
		parts := strings.Split(s, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil
		}
		total := 0.0
		for _, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || seconds(n) == nil {
				return nil
			}
			total = total*60 + n
		}
		return seconds(total)
	default:
		return nil
	}
}

func seconds(f float64) *float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// cleanText makes model text storable: Postgres rejects NUL in text and jsonb,
// and invalid UTF-8 anywhere.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// cleanValue applies cleanText to every string inside a decoded JSON value.
func cleanValue(v any) any {
	switch t := v.(type) {
	case string:
		return cleanText(t)
	case []any:
		for i := range t {
			t[i] = cleanValue(t[i])
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[cleanText(k)] = cleanValue(item)
		}
		return out
	}
	return v
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(cleanText(t))
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(cleanValue(t))
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		if s := toString(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
