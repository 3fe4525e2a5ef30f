package transcripts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"call-analytics-backend/internal/llm"
	"call-analytics-backend/internal/shared/telemetry"
)

const (
	RoleOperator   = "operator"
	RoleClient     = "client"
	RoleSupervisor = "supervisor"
	RoleOther      = "other"
)

const (
	roleSampleTurns = 10
	roleSampleRunes = 300
)

// RoleAssigner maps speaker labels to conversational roles. It never fails;
// implementations fall back to FallbackRoles.
type RoleAssigner interface {
	Assign(ctx context.Context, segs []Segment) map[string]string
}

// LLMRoleAssigner asks the text-analysis model which speaker is which.
type LLMRoleAssigner struct {
	LLM     llm.Client
	Timeout time.Duration
}

func (a *LLMRoleAssigner) Assign(ctx context.Context, segs []Segment) map[string]string {
	speakers := Speakers(segs)
	if len(speakers) == 0 {
		return nil
	}
	fallback := FallbackRoles(speakers)
	if a.LLM == nil {
		return fallback
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	raw, err := a.LLM.Query(ctx, buildRolePrompt(speakers, segs))
	if err != nil {
		telemetry.Warn("transcript.roles.llm_failed", map[string]any{"error": err.Error()})
		return fallback
	}
	var parsed struct {
		SpeakerRoles map[string]string `json:"speaker_roles"`
	}
	if err := json.Unmarshal([]byte(extractObject(raw)), &parsed); err != nil || len(parsed.SpeakerRoles) == 0 {
		telemetry.Warn("transcript.roles.unparsable", map[string]any{"response_bytes": len(raw)})
		return fallback
	}

	out := make(map[string]string, len(speakers))
	for _, sp := range speakers {
		role, ok := parsed.SpeakerRoles[sp]
		if !ok {
			out[sp] = fallback[sp]
			continue
		}
		out[sp] = normalizeRole(role)
	}
	return out
}

// FallbackRoles assigns operator to the first speaker, client to the second and
// "speaker N" to the rest.
func FallbackRoles(speakers []string) map[string]string {
	out := make(map[string]string, len(speakers))
	for i, sp := range speakers {
		switch i {
		case 0:
			out[sp] = RoleOperator
		case 1:
			out[sp] = RoleClient
		default:
			out[sp] = fmt.Sprintf("speaker %d", i+1)
		}
	}
	return out
}

func normalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "operator", "agent", "employee", "manager":
		return RoleOperator
	case "client", "customer", "caller":
		return RoleClient
	case "supervisor":
		return RoleSupervisor
	default:
		return RoleOther
	}
}

func buildRolePrompt(speakers []string, segs []Segment) string {
	samples := make(map[string][]string, len(speakers))
	for _, s := range segs {
		if len(samples[s.Speaker]) < roleSampleTurns {
			samples[s.Speaker] = append(samples[s.Speaker], s.Text)
		}
	}

	var b strings.Builder
	b.WriteString("You are reviewing a recorded contact-centre call. Decide the role of every speaker.\n\n")
	b.WriteString("Roles:\n- operator: company employee answering or making the call\n- client: the customer\n- supervisor: a manager who joins the call\n- other: anyone else\n\n")
	b.WriteString("Sample utterances:\n")
	for _, sp := range speakers {
		sample := strings.Join(samples[sp], " ")
		if r := []rune(sample); len(r) > roleSampleRunes {
			sample = string(r[:roleSampleRunes])
		}
		fmt.Fprintf(&b, "%s: %q\n", sp, sample)
	}
	b.WriteString("\nRespond with JSON only: {\"speaker_roles\": {\"<speaker>\": \"<role>\"}, \"reasoning\": \"<one sentence>\"}")
	return b.String()
}

func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return raw
	}
	return raw[start : end+1]
}
