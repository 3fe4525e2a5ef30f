package executor

import (
	"fmt"
	"sort"
	"strings"

	"call-analytics-backend/internal/transcripts"
)

const responseContract = `Respond with a single JSON object and nothing else:
{
  "summary": "<two or three sentences answering the query>",
  "findings": [{"criterion": "<what was checked>", "value": <answer: string, number or boolean>, "evidence": ["<short quote>"]}],
  "incidents": [{"type": "<short label>", "severity": "high|medium|low|none", "start_time": <seconds>, "end_time": <seconds>, "description": "<what happened>", "quote": "<exact words>"}]
}
Use an empty incidents array when nothing relevant happened. Quote only words present in the transcript.`

// RenderPrompt builds the prompt for one query against one transcript.
func RenderPrompt(queryText string, t transcripts.Transcript) string {
	var b strings.Builder
	b.WriteString("You are analysing a recorded phone call.\n\n")
	b.WriteString("Query:\n")
	b.WriteString(strings.TrimSpace(queryText))
	b.WriteString("\n\n")

	if len(t.SpeakerRoles) > 0 {
		b.WriteString("Speakers:\n")
		speakers := make([]string, 0, len(t.SpeakerRoles))
		for sp := range t.SpeakerRoles {
			speakers = append(speakers, sp)
		}
		sort.Strings(speakers)
		for _, sp := range speakers {
			fmt.Fprintf(&b, "- %s: %s\n", sp, t.SpeakerRoles[sp])
		}
		b.WriteString("\n")
	}

	b.WriteString("Transcript:\n")
	if len(t.Segments) == 0 {
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	for _, s := range t.Segments {
		label := s.Speaker
		if s.Role != "" {
			label = fmt.Sprintf("%s (%s)", s.Speaker, s.Role)
		}
		fmt.Fprintf(&b, "[%s-%s] %s: %s\n", clock(s.Start), clock(s.End), label, s.Text)
	}
	b.WriteString("\n")
	b.WriteString(responseContract)
	return b.String()
}

func clock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
