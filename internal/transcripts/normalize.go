package transcripts

import (
	"sort"
	"strings"
)

// NormalizeSegments returns a copy of segs ordered by start time with no overlaps.
// Blank segments are dropped, negative times become zero, an end before its start
// is raised to the start, and a start inside the previous segment is moved to its end.
func NormalizeSegments(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	for i := 1; i < len(out); i++ {
		prevEnd := out[i-1].End
		if out[i].Start < prevEnd {
			out[i].Start = prevEnd
		}
		if out[i].End < out[i].Start {
			out[i].End = out[i].Start
		}
	}
	return out
}

// Speakers returns the distinct speaker labels in order of first appearance.
func Speakers(segs []Segment) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range segs {
		if s.Speaker == "" {
			continue
		}
		if _, ok := seen[s.Speaker]; ok {
			continue
		}
		seen[s.Speaker] = struct{}{}
		out = append(out, s.Speaker)
	}
	return out
}

func joinText(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
