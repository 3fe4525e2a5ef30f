package transcripts

import "time"

// Segment is one speaker turn. Times are seconds from the start of the recording.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Role    string  `json:"role,omitempty"`
	Text    string  `json:"text"`
}

// Transcript is the latest transcription of a call. A new transcription overwrites it.
type Transcript struct {
	CallID       string
	Text         string
	Segments     []Segment
	SpeakerCount int
	SpeakerRoles map[string]string
	Engine       string
	UpdatedAt    time.Time
}

func (t Transcript) clone() Transcript {
	out := t
	out.Segments = append([]Segment(nil), t.Segments...)
	if t.SpeakerRoles != nil {
		out.SpeakerRoles = make(map[string]string, len(t.SpeakerRoles))
		for k, v := range t.SpeakerRoles {
			out.SpeakerRoles[k] = v
		}
	}
	return out
}
