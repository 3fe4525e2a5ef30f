package transcripts

import "time"

// TranscriptResponse is the JSON shape of a transcript.
type TranscriptResponse struct {
	CallID       string            `json:"call_id"`
	Text         string            `json:"text"`
	Segments     []Segment         `json:"segments"`
	SpeakerCount int               `json:"speaker_count"`
	SpeakerRoles map[string]string `json:"speaker_roles,omitempty"`
	Engine       string            `json:"engine"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ToResponse maps a Transcript onto its JSON shape.
func ToResponse(t Transcript) TranscriptResponse {
	segs := t.Segments
	if segs == nil {
		segs = []Segment{}
	}
	return TranscriptResponse{
		CallID:       t.CallID,
		Text:         t.Text,
		Segments:     segs,
		SpeakerCount: t.SpeakerCount,
		SpeakerRoles: t.SpeakerRoles,
		Engine:       t.Engine,
		UpdatedAt:    t.UpdatedAt,
	}
}
