package calls

import "time"

// CallResponse is the outward-facing representation of a call.
type CallResponse struct {
	ID                  string     `json:"id"`
	Filename            string     `json:"filename"`
	MimeType            string     `json:"mime_type"`
	SizeBytes           int64      `json:"size_bytes"`
	DurationSec         *float64   `json:"duration_sec"`
	Status              string     `json:"status"`
	HasTranscript       bool       `json:"has_transcript"`
	TranscriptUpdatedAt *time.Time `json:"transcript_updated_at"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ToResponse maps a Call onto its JSON shape.
func ToResponse(call Call) CallResponse {
	return CallResponse{
		ID:                  call.ID,
		Filename:            call.Filename,
		MimeType:            call.MimeType,
		SizeBytes:           call.SizeBytes,
		DurationSec:         call.DurationSec,
		Status:              call.Status,
		HasTranscript:       call.HasTranscript,
		TranscriptUpdatedAt: call.TranscriptUpdatedAt,
		CreatedAt:           call.CreatedAt,
	}
}
