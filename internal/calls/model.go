package calls

import "time"

const (
	StatusNew        = "new"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusError      = "error"
)

// Call is one uploaded audio recording.
type Call struct {
	ID                  string
	Filename            string
	StorageKey          string
	MimeType            string
	SizeBytes           int64
	DurationSec         *float64
	Status              string
	HasTranscript       bool
	TranscriptUpdatedAt *time.Time
	CreatedAt           time.Time
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}
