package results

import "time"

// Result row statuses.
const (
	StatusOK         = "ok"
	StatusParseError = "parse_error"
	StatusFailed     = "failed"
)

// Finding is one criterion the query asked about.
type Finding struct {
	Criterion string   `json:"criterion"`
	Value     any      `json:"value"`
	Evidence  []string `json:"evidence,omitempty"`
}

// Incident is one flagged event inside a call. Times are seconds from the start of the call.
type Incident struct {
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	Description string   `json:"description"`
	Quote       string   `json:"quote"`
}

// Payload is the structured output stored in json_result.
type Payload struct {
	Summary    string     `json:"summary,omitempty"`
	Findings   []Finding  `json:"findings"`
	Incidents  []Incident `json:"incidents,omitempty"`
	ParseError string     `json:"parse_error,omitempty"`
}

// Result is the outcome of one call inside one analysis. Failed rows carry no payload.
type Result struct {
	ID           string
	AnalysisID   string
	CallID       string
	Position     int
	Filename     string
	Status       string
	Summary      string
	Payload      *Payload
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasIncidents reports whether the row carries at least one incident.
func (r Result) HasIncidents() bool {
	return r.Payload != nil && len(r.Payload.Incidents) > 0
}
