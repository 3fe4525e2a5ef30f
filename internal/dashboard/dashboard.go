// Package dashboard derives incident statistics from stored analysis results.
package dashboard

import (
	"sort"
	"strings"

	"call-analytics-backend/internal/results"
)

// Severity buckets. Every incident lands in exactly one.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
	SeverityNone   = "none"
	SeverityOther  = "other"
)

var severityRank = map[string]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
	SeverityNone:   3,
	SeverityOther:  4,
}

// Stats summarises the incidents of one analysis.
type Stats struct {
	TotalFiles           int            `json:"total_files"`
	FilesWithIncidents   int            `json:"files_with_incidents"`
	TotalIncidents       int            `json:"total_incidents"`
	IncidentsByType      map[string]int `json:"incidents_by_type"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
}

// Incident is a dashboard row: one incident plus the call it came from.
type Incident struct {
	CallID      string   `json:"call_id"`
	Filename    string   `json:"filename"`
	Type        string   `json:"type"`
	Severity    string   `json:"severity"`
	Bucket      string   `json:"severity_bucket"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	Description string   `json:"description"`
	Quote       string   `json:"quote"`

	position int
}

// Dashboard is the response for one analysis.
type Dashboard struct {
	AnalysisName string     `json:"analysis_name"`
	Stats        Stats      `json:"stats"`
	Incidents    []Incident `json:"incidents"`
}

// Bucket maps a free-form severity onto one of the fixed buckets.
func Bucket(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "high", "critical", "severe":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low", "minor":
		return SeverityLow
	case "", "none", "no":
		return SeverityNone
	default:
		return SeverityOther
	}
}

// Build aggregates rows (as returned by results.Repo.List). It does not mutate rows.
func Build(analysisName string, rows []results.Result) Dashboard {
	stats := Stats{
		TotalFiles:      len(rows),
		IncidentsByType: map[string]int{},
		SeverityDistribution: map[string]int{
			SeverityHigh:   0,
			SeverityMedium: 0,
			SeverityLow:    0,
			SeverityNone:   0,
			SeverityOther:  0,
		},
	}
	incidents := []Incident{}

	for _, row := range rows {
		if !row.HasIncidents() {
			continue
		}
		stats.FilesWithIncidents++
		for _, inc := range row.Payload.Incidents {
			bucket := Bucket(inc.Severity)
			stats.TotalIncidents++
			stats.IncidentsByType[inc.Type]++
			stats.SeverityDistribution[bucket]++
			incidents = append(incidents, Incident{
				CallID:      row.CallID,
				Filename:    row.Filename,
				Type:        inc.Type,
				Severity:    inc.Severity,
				Bucket:      bucket,
				StartTime:   inc.StartTime,
				EndTime:     inc.EndTime,
				Description: inc.Description,
				Quote:       inc.Quote,
				position:    row.Position,
			})
		}
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		a, b := incidents[i], incidents[j]
		if ra, rb := severityRank[a.Bucket], severityRank[b.Bucket]; ra != rb {
			return ra < rb
		}
		if a.position != b.position {
			return a.position < b.position
		}
		return startOf(a) < startOf(b)
	})

	return Dashboard{AnalysisName: analysisName, Stats: stats, Incidents: incidents}
}

func startOf(inc Incident) float64 {
	if inc.StartTime == nil {
		return -1
	}
	return *inc.StartTime
}
