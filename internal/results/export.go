package results

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet   = "Results"
	incidentsSheet = "Incidents"
)

// ExportXLSX renders the rows of one analysis as a workbook with a Results sheet
// (one row per call) and an Incidents sheet (one row per incident).
func ExportXLSX(rows []Result) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(incidentsSheet); err != nil {
		return nil, err
	}

	if err := writeRow(f, resultsSheet, 1, []any{"Position", "Call ID", "File", "Status", "Summary", "Findings", "Incidents", "Error"}); err != nil {
		return nil, err
	}
	if err := writeRow(f, incidentsSheet, 1, []any{"File", "Type", "Severity", "Start (s)", "End (s)", "Description", "Quote"}); err != nil {
		return nil, err
	}

	incidentRow := 2
	for i, r := range rows {
		findings, incidents := "", 0
		if r.Payload != nil {
			findings = formatFindings(r.Payload.Findings)
			incidents = len(r.Payload.Incidents)
		}
		line := []any{r.Position + 1, r.CallID, r.Filename, r.Status, r.Summary, findings, incidents, r.ErrorMessage}
		if err := writeRow(f, resultsSheet, i+2, line); err != nil {
			return nil, err
		}
		if r.Payload == nil {
			continue
		}
		for _, inc := range r.Payload.Incidents {
			line := []any{r.Filename, inc.Type, inc.Severity, seconds(inc.StartTime), seconds(inc.EndTime), inc.Description, inc.Quote}
			if err := writeRow(f, incidentsSheet, incidentRow, line); err != nil {
				return nil, err
			}
			incidentRow++
		}
	}

	_ = f.SetColWidth(resultsSheet, "E", "F", 60)
	_ = f.SetColWidth(incidentsSheet, "F", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func formatFindings(findings []Finding) string {
	parts := make([]string, 0, len(findings))
	for _, fd := range findings {
		parts = append(parts, fmt.Sprintf("%s: %s", fd.Criterion, formatValue(fd.Value)))
	}
	return strings.Join(parts, "; ")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}

func seconds(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
