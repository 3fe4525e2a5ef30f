package results

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportXLSXSheets(t *testing.T) {
	start := 65.0
	rows := []Result{
		{
			CallID: "c1", Position: 0, Filename: "a.wav", Status: StatusOK, Summary: "rude operator",
			Payload: &Payload{
				Findings:  []Finding{{Criterion: "politeness", Value: "low"}},
				Incidents: []Incident{{Type: "rudeness", Severity: "high", StartTime: &start, Description: "raised voice", Quote: "just listen"}},
			},
		},
		{CallID: "c2", Position: 1, Filename: "b.wav", Status: StatusFailed, ErrorMessage: "engine down"},
	}

	data, err := ExportXLSX(rows)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	resultRows, err := f.GetRows(resultsSheet)
	if err != nil {
		t.Fatalf("GetRows results: %v", err)
	}
	if len(resultRows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(resultRows))
	}
	if resultRows[1][2] != "a.wav" || resultRows[1][5] != "politeness: low" {
		t.Fatalf("unexpected first result row %v", resultRows[1])
	}
	if resultRows[2][3] != StatusFailed || resultRows[2][7] != "engine down" {
		t.Fatalf("unexpected failed row %v", resultRows[2])
	}

	incidentRows, err := f.GetRows(incidentsSheet)
	if err != nil {
		t.Fatalf("GetRows incidents: %v", err)
	}
	if len(incidentRows) != 2 {
		t.Fatalf("expected header + 1 incident, got %d", len(incidentRows))
	}
	if incidentRows[1][1] != "rudeness" || incidentRows[1][3] != "65" {
		t.Fatalf("unexpected incident row %v", incidentRows[1])
	}
}
