package analyses

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/server/middleware"
)

func setupAnalysisRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	NewHandler(f.svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateAnalysisReturnsAcceptedAndCompletes(t *testing.T) {
	f := newFixture(t, "c-1", "c-2")
	router := setupAnalysisRouter(f)

	resp := doJSON(router, http.MethodPost, "/api/v1/analyses", map[string]any{
		"name":       "Rudeness sweep",
		"query_text": "Was anyone rude?",
		"call_ids":   []string{"c-1", "c-2"},
	})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var created StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || created.Status != StatusPending || created.TotalCalls != 2 {
		t.Fatalf("unexpected create response %+v", created)
	}

	f.svc.Wait()

	resp = doJSON(router, http.MethodGet, "/api/v1/analyses/"+created.ID+"/status", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != StatusCompleted || status.Progress != 100 || status.ProcessedCalls != 2 || status.Stale {
		t.Fatalf("unexpected status %+v", status)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/analyses/"+created.ID, nil)
	var full AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&full); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if full.QueryText != "Was anyone rude?" || len(full.CallIDs) != 2 || full.Name != "Rudeness sweep" {
		t.Fatalf("unexpected analysis %+v", full)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/analyses", nil)
	var list []StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestCreateAnalysisValidationDetails(t *testing.T) {
	f := newFixture(t, "c-1")
	router := setupAnalysisRouter(f)

	resp := doJSON(router, http.MethodPost, "/api/v1/analyses", map[string]any{
		"query_text": "",
		"call_ids":   []string{},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string  `json:"code"`
			Details []Issue `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Error.Code != "validation_error" || len(body.Error.Details) != 2 {
		t.Fatalf("unexpected error body %+v", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestAnalysisRoutesReturnNotFound(t *testing.T) {
	f := newFixture(t)
	router := setupAnalysisRouter(f)

	for _, path := range []string{
		"/api/v1/analyses/missing",
		"/api/v1/analyses/missing/status",
		"/api/v1/analyses/missing/results",
		"/api/v1/analyses/missing/dashboard",
		"/api/v1/analyses/missing/export.xlsx",
	} {
		resp := doJSON(router, http.MethodGet, path, nil)
		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.Code)
		}
	}
}

func TestResultsDashboardAndExport(t *testing.T) {
	f := newFixture(t, "c-1", "c-2")
	f.engine.fail["c-2"] = true
	router := setupAnalysisRouter(f)
	a := f.submitAndWait(t, SubmitInput{Name: "Sweep", QueryText: "q", CallIDs: []string{"c-1", "c-2"}})

	resp := doJSON(router, http.MethodGet, "/api/v1/analyses/"+a.ID+"/results", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var rows []ResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(rows) != 2 || rows[0].CallID != "c-1" || rows[0].JSONResult == nil {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[1].Status != "failed" || rows[1].JSONResult != nil || rows[1].Error == "" {
		t.Fatalf("expected failed row without json_result, got %+v", rows[1])
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/analyses/"+a.ID+"/dashboard", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var dash struct {
		AnalysisName string `json:"analysis_name"`
		Stats        struct {
			TotalFiles         int `json:"total_files"`
			FilesWithIncidents int `json:"files_with_incidents"`
			TotalIncidents     int `json:"total_incidents"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.AnalysisName != "Sweep" || dash.Stats.TotalFiles != 2 || dash.Stats.FilesWithIncidents != 1 || dash.Stats.TotalIncidents != 1 {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	resp = doJSON(router, http.MethodGet, "/api/v1/analyses/"+a.ID+"/export.xlsx", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "analysis-"+a.ID+".xlsx") {
		t.Fatalf("unexpected disposition %q", resp.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected a zip container")
	}
}
