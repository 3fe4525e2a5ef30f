package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/telemetry"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { c.Set("requestId", "req-1") }, h)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error
}

func TestInvalidEnvelope(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Invalid(c, "invalid analysis request", []map[string]string{{"field": "call_ids", "issue": "required"}})
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	body := decode(t, resp)
	if body.Code != CodeValidation || body.Message != "invalid analysis request" || body.RequestID != "req-1" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Details == nil {
		t.Fatalf("expected details")
	}
}

func TestNotFoundMessage(t *testing.T) {
	resp := serve(t, func(c *gin.Context) { NotFound(c, "analysis") })
	body := decode(t, resp)
	if resp.Code != http.StatusNotFound || body.Code != CodeNotFound || body.Message != "analysis not found" {
		t.Fatalf("unexpected response %d %+v", resp.Code, body)
	}
}

func TestInternalHidesCause(t *testing.T) {
	var logs bytes.Buffer
	telemetry.SetOutput(&logs)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	resp := serve(t, func(c *gin.Context) {
		Internal(c, "failed to list calls", errors.New("pq: password authentication failed"))
	})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "password") {
		t.Fatalf("cause leaked to client: %s", resp.Body.String())
	}
	if !strings.Contains(logs.String(), "password authentication failed") {
		t.Fatalf("expected cause in logs, got %q", logs.String())
	}
}

func TestAttachmentSetsDisposition(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Attachment(c, "analysis-a1.xlsx", "application/octet-stream", []byte("abc"))
	})
	if got := resp.Header().Get("Content-Disposition"); got != "attachment; filename=analysis-a1.xlsx" {
		t.Fatalf("unexpected disposition %q", got)
	}
	if resp.Header().Get("Cache-Control") != "no-store" || resp.Body.String() != "abc" {
		t.Fatalf("unexpected response headers or body")
	}
}

func TestAttachmentEncodesNonASCIIName(t *testing.T) {
	resp := serve(t, func(c *gin.Context) {
		Attachment(c, "análisis.xlsx", "application/octet-stream", nil)
	})
	if got := resp.Header().Get("Content-Disposition"); !strings.Contains(got, "filename*=utf-8''") {
		t.Fatalf("expected RFC 2231 filename, got %q", got)
	}
}
