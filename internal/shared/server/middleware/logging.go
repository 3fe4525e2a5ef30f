package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/telemetry"
)

// Logging writes one request.complete line per request and feeds the latency histogram.
// Handlers attach callId, analysisId and statusTransition with c.Set.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, elapsed)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            status,
			"duration_ms":       float64(elapsed.Microseconds()) / 1000.0,
			"call_id":           c.GetString("callId"),
			"analysis_id":       c.GetString("analysisId"),
			"status_transition": c.GetString("statusTransition"),
			"client_ip":         c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
