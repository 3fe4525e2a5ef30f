package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/shared/util"
)

// Error codes shared by every handler.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeForbidden   = "forbidden"
	CodeRateLimited = "rate_limited"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal_error"
)

// ErrorBody is the object under "error" in every failed response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with the error envelope. 5xx responses log at error level.
func Error(c *gin.Context, status int, code, message string, details any) {
	writeError(c, status, code, message, details, nil)
}

// Invalid answers 400 validation_error.
func Invalid(c *gin.Context, message string, details any) {
	writeError(c, http.StatusBadRequest, CodeValidation, message, details, nil)
}

// NotFound answers 404 with "<what> not found".
func NotFound(c *gin.Context, what string) {
	writeError(c, http.StatusNotFound, CodeNotFound, what+" not found", nil, nil)
}

// Internal answers 500 with a generic message. cause is logged, never returned to the client.
func Internal(c *gin.Context, message string, cause error) {
	writeError(c, http.StatusInternalServerError, CodeInternal, message, nil, cause)
}

func writeError(c *gin.Context, status int, code, message string, details any, cause error) {
	requestID := c.GetString("requestId")
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"method":     c.Request.Method,
		"request_id": requestID,
	}
	if cause != nil {
		fields["error"] = util.SanitizeError(cause)
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
	}})
}
