package respond

import (
	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/telemetry"
)

// ErrorBody is the single error object every failed request returns. Code is
// a snake_case kind such as validation_error or quota_exceeded.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure as http.error and aborts with the error envelope.
// 5xx statuses log at error level, everything else at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	for key, field := range map[string]string{"userId": "user_id", "runId": "run_id"} {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}

	log := telemetry.Warn
	if status >= 500 {
		log = telemetry.Error
	}
	log("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
