package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/respond"
	"skills-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope and an error log line
// carrying the request, owner and run ids.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if userID := UserIDFromContext(c); userID != "" {
				fields["user_id"] = userID
			}
			if runID := c.GetString(RunIDKey); runID != "" {
				fields["run_id"] = runID
			}
			telemetry.Error("panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
