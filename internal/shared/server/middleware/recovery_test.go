package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		c.Set(RunIDKey, "run-7")
		panic("kaboom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"internal_error"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	out := logs.String()
	if !strings.Contains(out, `"msg":"panic"`) || !strings.Contains(out, `"run_id":"run-7"`) || !strings.Contains(out, "kaboom") {
		t.Fatalf("unexpected log output %s", out)
	}
}
