package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/profiles"
	"skills-backend/internal/shared/config"
	"skills-backend/internal/shared/telemetry"
	"skills-backend/internal/usage"
)

func newTestRouter(t *testing.T, env string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(telemetry.SetOutput(io.Discard))
	return NewRouter(RouterDeps{
		Config:   config.Config{Env: env, CORSAllowOrigin: []string{"http://localhost:5173"}},
		Profiles: profiles.NewHandler(&profiles.Service{Repo: profiles.NewMemoryRepo()}),
		Usage:    usage.NewHandler(usage.NewService(usage.DefaultsWithLimit(10))),
	})
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t, "dev")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "pipeline_runs_started_total") {
		t.Fatalf("expected pipeline counters in metrics output")
	}
}

func TestMeReturnsGuestIdentity(t *testing.T) {
	router := newTestRouter(t, "dev")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["userId"] != "guest:g1" || body["isGuest"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDevRoutesOnlyInDev(t *testing.T) {
	cases := []struct {
		env  string
		want int
	}{
		{env: "dev", want: http.StatusOK},
		{env: "production", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.env, func(t *testing.T) {
			router := newTestRouter(t, tc.env)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dev/usage/reset", nil)
			req.Header.Set("X-Guest-Id", "g1")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
