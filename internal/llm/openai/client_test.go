package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

const okResponse = `{"choices":[{"message":{"content":"{\"skills\":[\"Go\",\"Teamwork\"],\"categorized_skills\":{\"Technical Skills\":[\"Go\"],\"Soft Skills\":[\"Teamwork\"]}}"}}],"usage":{"prompt_tokens":100,"completion_tokens":42,"total_tokens":142}}`

func TestCategorizeSkillsReportsTotalTokens(t *testing.T) {
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	var mu sync.Mutex
	var lastBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastBody = payload
		mu.Unlock()
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()
	apiURL = server.URL

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := client.CategorizeSkills(context.Background(), "Go developer, great teamwork")
	if err != nil {
		t.Fatalf("CategorizeSkills: %v", err)
	}
	if res.TokenCost != 142 {
		t.Fatalf("expected cost 142, got %d", res.TokenCost)
	}
	if len(res.Skills) != 2 || res.CategorizedSkills["Technical Skills"][0] != "Go" {
		t.Fatalf("unexpected categorization: %+v", res)
	}

	mu.Lock()
	defer mu.Unlock()
	format, _ := lastBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", lastBody["response_format"])
	}
	if _, ok := lastBody["temperature"]; !ok {
		t.Fatalf("expected temperature for non gpt-5 model")
	}
}

func TestCategorizeSkillsRetriesWithoutTemperature(t *testing.T) {
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	var mu sync.Mutex
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		bodies = append(bodies, payload)
		n := len(bodies)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported value: 'temperature' does not support 0 with this model.","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(okResponse))
	}))
	defer server.Close()
	apiURL = server.URL

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.CategorizeSkills(context.Background(), "resume"); err != nil {
		t.Fatalf("CategorizeSkills: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if _, ok := bodies[1]["temperature"]; ok {
		t.Fatalf("expected retry request to omit temperature")
	}
}

func TestCategorizeSkillsHTTPError(t *testing.T) {
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()
	apiURL = server.URL

	client, err := NewClient("test-key", "gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.CategorizeSkills(context.Background(), "resume"); err == nil {
		t.Fatalf("expected error")
	}
}
