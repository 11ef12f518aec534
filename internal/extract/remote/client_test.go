package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractTextPostsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extract-text" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		got, _ := io.ReadAll(file)
		if string(got) != "%PDF-1.4 body" {
			t.Errorf("unexpected file body %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"parsedText":"Go, SQL, leadership"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	res, err := c.ExtractText(context.Background(), []byte("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if res.Text != "Go, SQL, leadership" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestExtractTextNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.ExtractText(context.Background(), []byte("%PDF-1.4"))
	if err == nil || !strings.Contains(err.Error(), "http status 502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("  ", time.Second); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
