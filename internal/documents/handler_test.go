package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"skills-backend/internal/shared/server/middleware"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth("dev"))
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func TestCurrentDocumentAndFile(t *testing.T) {
	svc, _ := newTestService(t)
	content := testPDF(256)
	doc, err := svc.Upload(context.Background(), "guest:test-guest", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 256, Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var current DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		t.Fatalf("decode current response: %v", err)
	}
	if current.DocumentID != doc.ID || current.FileName != "cv.pdf" || current.FileURL != CurrentFilePath || current.Storage != "local" {
		t.Fatalf("unexpected response: %+v", current)
	}

	reqFile := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current/file", nil)
	reqFile.Header.Set("X-Guest-Id", "test-guest")
	respFile := httptest.NewRecorder()
	router.ServeHTTP(respFile, reqFile)

	if respFile.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respFile.Code)
	}
	if ct := respFile.Header().Get("Content-Type"); ct != MimePDF {
		t.Fatalf("expected content type %s, got %s", MimePDF, ct)
	}
	if !bytes.Equal(respFile.Body.Bytes(), content) {
		t.Fatalf("file body mismatch")
	}
}

func TestCurrentDocumentNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/current", nil)
	req.Header.Set("X-Guest-Id", "nobody")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
