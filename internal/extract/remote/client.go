// Package remote calls an external text extraction service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"skills-backend/internal/extract"
)

const extractPath = "/extract-text"

// Client implements extract.Client against POST {baseURL}/extract-text.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a remote extraction client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("EXTRACT_SERVICE_URL is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type extractResponse struct {
	ParsedText string `json:"parsedText"`
}

// ExtractText uploads content as multipart field "file" and returns parsedText.
func (c *Client) ExtractText(ctx context.Context, content []byte) (extract.Result, error) {
	if len(content) == 0 {
		return extract.Result{}, extract.ErrEmptyDocument
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "resume.pdf")
	if err != nil {
		return extract.Result{}, err
	}
	if _, err := part.Write(content); err != nil {
		return extract.Result{}, err
	}
	if err := writer.Close(); err != nil {
		return extract.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, &body)
	if err != nil {
		return extract.Result{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return extract.Result{}, fmt.Errorf("extract service timeout: %w", err)
		}
		return extract.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return extract.Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return extract.Result{}, fmt.Errorf("extract service http status %d", resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return extract.Result{}, fmt.Errorf("extract service response parse: %w", err)
	}
	return extract.Result{Text: parsed.ParsedText}, nil
}

var _ extract.Client = (*Client)(nil)
