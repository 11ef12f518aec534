// Package remote calls an external skill categorization service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skills-backend/internal/llm"
)

const categorizePath = "/categorize-skills"

// Client implements llm.Categorizer against POST {baseURL}/categorize-skills.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a remote categorization client.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("CATEGORIZE_SERVICE_URL is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type categorizeRequest struct {
	Text string `json:"text"`
}

type categorizeResponse struct {
	Skills            []string            `json:"skills"`
	CategorizedSkills map[string][]string `json:"categorized_skills"`
	TokenUsage        struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"token_usage"`
}

// CategorizeSkills posts the text and returns the service's categorization and cost.
func (c *Client) CategorizeSkills(ctx context.Context, text string) (llm.Categorization, error) {
	payload, err := json.Marshal(categorizeRequest{Text: text})
	if err != nil {
		return llm.Categorization{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+categorizePath, bytes.NewReader(payload))
	if err != nil {
		return llm.Categorization{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Categorization{}, fmt.Errorf("categorize service timeout: %w", err)
		}
		return llm.Categorization{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Categorization{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return llm.Categorization{}, fmt.Errorf("categorize service http status %d", resp.StatusCode)
	}

	var parsed categorizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Categorization{}, fmt.Errorf("categorize service response parse: %w", err)
	}
	if parsed.CategorizedSkills == nil {
		return llm.Categorization{}, fmt.Errorf("categorize service response missing categorized_skills")
	}

	return llm.Categorization{
		Skills:            parsed.Skills,
		CategorizedSkills: llm.CategorizedSkills(parsed.CategorizedSkills),
		TokenCost:         parsed.TokenUsage.TotalTokens,
	}, nil
}

var _ llm.Categorizer = (*Client)(nil)
