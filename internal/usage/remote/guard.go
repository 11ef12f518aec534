// Package remote checks and debits token budgets through an external quota service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skills-backend/internal/usage"
)

// Guard implements the budget check and debit calls over HTTP.
type Guard struct {
	baseURL    string
	httpClient *http.Client
}

// NewGuard constructs a Guard for baseURL.
func NewGuard(baseURL string, timeout time.Duration) (*Guard, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("USAGE_SERVICE_URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Guard{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}, nil
}

type checkResponse struct {
	IsAvailable bool `json:"isAvailable"`
	Remaining   int  `json:"remaining"`
}

type debitRequest struct {
	TokensUsed int `json:"tokensUsed"`
}

type debitResponse struct {
	OK bool `json:"ok"`
}

// CheckAvailability calls POST /token-check.
func (g *Guard) CheckAvailability(ctx context.Context, ownerID string) (usage.Availability, error) {
	var out checkResponse
	if err := g.post(ctx, "/token-check", ownerID, struct{}{}, &out); err != nil {
		return usage.Availability{}, fmt.Errorf("%w: check: %v", usage.ErrQuotaService, err)
	}
	remaining := out.Remaining
	if remaining < 0 {
		remaining = 0
	}
	return usage.Availability{IsAvailable: out.IsAvailable, Remaining: remaining}, nil
}

// Debit calls POST /token-debit with the exact amount. Non-positive amounts are ignored.
func (g *Guard) Debit(ctx context.Context, ownerID string, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	var out debitResponse
	if err := g.post(ctx, "/token-debit", ownerID, debitRequest{TokensUsed: tokens}, &out); err != nil {
		return fmt.Errorf("%w: debit: %v", usage.ErrQuotaService, err)
	}
	if !out.OK {
		return fmt.Errorf("%w: debit rejected", usage.ErrQuotaService)
	}
	return nil
}

func (g *Guard) post(ctx context.Context, path, ownerID string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", ownerID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("quota service http status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("quota service response parse: %w", err)
	}
	return nil
}
