package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"skills-backend/internal/llm"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

// Client implements llm.Categorizer using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

var errTemperatureUnsupported = errors.New("openai temperature unsupported")

// CategorizeSkills asks the model for the skills JSON and reports total_tokens as the cost.
func (c *Client) CategorizeSkills(ctx context.Context, text string) (llm.Categorization, error) {
	messages := []chatMessage{
		{Role: "system", Content: llm.SystemPrompt},
		{Role: "developer", Content: llm.CategorizePrompt()},
		{Role: "user", Content: "RESUME:\n" + text},
	}

	withTemp := !isGPT5(c.model)
	parsed, err := c.complete(ctx, messages, withTemp)
	if errors.Is(err, errTemperatureUnsupported) && withTemp {
		parsed, err = c.complete(ctx, messages, false)
	}
	if err != nil {
		return llm.Categorization{}, err
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	skills, categorized, err := llm.DecodeSkills([]byte(content))
	if err != nil {
		return llm.Categorization{}, fmt.Errorf("openai response: %w", err)
	}

	cost := 0
	if parsed.Usage != nil {
		cost = parsed.Usage.TotalTokens
		log.Printf("llm response model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
			c.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)
	} else {
		log.Printf("llm response model=%s usage=missing", c.model)
	}

	return llm.Categorization{
		Skills:            skills,
		CategorizedSkills: categorized,
		TokenCost:         cost,
	}, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage, withTemp bool) (chatResponse, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	if withTemp {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return chatResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return chatResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return chatResponse{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return chatResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatResponse{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 300 {
			return chatResponse{}, fmt.Errorf("openai http status %d", resp.StatusCode)
		}
		return chatResponse{}, fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		if isTemperatureUnsupported(parsed.Error.Message) {
			return chatResponse{}, fmt.Errorf("%w: %s", errTemperatureUnsupported, parsed.Error.Message)
		}
		return chatResponse{}, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 300 {
		return chatResponse{}, fmt.Errorf("openai http status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return chatResponse{}, fmt.Errorf("openai response missing choices")
	}
	if strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return chatResponse{}, fmt.Errorf("openai response empty content")
	}
	return parsed, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

func isTemperatureUnsupported(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

var _ llm.Categorizer = (*Client)(nil)
