// Package vertex categorizes skills with Gemini on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"skills-backend/internal/llm"
)

const defaultModel = "gemini-1.5-pro"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Categorizer on a preconfigured Gemini model.
type Client struct {
	model generator
	name  string
	base  *genai.Client
}

// NewClient builds a Gemini model that answers in JSON at temperature 0.
func NewClient(ctx context.Context, projectID, region, model string) (*Client, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID and GCP_REGION are required for vertex")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	base, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	gm := base.GenerativeModel(model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemPrompt + "\n\n" + llm.CategorizePrompt())},
	}
	gm.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	return &Client{model: gm, name: model, base: base}, nil
}

// CategorizeSkills sends the resume text and reports TotalTokenCount as the cost.
func (c *Client) CategorizeSkills(ctx context.Context, text string) (llm.Categorization, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text("RESUME:\n"+text))
	if err != nil {
		return llm.Categorization{}, fmt.Errorf("gemini generate: %w", err)
	}

	content := responseText(resp)
	if content == "" {
		return llm.Categorization{}, fmt.Errorf("gemini response empty content")
	}
	skills, categorized, err := llm.DecodeSkills([]byte(content))
	if err != nil {
		return llm.Categorization{}, fmt.Errorf("gemini response: %w", err)
	}

	cost := 0
	if resp.UsageMetadata != nil {
		cost = int(resp.UsageMetadata.TotalTokenCount)
	}
	log.Printf("llm response provider=vertex model=%s total_tokens=%d", c.name, cost)

	return llm.Categorization{
		Skills:            skills,
		CategorizedSkills: categorized,
		TokenCost:         cost,
	}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ llm.Categorizer = (*Client)(nil)
