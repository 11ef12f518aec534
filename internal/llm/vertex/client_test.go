package vertex

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

type fakeModel struct {
	resp *genai.GenerateContentResponse
	err  error
	got  []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.got = parts
	return f.resp, f.err
}

func TestCategorizeSkillsUsesTotalTokenCount(t *testing.T) {
	fake := &fakeModel{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"skills":["Go"],`),
				genai.Text(`"categorized_skills":{"Technical Skills":["Go"]}}`),
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{TotalTokenCount: 77},
	}}
	c := &Client{model: fake, name: "gemini-test"}

	res, err := c.CategorizeSkills(context.Background(), "Go engineer")
	if err != nil {
		t.Fatalf("CategorizeSkills: %v", err)
	}
	if res.TokenCost != 77 {
		t.Fatalf("expected 77 tokens, got %d", res.TokenCost)
	}
	if len(res.Skills) != 1 || res.Skills[0] != "Go" {
		t.Fatalf("unexpected skills %v", res.Skills)
	}
	if len(fake.got) != 1 {
		t.Fatalf("expected a single prompt part, got %d", len(fake.got))
	}
}

func TestCategorizeSkillsErrors(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeModel
	}{
		{"generate fails", &fakeModel{err: errors.New("quota")}},
		{"no candidates", &fakeModel{resp: &genai.GenerateContentResponse{}}},
		{"bad json", &fakeModel{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("not json")}},
		}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Client{model: tc.fake}
			if _, err := c.CategorizeSkills(context.Background(), "text"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
