// Package llm categorizes resume text into skill groups.
package llm

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"skills-backend/internal/shared/retry"
)

// Known categories. Providers may return others; those are kept as-is.
const (
	CategoryTechnical        = "Technical Skills"
	CategorySoft             = "Soft Skills"
	CategoryDomain           = "Domain Knowledge"
	CategoryLanguages        = "Languages"
	CategoryEducation        = "Education"
	CategoryJobTitles        = "Job Titles"
	CategoryResponsibilities = "Responsibilities"
)

// CategorizedSkills maps a category name to its skills in provider order.
type CategorizedSkills map[string][]string

// Categorization is the outcome of one categorization call.
type Categorization struct {
	Skills            []string
	CategorizedSkills CategorizedSkills
	TokenCost         int
}

// Categorizer abstracts skill categorization providers.
type Categorizer interface {
	CategorizeSkills(ctx context.Context, text string) (Categorization, error)
}

//go:embed prompts/categorize.txt
var categorizePrompt string

// SystemPrompt is the instruction shared by the model-backed providers.
const SystemPrompt = "You are a resume skill extraction engine. Respond with JSON only. Output must match the schema exactly."

// CategorizePrompt returns the instruction text for model-backed providers.
func CategorizePrompt() string {
	return strings.TrimSpace(categorizePrompt)
}

// ErrNotConfigured is returned by the placeholder categorizer.
var ErrNotConfigured = errors.New("skill categorizer not configured")

// PlaceholderCategorizer is used when no provider is wired.
type PlaceholderCategorizer struct{}

// CategorizeSkills returns ErrNotConfigured.
func (PlaceholderCategorizer) CategorizeSkills(ctx context.Context, text string) (Categorization, error) {
	_ = ctx
	_ = text
	return Categorization{}, ErrNotConfigured
}

type skillsPayload struct {
	Skills            []string            `json:"skills"`
	CategorizedSkills map[string][]string `json:"categorized_skills"`
}

// DecodeSkills parses a provider JSON body of the form
// {"skills": [...], "categorized_skills": {...}}.
// When "skills" is absent it is flattened from the categories.
func DecodeSkills(raw []byte) ([]string, CategorizedSkills, error) {
	var payload skillsPayload
	if err := json.Unmarshal([]byte(stripCodeFence(string(raw))), &payload); err != nil {
		return nil, nil, fmt.Errorf("decode skills: %w", err)
	}
	if payload.CategorizedSkills == nil {
		return nil, nil, fmt.Errorf("decode skills: categorized_skills missing")
	}
	categorized := CategorizedSkills(payload.CategorizedSkills)
	skills := payload.Skills
	if skills == nil {
		skills = Flatten(categorized)
	}
	return skills, categorized, nil
}

// Flatten lists every skill, known categories first in declaration order,
// then the remaining categories sorted by name.
func Flatten(c CategorizedSkills) []string {
	out := make([]string, 0)
	for _, name := range orderedCategories(c) {
		out = append(out, c[name]...)
	}
	return out
}

func orderedCategories(c CategorizedSkills) []string {
	known := []string{
		CategoryTechnical,
		CategorySoft,
		CategoryDomain,
		CategoryLanguages,
		CategoryEducation,
		CategoryJobTitles,
		CategoryResponsibilities,
	}
	seen := make(map[string]bool, len(known))
	names := make([]string, 0, len(c))
	for _, name := range known {
		seen[name] = true
		if _, ok := c[name]; ok {
			names = append(names, name)
		}
	}
	extra := make([]string, 0)
	for name := range c {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type retrying struct {
	next   Categorizer
	policy retry.Policy
}

// WithRetry wraps c so transient failures are retried according to p.
func WithRetry(c Categorizer, p retry.Policy) Categorizer {
	if p.Attempts <= 1 {
		return c
	}
	return &retrying{next: c, policy: p}
}

func (r *retrying) CategorizeSkills(ctx context.Context, text string) (Categorization, error) {
	return retry.Do(ctx, r.policy, "categorize_skills", func(ctx context.Context) (Categorization, error) {
		return r.next.CategorizeSkills(ctx, text)
	})
}
