package pipeline

import (
	"time"

	"skills-backend/internal/documents"
)

// RunResponse is the JSON shape of a run snapshot.
type RunResponse struct {
	RunID             string                      `json:"runId"`
	Stage             Stage                       `json:"stage"`
	Progress          int                         `json:"progress"`
	Error             *Error                      `json:"error,omitempty"`
	Document          *documents.DocumentResponse `json:"document,omitempty"`
	Skills            []string                    `json:"skills,omitempty"`
	CategorizedSkills map[string][]string         `json:"categorizedSkills,omitempty"`
	IsSkillsSaved     bool                        `json:"isSkillsSaved"`
	TokenCost         int                         `json:"tokenCost"`
	BudgetDebited     bool                        `json:"budgetDebited"`
	StartedAt         time.Time                   `json:"startedAt"`
	CompletedAt       *time.Time                  `json:"completedAt,omitempty"`
	Transitions       []Stage                     `json:"transitions"`
}

// ToResponse maps a snapshot to its JSON shape.
func ToResponse(s Snapshot) RunResponse {
	return RunResponse{
		RunID:             s.RunID,
		Stage:             s.Stage,
		Progress:          s.Progress,
		Error:             s.Error,
		Document:          documents.ToResponsePtr(s.Document),
		Skills:            s.Skills,
		CategorizedSkills: s.CategorizedSkills,
		IsSkillsSaved:     s.SkillsSaved,
		TokenCost:         s.TokenCost,
		BudgetDebited:     s.BudgetDebited,
		StartedAt:         s.StartedAt,
		CompletedAt:       s.CompletedAt,
		Transitions:       s.Transitions,
	}
}
