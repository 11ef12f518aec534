package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service contains business logic for skill profiles.
type Service struct {
	Repo Repo
	Now  func() time.Time
}

// Save overwrites the user's skills with exactly what was given.
func (s *Service) Save(ctx context.Context, userID string, skills []string, categorized map[string][]string) (SaveResult, error) {
	if strings.TrimSpace(userID) == "" {
		return SaveResult{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	p := Profile{
		UserID:            userID,
		Skills:            skills,
		CategorizedSkills: categorized,
		UpdatedAt:         now,
	}
	if err := s.Repo.Put(ctx, p); err != nil {
		return SaveResult{Success: false}, fmt.Errorf("save profile skills: %w", err)
	}
	return SaveResult{Success: true}, nil
}

// Get returns the user's saved skills.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return Profile{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, userID)
}
