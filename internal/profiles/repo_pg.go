package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using the profile_skills table.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Put(ctx context.Context, p Profile) error {
	skills, err := json.Marshal(nonNilSkills(p.Skills))
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	categorized, err := json.Marshal(nonNilCategories(p.CategorizedSkills))
	if err != nil {
		return fmt.Errorf("marshal categorized skills: %w", err)
	}

	const query = `
INSERT INTO profile_skills (user_id, skills, categorized_skills, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET skills = EXCLUDED.skills,
    categorized_skills = EXCLUDED.categorized_skills,
    updated_at = EXCLUDED.updated_at`
	_, err = r.DB.ExecContext(ctx, query, p.UserID, skills, categorized, p.UpdatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, userID string) (Profile, error) {
	const query = `
SELECT user_id, skills, categorized_skills, updated_at
FROM profile_skills
WHERE user_id = $1`
	var p Profile
	var skillsRaw, categorizedRaw []byte
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &skillsRaw, &categorizedRaw, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	if err := json.Unmarshal(skillsRaw, &p.Skills); err != nil {
		return Profile{}, fmt.Errorf("decode skills: %w", err)
	}
	if err := json.Unmarshal(categorizedRaw, &p.CategorizedSkills); err != nil {
		return Profile{}, fmt.Errorf("decode categorized skills: %w", err)
	}
	return p, nil
}

func nonNilSkills(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilCategories(c map[string][]string) map[string][]string {
	if c == nil {
		return map[string][]string{}
	}
	return c
}

var _ Repo = (*PGRepo)(nil)
