package profiles

import "time"

// Profile holds the categorized skills last saved for a user.
type Profile struct {
	UserID            string              `firestore:"userId"`
	Skills            []string            `firestore:"skills"`
	CategorizedSkills map[string][]string `firestore:"categorizedSkills"`
	UpdatedAt         time.Time           `firestore:"updatedAt"`
}

// SaveResult reports whether the overwrite was acknowledged.
type SaveResult struct {
	Success bool
}
