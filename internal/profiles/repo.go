package profiles

import "context"

// Repo persists one skills profile per user. Put overwrites.
type Repo interface {
	Put(ctx context.Context, p Profile) error
	Get(ctx context.Context, userID string) (Profile, error)
}
