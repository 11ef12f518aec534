package profiles

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Profile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Profile)}
}

func (r *MemoryRepo) Put(ctx context.Context, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.UserID] = cloneProfile(p)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return cloneProfile(p), nil
}

func cloneProfile(p Profile) Profile {
	out := p
	out.Skills = append([]string(nil), p.Skills...)
	out.CategorizedSkills = make(map[string][]string, len(p.CategorizedSkills))
	for k, v := range p.CategorizedSkills {
		out.CategorizedSkills[k] = append([]string(nil), v...)
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
