package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu       sync.Mutex
	data     map[string]Usage
	defaults Defaults
	now      func() time.Time
}

func newMemoryStore(d Defaults) *memoryStore {
	return &memoryStore{
		data:     make(map[string]Usage),
		defaults: d.normalize(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *memoryStore) ensure(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(userID), nil
}

func (s *memoryStore) ensureLocked(userID string) Usage {
	now := s.now()
	u, ok := s.data[userID]
	if !ok {
		u = s.defaults.fresh(now)
	}
	if expired(u, now) {
		u.Used = 0
		u.ResetsAt = now.Add(s.defaults.Period)
	}
	s.data[userID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID)
	u.Used += n
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[userID]
	if !ok {
		u = s.defaults.fresh(now)
	}
	u.Used = 0
	u.ResetsAt = now.Add(s.defaults.Period)
	s.data[userID] = u
	return u, nil
}

var _ Store = (*memoryStore)(nil)
