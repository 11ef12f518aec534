package usage

import (
	"context"
	"fmt"
	"strings"
)

// Store persists per-owner budgets. Consume never rejects; the window rolls
// over lazily on every call.
type Store interface {
	Get(ctx context.Context, userID string) (Usage, error)
	EnsurePeriod(ctx context.Context, userID string) (Usage, error)
	Consume(ctx context.Context, userID string, n int) (Usage, error)
	Reset(ctx context.Context, userID string) (Usage, error)
}

// Service manages usage data via an underlying store.
type Service struct {
	store Store
}

// NewService constructs a Service with an in-memory store.
func NewService(d Defaults) *Service {
	return &Service{store: newMemoryStore(d)}
}

// NewStoreService constructs a Service backed by the given store.
func NewStoreService(s Store) *Service {
	return &Service{store: s}
}

// Get returns the current usage for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	return s.store.Get(ctx, userID)
}

// EnsurePeriod resets usage if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, userID)
}

// CheckAvailability reports whether the owner has any tokens left.
func (s *Service) CheckAvailability(ctx context.Context, userID string) (Availability, error) {
	if strings.TrimSpace(userID) == "" {
		return Availability{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	u, err := s.store.EnsurePeriod(ctx, userID)
	if err != nil {
		return Availability{}, fmt.Errorf("%w: check: %v", ErrQuotaService, err)
	}
	remaining := u.Remaining()
	return Availability{IsAvailable: remaining > 0, Remaining: remaining}, nil
}

// Debit records exactly tokens against the owner's budget. Non-positive
// amounts are ignored.
func (s *Service) Debit(ctx context.Context, userID string, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if _, err := s.store.Consume(ctx, userID, tokens); err != nil {
		return fmt.Errorf("%w: debit: %v", ErrQuotaService, err)
	}
	return nil
}

// Reset sets usage to zero and resets the window.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.store.Reset(ctx, userID)
}
