package documents

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // userID -> live document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
	}
}

// Replace overwrites the live document for a user.
func (r *MemoryRepo) Replace(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.UserID] = doc
	return nil
}

// GetCurrentByUser returns the live document for a user.
func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[userID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Delete clears the slot when it still holds documentID.
func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.data[userID]; ok && doc.ID == documentID {
		delete(r.data, userID)
	}
	return nil
}

// Restore puts doc back into the user's slot.
func (r *MemoryRepo) Restore(ctx context.Context, doc Document) error {
	return r.Replace(ctx, doc)
}

var _ DocumentsRepo = (*MemoryRepo)(nil)
