package documents

import "context"

// DocumentsRepo persists the one live document slot per user.
type DocumentsRepo interface {
	// Replace makes doc the user's live document, retiring any previous one.
	Replace(ctx context.Context, doc Document) error
	GetCurrentByUser(ctx context.Context, userID string) (Document, error)
	// Delete retires documentID if it is still the user's live document.
	Delete(ctx context.Context, userID, documentID string) error
	// Restore reinstates a previously retired document as the live one.
	Restore(ctx context.Context, doc Document) error
}
