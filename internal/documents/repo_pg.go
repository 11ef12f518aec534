package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Replace soft-deletes the user's live row and inserts doc in one transaction.
func (r *PGRepo) Replace(ctx context.Context, doc Document) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const retire = `
UPDATE documents
SET deleted_at = $1
WHERE user_id = $2 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, retire, time.Now().UTC(), doc.UserID); err != nil {
		return fmt.Errorf("retire live document: %w", err)
	}

	const insert = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    mime_type,
    size_bytes,
    storage_provider,
    storage_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	storageProvider := doc.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}
	if _, err := tx.ExecContext(
		ctx,
		insert,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		storageProvider,
		doc.StorageKey,
		doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return tx.Commit()
}

// GetCurrentByUser returns the live document for a user.
func (r *PGRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	const query = `
SELECT id, user_id, file_name, mime_type, size_bytes, storage_provider, storage_key, created_at
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	var doc Document
	var storageProvider sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&storageProvider,
		&doc.StorageKey,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if storageProvider.Valid {
		doc.StorageProvider = storageProvider.String
	}
	return doc, nil
}

// Delete soft-deletes documentID when it is still live.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string) error {
	const query = `
UPDATE documents
SET deleted_at = $1
WHERE user_id = $2 AND id = $3 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), userID, documentID)
	return err
}

// Restore retires any other live row and undeletes doc.
func (r *PGRepo) Restore(ctx context.Context, doc Document) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const retire = `
UPDATE documents
SET deleted_at = $1
WHERE user_id = $2 AND id <> $3 AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, retire, time.Now().UTC(), doc.UserID, doc.ID); err != nil {
		return fmt.Errorf("retire live document: %w", err)
	}

	const undelete = `
UPDATE documents
SET deleted_at = NULL
WHERE user_id = $1 AND id = $2`
	res, err := tx.ExecContext(ctx, undelete, doc.UserID, doc.ID)
	if err != nil {
		return fmt.Errorf("undelete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

var _ DocumentsRepo = (*PGRepo)(nil)
