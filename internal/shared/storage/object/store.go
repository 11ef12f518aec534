// Package object abstracts the blob stores that hold uploaded resumes.
package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore saves, opens and removes resume objects.
//
// Save always writes under a new key, so reuploading the same file never
// overwrites an earlier object. Delete of a missing key succeeds.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
