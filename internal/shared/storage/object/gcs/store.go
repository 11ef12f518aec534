package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"skills-backend/internal/shared/storage/object"
	"skills-backend/internal/shared/util"
)

// Store implements ObjectStore using Google Cloud Storage.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// New creates a GCS-backed object store. A non-empty endpoint targets an emulator
// and disables authentication.
func New(ctx context.Context, bucket, prefix, endpoint string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	var opts []option.ClientOption
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &Store{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

// Save streams the reader into a new object under the user's namespace.
func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (string, int64, string, error) {
	storageKey, err := util.NewObjectKey(userID, fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("object key: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	name := objectName(s.prefix, storageKey)

	var sniff [512]byte
	n, readErr := io.ReadFull(r, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		return "", 0, "", fmt.Errorf("read sniff: %w", readErr)
	}
	mimeType := http.DetectContentType(sniff[:n])

	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = mimeType

	size, err := io.Copy(w, io.MultiReader(bytes.NewReader(sniff[:n]), r))
	if err != nil {
		_ = w.Close()
		return "", 0, "", fmt.Errorf("gcs write bucket=%s object=%s: %w", s.name, name, err)
	}
	if err := w.Close(); err != nil {
		return "", 0, "", fmt.Errorf("gcs finalize bucket=%s object=%s: %w", s.name, name, err)
	}

	return storageKey, size, mimeType, nil
}

// Open returns a reader over the stored object.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := objectName(s.prefix, storageKey)
	rc, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", object.ErrNotFound, name)
		}
		return nil, fmt.Errorf("gcs read bucket=%s object=%s: %w", s.name, name, err)
	}
	return rc, nil
}

// Delete removes the stored object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := objectName(s.prefix, storageKey)
	if err := s.bucket.Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete bucket=%s object=%s: %w", s.name, name, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func objectName(prefix, key string) string {
	cleanKey := strings.TrimLeft(key, "/")
	if prefix == "" {
		return cleanKey
	}
	return prefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
