package documents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"skills-backend/internal/shared/storage/object"
	"skills-backend/internal/shared/telemetry"
)

// Service contains business logic for documents.
type Service struct {
	Store           object.ObjectStore
	Repo            DocumentsRepo
	StorageProvider string
	MaxSizeBytes    int64
}

func (s *Service) maxSize() int64 {
	if s.MaxSizeBytes > 0 {
		return s.MaxSizeBytes
	}
	return MaxSizeBytes
}

// Upload validates the file, writes it to object storage and makes it the
// user's live document.
func (s *Service) Upload(ctx context.Context, userID string, up Upload) (Document, error) {
	if strings.TrimSpace(userID) == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if strings.TrimSpace(up.FileName) == "" {
		return Document{}, fmt.Errorf("%w: file name required", ErrInvalidInput)
	}
	if !isPDF(up.MimeType) {
		return Document{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidInput, up.MimeType)
	}
	limit := s.maxSize()
	if up.SizeBytes <= 0 || up.SizeBytes > limit {
		return Document{}, fmt.Errorf("%w: size %d out of range", ErrInvalidInput, up.SizeBytes)
	}
	if up.Body == nil {
		return Document{}, fmt.Errorf("%w: empty body", ErrInvalidInput)
	}

	br := bufio.NewReaderSize(up.Body, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Document{}, fmt.Errorf("read document head: %w", err)
	}
	if sniffed := http.DetectContentType(head); !isPDF(sniffed) {
		return Document{}, fmt.Errorf("%w: content is %s", ErrInvalidInput, sniffed)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, up.FileName, io.LimitReader(br, limit+1))
	if err != nil {
		return Document{}, err
	}
	if size <= 0 || size > limit {
		s.discard(ctx, storageKey)
		return Document{}, fmt.Errorf("%w: size %d out of range", ErrInvalidInput, size)
	}
	if !isPDF(mimeType) {
		mimeType = MimePDF
	}

	doc := Document{
		ID:              uuid.NewString(),
		UserID:          userID,
		FileName:        up.FileName,
		MimeType:        mimeType,
		SizeBytes:       size,
		StorageProvider: s.StorageProvider,
		StorageKey:      storageKey,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.Repo.Replace(ctx, doc); err != nil {
		s.discard(ctx, storageKey)
		return Document{}, err
	}

	return doc, nil
}

// Delete removes the object and retires the record. Missing pieces are ignored.
func (s *Service) Delete(ctx context.Context, doc Document) error {
	if doc.StorageKey != "" {
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			return fmt.Errorf("delete object: %w", err)
		}
	}
	if err := s.Repo.Delete(ctx, doc.UserID, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Restore makes a previously replaced document live again.
func (s *Service) Restore(ctx context.Context, doc Document) error {
	return s.Repo.Restore(ctx, doc)
}

// Download opens the stored bytes of doc.
func (s *Service) Download(ctx context.Context, doc Document) (io.ReadCloser, error) {
	if doc.StorageKey == "" {
		return nil, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}
	return rc, nil
}

// Current returns the current document for a user.
func (s *Service) Current(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

func (s *Service) discard(ctx context.Context, storageKey string) {
	if err := s.Store.Delete(context.WithoutCancel(ctx), storageKey); err != nil {
		telemetry.Warn("documents.discard.failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}

func isPDF(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(base), MimePDF)
}
