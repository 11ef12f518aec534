package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skills-backend/internal/shared/storage/object/local"
)

func testPDF(size int) []byte {
	buf := bytes.Repeat([]byte("x"), size)
	copy(buf, "%PDF-1.4\n")
	return buf
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return &Service{
		Store:           local.New(dir),
		Repo:            NewMemoryRepo(),
		StorageProvider: "local",
	}, dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestUploadStoresAndReplaces(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	content := testPDF(1024)
	first, err := svc.Upload(ctx, "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: int64(len(content)), Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(ctx, "user-1", Upload{FileName: "cv2.pdf", MimeType: MimePDF, SizeBytes: int64(len(content)), Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.StorageKey == second.StorageKey {
		t.Fatalf("expected fresh storage key per upload")
	}
	if second.SizeBytes != int64(len(content)) || second.MimeType != MimePDF {
		t.Fatalf("unexpected document: %+v", second)
	}

	current, err := svc.Current(ctx, "user-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != second.ID {
		t.Fatalf("expected live document %s, got %s", second.ID, current.ID)
	}
	if got := countFiles(t, dir); got != 2 {
		t.Fatalf("expected both objects until the old one is deleted, got %d", got)
	}

	if err := svc.Delete(ctx, first); err != nil {
		t.Fatalf("delete old: %v", err)
	}
	if got := countFiles(t, dir); got != 1 {
		t.Fatalf("expected single object, got %d", got)
	}
	if current, _ := svc.Current(ctx, "user-1"); current.ID != second.ID {
		t.Fatalf("deleting a replaced document must not clear the live slot")
	}
}

func TestUploadRejectsBeforeTouchingStore(t *testing.T) {
	cases := []struct {
		name string
		up   Upload
	}{
		{"wrong type", Upload{FileName: "cv.docx", MimeType: "application/msword", SizeBytes: 10, Body: bytes.NewReader(testPDF(10))}},
		{"too large", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: MaxSizeBytes + 1, Body: bytes.NewReader(testPDF(10))}},
		{"empty", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 0, Body: bytes.NewReader(nil)}},
		{"not a pdf", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 11, Body: strings.NewReader("hello world")}},
		{"missing name", Upload{MimeType: MimePDF, SizeBytes: 10, Body: bytes.NewReader(testPDF(10))}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, dir := newTestService(t)
			_, err := svc.Upload(context.Background(), "user-1", tc.up)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if got := countFiles(t, dir); got != 0 {
				t.Fatalf("expected no stored objects, got %d", got)
			}
		})
	}
}

func TestUploadEnforcesActualSize(t *testing.T) {
	svc, dir := newTestService(t)
	svc.MaxSizeBytes = 64

	content := testPDF(128)
	_, err := svc.Upload(context.Background(), "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 32, Body: bytes.NewReader(content)})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := countFiles(t, dir); got != 0 {
		t.Fatalf("oversized object should be discarded, got %d files", got)
	}
}

type failingRepo struct {
	*MemoryRepo
}

func (failingRepo) Replace(context.Context, Document) error { return errors.New("db down") }

func TestUploadDiscardsObjectWhenRecordFails(t *testing.T) {
	dir := t.TempDir()
	svc := &Service{Store: local.New(dir), Repo: failingRepo{NewMemoryRepo()}}

	content := testPDF(100)
	if _, err := svc.Upload(context.Background(), "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 100, Body: bytes.NewReader(content)}); err == nil {
		t.Fatalf("expected error")
	}
	if got := countFiles(t, dir); got != 0 {
		t.Fatalf("expected object cleanup, got %d files", got)
	}
}

func TestDownloadReturnsStoredBytes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	content := testPDF(300)

	doc, err := svc.Upload(ctx, "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 300, Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	rc, err := svc.Download(ctx, doc)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("downloaded bytes differ")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	content := testPDF(50)

	doc, err := svc.Upload(ctx, "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 50, Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.Delete(ctx, doc); err != nil {
			t.Fatalf("delete #%d: %v", i+1, err)
		}
	}
	if _, err := svc.Current(ctx, "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRestoreReinstatesReplacedDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	content := testPDF(50)

	old, err := svc.Upload(ctx, "user-1", Upload{FileName: "old.pdf", MimeType: MimePDF, SizeBytes: 50, Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("upload old: %v", err)
	}
	fresh, err := svc.Upload(ctx, "user-1", Upload{FileName: "new.pdf", MimeType: MimePDF, SizeBytes: 50, Body: bytes.NewReader(content)})
	if err != nil {
		t.Fatalf("upload new: %v", err)
	}
	if err := svc.Delete(ctx, fresh); err != nil {
		t.Fatalf("delete new: %v", err)
	}
	if err := svc.Restore(ctx, old); err != nil {
		t.Fatalf("restore: %v", err)
	}
	current, err := svc.Current(ctx, "user-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != old.ID {
		t.Fatalf("expected restored document %s, got %s", old.ID, current.ID)
	}
}

func TestDownloadMissingObjectIsNotFound(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Upload(ctx, "user-1", Upload{FileName: "cv.pdf", MimeType: MimePDF, SizeBytes: 64, Body: bytes.NewReader(testPDF(64))})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, filepath.FromSlash(doc.StorageKey))); err != nil {
		t.Fatalf("remove object: %v", err)
	}
	if _, err := svc.Download(ctx, doc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
