package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoReplaceRetiresLiveRowThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{
		ID:         "doc-2",
		UserID:     "user-1",
		FileName:   "cv.pdf",
		MimeType:   MimePDF,
		SizeBytes:  2048,
		StorageKey: "abc/123_cv.pdf",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), doc.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.UserID, doc.FileName, doc.MimeType, doc.SizeBytes, "local", doc.StorageKey, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Replace(context.Background(), doc); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{ID: "doc-2", UserID: "user-1", StorageProvider: "s3", CreatedAt: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	if err := repo.Replace(context.Background(), doc); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetCurrentByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "file_name", "mime_type", "size_bytes", "storage_provider", "storage_key", "created_at"}).
		AddRow("doc-1", "user-1", "cv.pdf", MimePDF, int64(100), "gcs", "k/cv.pdf", created)
	mock.ExpectQuery("SELECT id, user_id").WithArgs("user-1").WillReturnRows(rows)

	doc, err := repo.GetCurrentByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCurrentByUser: %v", err)
	}
	if doc.ID != "doc-1" || doc.StorageProvider != "gcs" || !doc.CreatedAt.Equal(created) {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestPGRepoGetCurrentByUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT id, user_id").WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetCurrentByUser(context.Background(), "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteScopesToLiveRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), "user-1", "doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "user-1", "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRestoreMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	doc := Document{ID: "doc-1", UserID: "user-1"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs(sqlmock.AnyArg(), doc.UserID, doc.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents").
		WithArgs(doc.UserID, doc.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := repo.Restore(context.Background(), doc); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
