package documents

import (
	"io"
	"time"
)

const (
	// MimePDF is the only accepted document type.
	MimePDF = "application/pdf"
	// MaxSizeBytes caps a stored resume at 5 MiB.
	MaxSizeBytes int64 = 5 << 20
)

// Document represents the single resume artifact owned by a user.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	StorageProvider string
	StorageKey      string
	CreatedAt       time.Time
}

// Upload describes a candidate file as declared by the caller.
type Upload struct {
	FileName  string
	MimeType  string
	SizeBytes int64
	Body      io.Reader
}
