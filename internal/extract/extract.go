// Package extract turns stored resume bytes into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"skills-backend/internal/shared/retry"
)

// ErrEmptyDocument is returned when there are no bytes to extract from.
var ErrEmptyDocument = errors.New("empty document")

// Result carries the extracted text.
type Result struct {
	Text string
}

// Client extracts text from PDF bytes.
type Client interface {
	ExtractText(ctx context.Context, content []byte) (Result, error)
}

// PDFExtractor reads text in-process with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

// NewPDFExtractor constructs a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractText parses the PDF and concatenates the plain text of every page.
func (PDFExtractor) ExtractText(ctx context.Context, content []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(content) == 0 {
		return Result{}, ErrEmptyDocument
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	return Result{Text: buf.String()}, nil
}

type retrying struct {
	next   Client
	policy retry.Policy
}

// WithRetry wraps c so transient failures are retried according to p.
func WithRetry(c Client, p retry.Policy) Client {
	if p.Attempts <= 1 {
		return c
	}
	return &retrying{next: c, policy: p}
}

func (r *retrying) ExtractText(ctx context.Context, content []byte) (Result, error) {
	return retry.Do(ctx, r.policy, "extract_text", func(ctx context.Context) (Result, error) {
		return r.next.ExtractText(ctx, content)
	})
}

var (
	_ Client = PDFExtractor{}
	_ Client = (*retrying)(nil)
)
