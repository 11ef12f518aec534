package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"skills-backend/internal/documents"
	"skills-backend/internal/extract"
	"skills-backend/internal/llm"
	"skills-backend/internal/profiles"
	"skills-backend/internal/queue"
	"skills-backend/internal/shared/storage/object/local"
	"skills-backend/internal/shared/telemetry"
	"skills-backend/internal/usage"
)

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) ExtractText(ctx context.Context, content []byte) (extract.Result, error) {
	args := m.Called(ctx, content)
	return args.Get(0).(extract.Result), args.Error(1)
}

type mockCategorizer struct{ mock.Mock }

func (m *mockCategorizer) CategorizeSkills(ctx context.Context, text string) (llm.Categorization, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(llm.Categorization), args.Error(1)
}

type mockBudget struct{ mock.Mock }

func (m *mockBudget) CheckAvailability(ctx context.Context, ownerID string) (usage.Availability, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(usage.Availability), args.Error(1)
}

func (m *mockBudget) Debit(ctx context.Context, ownerID string, tokens int) error {
	args := m.Called(ctx, ownerID, tokens)
	return args.Error(0)
}

type mockSkills struct{ mock.Mock }

func (m *mockSkills) Save(ctx context.Context, ownerID string, skills []string, categorized map[string][]string) (profiles.SaveResult, error) {
	args := m.Called(ctx, ownerID, skills, categorized)
	return args.Get(0).(profiles.SaveResult), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) Send(ctx context.Context, msg queue.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// recordingDocs wraps a real documents service, records call order and can
// inject failures.
type recordingDocs struct {
	*documents.Service

	mu           sync.Mutex
	calls        []string
	failDeleteID string
	failUpload   error
	uploads      int
}

func (r *recordingDocs) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recordingDocs) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingDocs) Current(ctx context.Context, ownerID string) (documents.Document, error) {
	r.record("current")
	return r.Service.Current(ctx, ownerID)
}

func (r *recordingDocs) Upload(ctx context.Context, ownerID string, up documents.Upload) (documents.Document, error) {
	r.record("upload")
	r.mu.Lock()
	r.uploads++
	r.mu.Unlock()
	if r.failUpload != nil {
		return documents.Document{}, r.failUpload
	}
	return r.Service.Upload(ctx, ownerID, up)
}

func (r *recordingDocs) Delete(ctx context.Context, doc documents.Document) error {
	r.record("delete")
	if r.failDeleteID != "" && doc.ID == r.failDeleteID {
		return errors.New("object store unavailable")
	}
	return r.Service.Delete(ctx, doc)
}

func (r *recordingDocs) Restore(ctx context.Context, doc documents.Document) error {
	r.record("restore")
	return r.Service.Restore(ctx, doc)
}

func (r *recordingDocs) Download(ctx context.Context, doc documents.Document) (io.ReadCloser, error) {
	r.record("download")
	return r.Service.Download(ctx, doc)
}

type fixture struct {
	svc         *Service
	docs        *recordingDocs
	dir         string
	budget      *usage.Service
	profiles    *profiles.Service
	extractor   *mockExtractor
	categorizer *mockCategorizer
}

func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))

	dir := t.TempDir()
	docs := &recordingDocs{Service: &documents.Service{
		Store:           local.New(dir),
		Repo:            documents.NewMemoryRepo(),
		StorageProvider: "local",
	}}
	budget := usage.NewService(usage.DefaultsWithLimit(limit))
	prof := &profiles.Service{Repo: profiles.NewMemoryRepo()}
	ext := new(mockExtractor)
	cat := new(mockCategorizer)

	return &fixture{
		svc: &Service{
			Documents:   docs,
			Extractor:   ext,
			Categorizer: cat,
			Budget:      budget,
			Skills:      prof,
		},
		docs:        docs,
		dir:         dir,
		budget:      budget,
		profiles:    prof,
		extractor:   ext,
		categorizer: cat,
	}
}

func (f *fixture) expectHappyPath(cost int) llm.Categorization {
	result := sampleCategorization(cost)
	f.extractor.On("ExtractText", mock.Anything, mock.Anything).Return(extract.Result{Text: "Go engineer, SQL, mentoring"}, nil)
	f.categorizer.On("CategorizeSkills", mock.Anything, "Go engineer, SQL, mentoring").Return(result, nil)
	return result
}

func sampleCategorization(cost int) llm.Categorization {
	return llm.Categorization{
		Skills: []string{"Go", "SQL", "Mentoring"},
		CategorizedSkills: llm.CategorizedSkills{
			llm.CategoryTechnical: {"Go", "SQL"},
			llm.CategorySoft:      {"Mentoring"},
		},
		TokenCost: cost,
	}
}

func testPDF(size int) []byte {
	buf := bytes.Repeat([]byte("x"), size)
	copy(buf, "%PDF-1.4\n")
	return buf
}

func pdfFile(size int) File {
	return File{
		Name:     "resume.pdf",
		MimeType: documents.MimePDF,
		Size:     int64(size),
		Content:  testPDF(size),
	}
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

type mockDocs struct{ mock.Mock }

func (m *mockDocs) Current(ctx context.Context, ownerID string) (documents.Document, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(documents.Document), args.Error(1)
}

func (m *mockDocs) Upload(ctx context.Context, ownerID string, up documents.Upload) (documents.Document, error) {
	args := m.Called(ctx, ownerID, up)
	return args.Get(0).(documents.Document), args.Error(1)
}

func (m *mockDocs) Delete(ctx context.Context, doc documents.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockDocs) Restore(ctx context.Context, doc documents.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockDocs) Download(ctx context.Context, doc documents.Document) (io.ReadCloser, error) {
	args := m.Called(ctx, doc)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}
