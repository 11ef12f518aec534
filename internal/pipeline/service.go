package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"skills-backend/internal/documents"
	"skills-backend/internal/extract"
	"skills-backend/internal/llm"
	"skills-backend/internal/profiles"
	"skills-backend/internal/queue"
	"skills-backend/internal/shared/metrics"
	"skills-backend/internal/shared/telemetry"
	"skills-backend/internal/usage"
)

// ReplaceStrategy decides the order of the upload and the removal of the
// owner's previous document.
type ReplaceStrategy string

const (
	// ReplaceUploadFirst uploads the new file before removing the old one and
	// rolls the upload back if the old one cannot be removed.
	ReplaceUploadFirst ReplaceStrategy = "upload-first"
	// ReplaceDeleteFirst removes the old file first. A failed upload then
	// leaves the owner without a document.
	ReplaceDeleteFirst ReplaceStrategy = "delete-first"
)

const tickStep = 1

// DocumentGateway stores the owner's single live document.
type DocumentGateway interface {
	Current(ctx context.Context, ownerID string) (documents.Document, error)
	Upload(ctx context.Context, ownerID string, up documents.Upload) (documents.Document, error)
	Delete(ctx context.Context, doc documents.Document) error
	Restore(ctx context.Context, doc documents.Document) error
	Download(ctx context.Context, doc documents.Document) (io.ReadCloser, error)
}

// BudgetGuard checks and debits the owner's token budget.
type BudgetGuard interface {
	CheckAvailability(ctx context.Context, ownerID string) (usage.Availability, error)
	Debit(ctx context.Context, ownerID string, tokens int) error
}

// SkillStore overwrites the owner's categorized skills.
type SkillStore interface {
	Save(ctx context.Context, ownerID string, skills []string, categorized map[string][]string) (profiles.SaveResult, error)
}

// Service drives résumé runs from upload to saved skills.
type Service struct {
	Documents   DocumentGateway
	Extractor   extract.Client
	Categorizer llm.Categorizer
	Budget      BudgetGuard
	Skills      SkillStore
	Events      queue.Client

	Locks *OwnerLocks
	Runs  *Registry

	Strategy     ReplaceStrategy
	TickInterval time.Duration
	Observe      Observer
	Now          func() time.Time

	once     sync.Once
	validate *validator.Validate
}

func (s *Service) setup() {
	s.once.Do(func() {
		if s.Now == nil {
			s.Now = time.Now
		}
		if s.Locks == nil {
			s.Locks = NewOwnerLocks()
		}
		if s.Runs == nil {
			s.Runs = NewRegistry(0, s.Now)
		}
		if s.Events == nil {
			s.Events = queue.NoopClient{}
		}
		if s.Strategy == "" {
			s.Strategy = ReplaceUploadFirst
		}
		s.validate = validator.New()
	})
}

// Submit runs the whole pipeline and returns the terminal snapshot. A failed
// run is reported through Snapshot.Error; the returned error is only set when
// the run could not be accepted.
func (s *Service) Submit(ctx context.Context, ownerID string, f File) (Snapshot, error) {
	rn, release, err := s.accept(ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()
	s.drive(detach(ctx), rn, f)
	return rn.snapshot(), nil
}

// Start accepts a run and drives it in the background. The returned snapshot
// is the idle run; poll Run for updates.
func (s *Service) Start(ctx context.Context, ownerID string, f File) (Snapshot, error) {
	rn, release, err := s.accept(ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	initial := rn.snapshot()
	runCtx := detach(ctx)
	go func() {
		defer release()
		s.drive(runCtx, rn, f)
	}()
	return initial, nil
}

// Run returns the latest snapshot of a run.
func (s *Service) Run(ctx context.Context, runID string) (Snapshot, error) {
	s.setup()
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	snap, ok := s.Runs.Get(runID)
	if !ok {
		return Snapshot{}, ErrRunNotFound
	}
	return snap, nil
}

// DeleteDocument removes the owner's document from storage. Skills and the
// token budget are left alone. Deleting when nothing is stored is a no-op.
func (s *Service) DeleteDocument(ctx context.Context, ownerID string) error {
	s.setup()
	if strings.TrimSpace(ownerID) == "" {
		return ErrOwnerRequired
	}
	release, ok := s.Locks.TryLock(ownerID)
	if !ok {
		return ErrRunInProgress
	}
	defer release()

	doc, err := s.Documents.Current(ctx, ownerID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup current document: %w", err)
	}
	if err := s.Documents.Delete(ctx, doc); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	telemetry.Info("pipeline.document.deleted", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     ownerID,
		"document_id": doc.ID,
	})
	return nil
}

// CurrentDocument returns the owner's live document.
func (s *Service) CurrentDocument(ctx context.Context, ownerID string) (documents.Document, error) {
	return s.Documents.Current(ctx, ownerID)
}

func (s *Service) accept(ownerID string) (*run, func(), error) {
	s.setup()
	if strings.TrimSpace(ownerID) == "" {
		return nil, nil, ErrOwnerRequired
	}
	release, ok := s.Locks.TryLock(ownerID)
	if !ok {
		return nil, nil, ErrRunInProgress
	}
	rn := newRun(s.Runs.newID(), ownerID, s.Now, s.Observe)
	s.Runs.add(rn)
	return rn, release, nil
}

func (s *Service) drive(ctx context.Context, rn *run, f File) {
	startedAt := s.Now().UTC()
	defer func() {
		if p := recover(); p != nil && !rn.snapshot().Stage.Terminal() {
			s.finish(ctx, rn, newError(KindInternal, fmt.Errorf("panic: %v", p)), startedAt)
		}
	}()
	owner := rn.snap.OwnerID
	metrics.IncPipelineStarted()

	rn.transition(ctx, StageValidating)
	if issues := validateFile(s.validate, f); issues != nil {
		e := newError(KindValidation, fmt.Errorf("invalid file: %v", issues))
		s.finish(ctx, rn, e, startedAt)
		return
	}

	avail, err := s.Budget.CheckAvailability(ctx, owner)
	if err != nil {
		s.finish(ctx, rn, newError(KindQuotaService, err), startedAt)
		return
	}
	if !avail.IsAvailable {
		s.finish(ctx, rn, quotaExceeded(avail.Remaining), startedAt)
		return
	}

	rn.transition(ctx, StageUploading)
	var doc documents.Document
	var perr *Error
	s.during(rn, PhaseUploading, func() {
		doc, perr = s.replace(ctx, owner, f)
	})
	if perr != nil {
		s.finish(ctx, rn, perr, startedAt)
		return
	}
	rn.update(func(sn *Snapshot) { sn.Document = &doc })

	rn.transition(ctx, StageAnalyzing)
	var text string
	s.during(rn, PhaseExtracting, func() {
		text, perr = s.extractText(ctx, doc)
	})
	if perr != nil {
		s.finish(ctx, rn, perr, startedAt)
		return
	}

	var result llm.Categorization
	s.during(rn, PhaseCategorizing, func() {
		result, err = s.Categorizer.CategorizeSkills(ctx, text)
	})
	if err != nil {
		s.finish(ctx, rn, newError(KindCategorization, fmt.Errorf("categorize skills: %w", err)), startedAt)
		return
	}
	rn.update(func(sn *Snapshot) {
		sn.Skills = result.Skills
		sn.CategorizedSkills = result.CategorizedSkills
		sn.TokenCost = result.TokenCost
	})

	rn.transition(ctx, StageSaving)
	var saved profiles.SaveResult
	s.during(rn, PhaseSaving, func() {
		saved, err = s.Skills.Save(ctx, owner, result.Skills, result.CategorizedSkills)
	})
	if err == nil && !saved.Success {
		err = errors.New("skill store rejected the write")
	}
	if err != nil {
		s.finish(ctx, rn, newError(KindPersistence, fmt.Errorf("save skills: %w", err)), startedAt)
		return
	}
	rn.update(func(sn *Snapshot) { sn.SkillsSaved = true })

	debited := s.debit(ctx, rn, owner, result.TokenCost)
	rn.update(func(sn *Snapshot) { sn.BudgetDebited = debited })

	s.finish(ctx, rn, nil, startedAt)
}

// during runs fn inside phase with the progress ticker active.
func (s *Service) during(rn *run, phase Phase, fn func()) {
	rn.enter(phase)
	stop := rn.startTicker(s.TickInterval, tickStep)
	defer stop()
	fn()
}

func (s *Service) replace(ctx context.Context, owner string, f File) (documents.Document, *Error) {
	old, err := s.Documents.Current(ctx, owner)
	hasOld := err == nil
	if err != nil && !errors.Is(err, documents.ErrNotFound) {
		return documents.Document{}, newError(KindStorage, fmt.Errorf("lookup current document: %w", err))
	}

	if s.Strategy == ReplaceDeleteFirst {
		if hasOld {
			if err := s.Documents.Delete(ctx, old); err != nil {
				return documents.Document{}, newError(KindStorage, fmt.Errorf("delete previous document: %w", err))
			}
		}
		doc, err := s.Documents.Upload(ctx, owner, f.upload())
		if err != nil {
			if hasOld {
				telemetry.Warn("pipeline.document.lost", map[string]any{
					"request_id":  requestIDFromContext(ctx),
					"user_id":     owner,
					"document_id": old.ID,
				})
			}
			return documents.Document{}, uploadError(err)
		}
		return doc, nil
	}

	doc, err := s.Documents.Upload(ctx, owner, f.upload())
	if err != nil {
		return documents.Document{}, uploadError(err)
	}
	if hasOld {
		if err := s.Documents.Delete(ctx, old); err != nil {
			s.rollback(ctx, doc, old)
			return documents.Document{}, newError(KindStorage, fmt.Errorf("delete previous document: %w", err))
		}
	}
	return doc, nil
}

// rollback removes a fresh upload and reinstates the previous document.
func (s *Service) rollback(ctx context.Context, fresh, previous documents.Document) {
	if err := s.Documents.Delete(ctx, fresh); err != nil {
		telemetry.Error("pipeline.rollback.failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     fresh.UserID,
			"document_id": fresh.ID,
			"step":        "delete_new",
			"error":       err.Error(),
		})
	}
	if err := s.Documents.Restore(ctx, previous); err != nil {
		telemetry.Error("pipeline.rollback.failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"user_id":     previous.UserID,
			"document_id": previous.ID,
			"step":        "restore_old",
			"error":       err.Error(),
		})
	}
}

// uploadError classifies a failed upload. The file already passed validation,
// so a rejection by the gateway is a storage failure.
func uploadError(err error) *Error {
	return newError(KindStorage, fmt.Errorf("upload document: %w", err))
}

func (s *Service) extractText(ctx context.Context, doc documents.Document) (string, *Error) {
	body, err := s.Documents.Download(ctx, doc)
	if err != nil {
		return "", newError(KindStorage, fmt.Errorf("download document: %w", err))
	}
	defer body.Close()
	content, err := io.ReadAll(body)
	if err != nil {
		return "", newError(KindStorage, fmt.Errorf("read document: %w", err))
	}

	res, err := s.Extractor.ExtractText(ctx, content)
	if err != nil {
		return "", newError(KindExtraction, fmt.Errorf("extract text: %w", err))
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", newError(KindExtraction, extract.ErrEmptyDocument)
	}
	return res.Text, nil
}

// debit charges the exact categorization cost. A failure is logged and
// counted but never fails the run.
func (s *Service) debit(ctx context.Context, rn *run, owner string, tokens int) bool {
	if tokens <= 0 {
		return true
	}
	if err := s.Budget.Debit(ctx, owner, tokens); err != nil {
		metrics.IncDebitFailed()
		telemetry.Error("pipeline.debit.failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"run_id":      rn.snap.RunID,
			"user_id":     owner,
			"tokens_used": tokens,
			"error_kind":  string(KindQuotaService),
			"error":       err.Error(),
		})
		return false
	}
	return true
}

func (s *Service) finish(ctx context.Context, rn *run, e *Error, startedAt time.Time) {
	completedAt := s.Now().UTC()
	if e != nil {
		rn.fail(ctx, e)
		metrics.IncPipelineFailed(string(e.Kind))
		telemetry.Warn("pipeline.failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"run_id":      rn.snap.RunID,
			"user_id":     rn.snap.OwnerID,
			"error_kind":  string(e.Kind),
			"error":       sanitizeError(e),
			"duration_ms": durationMs(startedAt, completedAt),
		})
	} else {
		rn.transition(ctx, StageComplete)
		metrics.IncPipelineCompleted()
	}
	metrics.ObservePipelineDurationMs(durationMs(startedAt, completedAt))
	s.publish(ctx, rn.snapshot())
}

func (s *Service) publish(ctx context.Context, snap Snapshot) {
	msg := queue.Message{
		RunID:      snap.RunID,
		OwnerID:    snap.OwnerID,
		Stage:      string(snap.Stage),
		TokenCost:  snap.TokenCost,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: s.Now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if snap.Error != nil {
		msg.ErrorKind = string(snap.Error.Kind)
	}
	if snap.Document != nil {
		msg.DocumentID = snap.Document.ID
	}
	if err := s.Events.Send(ctx, msg); err != nil {
		metrics.IncEventPublishFailed()
		telemetry.Warn("pipeline.event.failed", map[string]any{
			"request_id": msg.RequestID,
			"run_id":     snap.RunID,
			"error":      err.Error(),
		})
	}
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
