package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"skills-backend/internal/documents"
	"skills-backend/internal/llm"
	"skills-backend/internal/shared/telemetry"
)

// Snapshot is a point-in-time copy of a run.
type Snapshot struct {
	RunID             string
	OwnerID           string
	Stage             Stage
	Progress          int
	Error             *Error
	Document          *documents.Document
	Skills            []string
	CategorizedSkills llm.CategorizedSkills
	SkillsSaved       bool
	TokenCost         int
	BudgetDebited     bool
	StartedAt         time.Time
	CompletedAt       *time.Time
	Transitions       []Stage
}

// Observer receives a snapshot after every change to a run. It is called
// while the run is locked and must not call back into the Service.
type Observer func(Snapshot)

type run struct {
	mu       sync.Mutex
	snap     Snapshot
	progress Progress
	observe  Observer
	now      func() time.Time
}

func newRun(id, owner string, now func() time.Time, observe Observer) *run {
	return &run{
		snap: Snapshot{
			RunID:       id,
			OwnerID:     owner,
			Stage:       StageIdle,
			StartedAt:   now().UTC(),
			Transitions: []Stage{StageIdle},
		},
		observe: observe,
		now:     now,
	}
}

func (r *run) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

func (r *run) copyLocked() Snapshot {
	out := r.snap
	out.Progress = r.progress.Value()
	out.Skills = slices.Clone(r.snap.Skills)
	out.Transitions = slices.Clone(r.snap.Transitions)
	if r.snap.CategorizedSkills != nil {
		out.CategorizedSkills = make(llm.CategorizedSkills, len(r.snap.CategorizedSkills))
		for k, v := range r.snap.CategorizedSkills {
			out.CategorizedSkills[k] = slices.Clone(v)
		}
	}
	if r.snap.Document != nil {
		doc := *r.snap.Document
		out.Document = &doc
	}
	if r.snap.Error != nil {
		e := *r.snap.Error
		out.Error = &e
	}
	if r.snap.CompletedAt != nil {
		t := *r.snap.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func (r *run) notifyLocked() {
	if r.observe != nil {
		r.observe(r.copyLocked())
	}
}

func (r *run) update(fn func(s *Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.snap)
	r.notifyLocked()
}

// transition moves the run to the given stage. Illegal moves are dropped and
// logged so a broken caller cannot corrupt the history.
func (r *run) transition(ctx context.Context, to Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := r.snap.Stage
	if !CanTransition(from, to) {
		telemetry.Warn("pipeline.stage.rejected", map[string]any{
			"request_id": requestIDFromContext(ctx),
			"run_id":     r.snap.RunID,
			"from":       string(from),
			"to":         string(to),
		})
		return
	}
	r.snap.Stage = to
	r.snap.Transitions = append(r.snap.Transitions, to)
	switch to {
	case StageComplete:
		r.progress.Complete()
		r.stampLocked()
	case StageFailed:
		r.progress.Freeze()
		r.stampLocked()
	}
	fields := map[string]any{
		"request_id":       requestIDFromContext(ctx),
		"run_id":           r.snap.RunID,
		"user_id":          r.snap.OwnerID,
		"stage":            string(to),
		"stage_transition": string(from) + "->" + string(to),
		"progress":         r.progress.Value(),
	}
	if r.snap.Document != nil {
		fields["document_id"] = r.snap.Document.ID
	}
	if r.snap.Error != nil {
		fields["error_kind"] = string(r.snap.Error.Kind)
	}
	telemetry.Info("pipeline.stage", fields)
	r.notifyLocked()
}

func (r *run) stampLocked() {
	t := r.now().UTC()
	r.snap.CompletedAt = &t
}

func (r *run) fail(ctx context.Context, e *Error) {
	r.mu.Lock()
	r.snap.Error = e
	r.mu.Unlock()
	r.transition(ctx, StageFailed)
}

func (r *run) enter(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.progress.Value()
	r.progress.Enter(phase)
	if r.progress.Value() != before {
		r.notifyLocked()
	}
}

func (r *run) tick(step int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress.Tick(step) {
		r.notifyLocked()
	}
}

// startTicker advances progress every interval until the returned stop func
// is called. No tick lands after stop returns.
func (r *run) startTicker(interval time.Duration, step int) (stop func()) {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				r.tick(step)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
