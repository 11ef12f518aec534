package pipeline

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const defaultRunTTL = 15 * time.Minute

// Registry keeps recent runs in memory so clients can poll them. Finished
// runs are dropped once they are older than the TTL.
type Registry struct {
	mu      sync.Mutex
	runs    map[string]*run
	ttl     time.Duration
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

// NewRegistry constructs a Registry. A zero ttl uses the default.
func NewRegistry(ttl time.Duration, now func() time.Time) *Registry {
	if ttl <= 0 {
		ttl = defaultRunTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		runs:    make(map[string]*run),
		ttl:     ttl,
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *Registry) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(r.now()), r.entropy).String()
}

func (r *Registry) add(rn *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.runs[rn.snap.RunID] = rn
}

// Get returns the latest snapshot of a run.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.Lock()
	r.sweepLocked()
	rn, ok := r.runs[id]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return rn.snapshot(), true
}

// Len returns the number of tracked runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.runs)
}

func (r *Registry) sweepLocked() {
	cutoff := r.now().Add(-r.ttl)
	for id, rn := range r.runs {
		snap := rn.snapshot()
		if snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff) {
			delete(r.runs, id)
		}
	}
}
