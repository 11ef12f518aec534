package pipeline

// Phase is a stretch of work that owns a band of the progress bar.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseUploading
	PhaseExtracting
	PhaseCategorizing
	PhaseSaving
)

type band struct {
	start, ceiling int
}

var bands = map[Phase]band{
	PhaseUploading:    {start: 0, ceiling: 25},
	PhaseExtracting:   {start: 25, ceiling: 50},
	PhaseCategorizing: {start: 50, ceiling: 75},
	PhaseSaving:       {start: 75, ceiling: 90},
}

// Progress is the percentage shown to the user. It is independent of Stage
// and never decreases.
type Progress struct {
	value int
	phase Phase
}

// Value returns the current percentage.
func (p *Progress) Value() int { return p.value }

// Enter moves into phase, snapping up to its band start if behind it.
func (p *Progress) Enter(phase Phase) {
	p.phase = phase
	if b, ok := bands[phase]; ok && p.value < b.start {
		p.value = b.start
	}
}

// Tick advances by step inside the current band but stays below its ceiling.
// It reports whether the value changed.
func (p *Progress) Tick(step int) bool {
	b, ok := bands[p.phase]
	if !ok || step <= 0 {
		return false
	}
	limit := b.ceiling - 1
	if p.value >= limit {
		return false
	}
	p.value += step
	if p.value > limit {
		p.value = limit
	}
	return true
}

// Complete snaps to 100. It is the only way to reach 100.
func (p *Progress) Complete() {
	p.phase = PhaseNone
	p.value = 100
}

// Freeze stops ticking at the current value.
func (p *Progress) Freeze() {
	p.phase = PhaseNone
}
