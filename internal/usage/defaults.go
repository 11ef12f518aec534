package usage

import "time"

const (
	defaultPlan   = "Starter"
	defaultLimit  = 10000
	defaultPeriod = 7 * 24 * time.Hour
)

// Defaults seeds the budget of an owner seen for the first time.
type Defaults struct {
	Plan   string
	Limit  int
	Period time.Duration
}

// DefaultsWithLimit returns the Starter plan with the given token limit.
func DefaultsWithLimit(limit int) Defaults {
	return Defaults{Plan: defaultPlan, Limit: limit, Period: defaultPeriod}.normalize()
}

func (d Defaults) normalize() Defaults {
	if d.Plan == "" {
		d.Plan = defaultPlan
	}
	if d.Limit <= 0 {
		d.Limit = defaultLimit
	}
	if d.Period <= 0 {
		d.Period = defaultPeriod
	}
	return d
}

func (d Defaults) fresh(now time.Time) Usage {
	return Usage{
		Plan:     d.Plan,
		Limit:    d.Limit,
		Used:     0,
		ResetsAt: now.Add(d.Period),
	}
}

func expired(u Usage, now time.Time) bool {
	return now.After(u.ResetsAt) || now.Equal(u.ResetsAt)
}
