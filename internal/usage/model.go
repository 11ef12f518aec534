package usage

import "time"

// Usage represents a user's token budget for the current window.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns the unspent tokens, never below zero.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Availability is the verdict of a budget check.
type Availability struct {
	IsAvailable bool `json:"isAvailable"`
	Remaining   int  `json:"remaining"`
}
