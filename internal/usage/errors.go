package usage

import "errors"

var (
	// ErrQuotaService indicates the budget backend could not answer.
	ErrQuotaService = errors.New("quota service unavailable")
	// ErrInvalidInput is returned for calls without an owner.
	ErrInvalidInput = errors.New("invalid usage request")
)
