package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrRunInProgress = errors.New("a pipeline run is already in progress for this owner")
	ErrRunNotFound   = errors.New("pipeline run not found")
	ErrOwnerRequired = errors.New("owner id required")
)

// Kind classifies why a run failed.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindQuotaExceeded  Kind = "quota_exceeded"
	KindStorage        Kind = "storage_error"
	KindExtraction     Kind = "extraction_error"
	KindCategorization Kind = "categorization_error"
	KindPersistence    Kind = "persistence_error"
	KindQuotaService   Kind = "quota_service_error"
	KindInternal       Kind = "internal_error"
)

// Error is the failure attached to a run. Message is safe to show to users;
// Err keeps the underlying cause for logs.
type Error struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Remaining *int   `json:"remaining,omitempty"`
	Err       error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: userMessage(kind, 0), Err: err}
}

func quotaExceeded(remaining int) *Error {
	return &Error{
		Kind:      KindQuotaExceeded,
		Message:   userMessage(KindQuotaExceeded, remaining),
		Remaining: &remaining,
	}
}

func userMessage(kind Kind, remaining int) string {
	switch kind {
	case KindValidation:
		return "Please upload a PDF file no larger than 5 MB."
	case KindQuotaExceeded:
		return fmt.Sprintf("You have run out of analysis tokens (%d remaining). Check your usage before retrying.", remaining)
	case KindStorage:
		return "We couldn't store your résumé. Please retry the upload."
	case KindExtraction:
		return "We couldn't read text from this PDF. Try a different file."
	case KindCategorization:
		return "Skill analysis failed. Please retry the upload in a moment."
	case KindPersistence:
		return "Your skills couldn't be saved. Please retry the upload."
	case KindQuotaService:
		return "We couldn't verify your token balance. Please try again shortly."
	default:
		return "Something went wrong. Please try again."
	}
}
