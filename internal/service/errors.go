package service

import (
	"errors"
	"fmt"
)

var (
	ErrMessageEmpty     = errors.New("message is required")
	ErrThreadIDMissing  = errors.New("thread_id is required")
	ErrThreadNotFound   = errors.New("thread not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrJudgeUnavailable = errors.New("conflict check unavailable")
	ErrNoEvidence       = errors.New("no usable evidence returned")
)

// Category classifies a cycle failure before it reaches the event stream.
type Category string

const (
	ClassificationFailure Category = "classification_failure"
	PartialSourceFailure  Category = "partial_source_failure"
	TotalSourceFailure    Category = "total_source_failure"
	DraftOrCompileFailure Category = "draft_or_compile_failure"
	GuardrailRefusal      Category = "guardrail_refusal"
)

// CycleError is the only error type a stage hands to the orchestrator.
// Message is safe to show to the user; Err keeps the underlying cause for logs.
type CycleError struct {
	Category Category
	Message  string
	Err      error
}

func (e *CycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *CycleError) Unwrap() error { return e.Err }

// Fatal reports whether the failure ends the cycle.
func (e *CycleError) Fatal() bool {
	switch e.Category {
	case TotalSourceFailure, DraftOrCompileFailure:
		return true
	}
	return false
}

func newCycleError(c Category, msg string, err error) *CycleError {
	return &CycleError{Category: c, Message: msg, Err: err}
}

// IsCategory reports whether err is a CycleError of category c.
func IsCategory(err error, c Category) bool {
	var ce *CycleError
	return errors.As(err, &ce) && ce.Category == c
}
