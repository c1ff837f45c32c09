package domain

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError wraps any failure of an external evidence, model or
// embedding provider.
type ProviderError struct {
	Provider   string
	Kind       SourceKind
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout reports whether the provider call ran out of time.
func (e *ProviderError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsRetryable reports whether the same call may succeed later.
func (e *ProviderError) IsRetryable() bool {
	return e.Timeout() || e.StatusCode == 429 || e.StatusCode >= 500
}

func NewProviderError(provider, op string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, StatusCode: status, Err: err}
}
