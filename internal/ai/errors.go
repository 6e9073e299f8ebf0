package ai

import (
	"errors"
	"fmt"
)

// ErrBudgetExceeded is returned when a session has used up its token budget.
var ErrBudgetExceeded = errors.New("token budget exceeded")

// ErrBlocked indicates the provider refused to answer for safety reasons.
type ErrBlocked struct {
	Reason string // provider category, e.g. SAFETY; may be empty
	Err    error
}

func (e *ErrBlocked) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("content blocked: %s", e.Reason)
	}
	return "content blocked"
}

func (e *ErrBlocked) Unwrap() error { return e.Err }

// ErrModelNotFound indicates the configured model does not exist for the
// provider.
type ErrModelNotFound struct {
	Model string
	Err   error
}

func (e *ErrModelNotFound) Error() string {
	return fmt.Sprintf("model %q not found: %v", e.Model, e.Err)
}

func (e *ErrModelNotFound) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down, unreachable or
// rejected the request.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("AI provider unavailable: %v", e.Err)
	}
	return "AI provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }
