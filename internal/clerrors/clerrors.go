// Package clerrors defines the error taxonomy shared across the clarifier.
// Sentinels cover expected conditions callers branch on; typed errors carry
// the context needed to report what failed and where.
package clerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrCompletionUnavailable means the completion port is not configured or
	// not reachable. Callers fall back to static behavior.
	ErrCompletionUnavailable = errors.New("completion port unavailable")

	// ErrEmptyCompletion means the completion API answered with no usable text.
	ErrEmptyCompletion = errors.New("completion returned no content")

	// ErrStageUnknown means a stage id is not present in the loaded catalog.
	ErrStageUnknown = errors.New("unknown stage")

	// ErrWorkflowComplete means a submission arrived after the terminal stage.
	ErrWorkflowComplete = errors.New("workflow already complete")
)

// ConfigError reports an invalid stage catalog or configuration value.
type ConfigError struct {
	Stage  string // offending stage id, if any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("config error in stage %q: %s", e.Stage, e.Reason)
	}
	return "config error: " + e.Reason
}

// ApplyError wraps a stage handler failure during Submit.
type ApplyError struct {
	Stage string
	Err   error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying stage %q: %v", e.Stage, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// PersistError wraps a storage read or write failure.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// CompletionError wraps a completion port failure with its call site.
type CompletionError struct {
	Caller string
	Err    error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion (%s): %v", e.Caller, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// IsRecoverable reports whether the workflow can continue past the error.
// Completion failures always have static fallbacks; persistence and config
// errors do not.
func IsRecoverable(err error) bool {
	if errors.Is(err, ErrCompletionUnavailable) || errors.Is(err, ErrEmptyCompletion) {
		return true
	}
	var completionErr *CompletionError
	return errors.As(err, &completionErr)
}
