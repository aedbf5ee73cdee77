package llm

import (
	"context"

	"github.com/clarityworks/clarifier/internal/clerrors"
)

// Disabled is a Client for offline runs. Every call fails with
// ErrCompletionUnavailable so callers exercise their static fallbacks.
type Disabled struct{}

func (Disabled) Complete(context.Context, CompletionRequest) (string, error) {
	return "", clerrors.ErrCompletionUnavailable
}

func (Disabled) ModelID() string { return "disabled" }
