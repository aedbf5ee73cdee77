// Package llm defines the text completion port and its OpenRouter implementation.
// Everything "intelligent" in the clarifier goes through this interface, and
// every caller carries its own static fallback; the wizard must finish with
// zero connectivity.
package llm

import "context"

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single role-tagged turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a Client's Complete() call.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Model       string // override client default if set
}

// Client is the text completion port. Implementations must treat every
// failure (network, non-2xx, empty reply) as an error return, never a panic.
type Client interface {
	// Complete sends a completion request and waits for the generated text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelID returns the configured model identifier.
	ModelID() string
}

// SystemUser builds the common two-message system+user request shape.
func SystemUser(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}
