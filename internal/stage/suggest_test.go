package stage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/project"
)

// echoClient returns its canned reply for every request.
type echoClient struct{ reply string }

func (e echoClient) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return e.reply, nil
}

func (echoClient) ModelID() string { return "echo" }

func TestSuggester_StaticFallbacksOffline(t *testing.T) {
	s := NewSuggester(llm.Disabled{}, zerolog.Nop())
	r := project.NewRecord("demo")
	r.Description = "a task tracker"
	ctx := context.Background()

	assert.Equal(t, staticSuggestions["goals"], s.Goals(ctx, r))
	assert.Equal(t, staticSuggestions["features"], s.Features(ctx, r))
	assert.Equal(t, staticSuggestions["exclusions"], s.Exclusions(ctx, r))
	assert.Equal(t, staticSuggestions["stack"], s.TechStack(ctx, r))
	assert.Contains(t, s.Rationale(ctx, "React"), "React")
}

func TestSuggester_UsesCompletionWhenAvailable(t *testing.T) {
	s := NewSuggester(echoClient{reply: "  1. custom goal  "}, zerolog.Nop())
	r := project.NewRecord("demo")

	assert.Equal(t, "1. custom goal", s.Goals(context.Background(), r))
}

func TestSuggester_RawPropagatesErrors(t *testing.T) {
	s := NewSuggester(llm.Disabled{}, zerolog.Nop())
	_, err := s.Raw(context.Background(), "system", "user")
	assert.Error(t, err)
}

func TestSuggester_NilClientDefaultsToDisabled(t *testing.T) {
	s := NewSuggester(nil, zerolog.Nop())
	assert.Equal(t, staticSuggestions["goals"], s.Goals(context.Background(), project.NewRecord("x")))
}
