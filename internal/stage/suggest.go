package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/project"
)

const suggestSystemPrompt = "You are a pragmatic software project advisor. " +
	"Answer with plain text suggestions only, no preamble."

// Static fallback suggestions, served whenever the completion port fails.
// The wizard's advisory content must never depend on connectivity.
var staticSuggestions = map[string]string{
	"goals": "1. Create an intuitive user interface for non-technical users\n" +
		"2. Implement secure data storage and retrieval\n" +
		"3. Enable seamless integration with existing systems\n" +
		"4. Provide comprehensive analytics and reporting\n" +
		"5. Ensure scalability to handle growing user base",
	"features": "1. User authentication and profile management\n" +
		"2. Core functionality for primary use case\n" +
		"3. Basic dashboard with essential metrics\n" +
		"4. Simple data export capabilities\n" +
		"5. Minimal admin controls for oversight\n" +
		"6. Responsive design for mobile and desktop",
	"exclusions": "1. Advanced analytics and reporting\n" +
		"2. Third-party integrations beyond essential ones\n" +
		"3. Custom theming and white-labeling\n" +
		"4. Multi-language support\n" +
		"5. Offline functionality",
	"stack": "Frontend: React with Material UI\n" +
		"Backend: Node.js with Express\n" +
		"Database: PostgreSQL for structured data",
}

// Suggester wraps the completion port with task-specific prompt templates and
// serves advisory pre-fill text to handlers. Every method is best-effort: a
// port failure falls back to the static table and never propagates.
type Suggester struct {
	client llm.Client
	logger zerolog.Logger
}

// NewSuggester creates a Suggester. A nil client means static fallbacks only.
func NewSuggester(client llm.Client, logger zerolog.Logger) *Suggester {
	if client == nil {
		client = llm.Disabled{}
	}
	return &Suggester{
		client: client,
		logger: logger.With().Str("component", "stage.suggest").Logger(),
	}
}

func (s *Suggester) complete(ctx context.Context, user string, fallbackKey string) string {
	reply, err := s.client.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.SystemUser(suggestSystemPrompt, user),
		Temperature: 0.7,
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("fallback", fallbackKey).Msg("suggestion completion failed")
		return staticSuggestions[fallbackKey]
	}
	return strings.TrimSpace(reply)
}

// Goals suggests project goals from the description.
func (s *Suggester) Goals(ctx context.Context, r *project.Record) string {
	return s.complete(ctx,
		fmt.Sprintf("Suggest up to five concrete goals for this project:\n\nDescription: %s", r.Description),
		"goals")
}

// Features suggests MVP features from the description and goals.
func (s *Suggester) Features(ctx context.Context, r *project.Record) string {
	return s.complete(ctx,
		fmt.Sprintf("Suggest essential MVP features, one per line.\n\nDescription: %s\nGoals: %s",
			r.Description, strings.Join(r.Goals, "; ")),
		"features")
}

// Exclusions suggests features to leave out of the MVP.
func (s *Suggester) Exclusions(ctx context.Context, r *project.Record) string {
	return s.complete(ctx,
		fmt.Sprintf("Suggest features to exclude from the MVP of this project, one per line.\n\nDescription: %s",
			r.Description),
		"exclusions")
}

// TechStack suggests a technology stack for the project.
func (s *Suggester) TechStack(ctx context.Context, r *project.Record) string {
	return s.complete(ctx,
		fmt.Sprintf("Recommend a tech stack (frontend, backend, database) for:\n\nDescription: %s\nMVP features: %s",
			r.Description, strings.Join(r.MVPFeatures, "; ")),
		"stack")
}

// Rationale suggests a one-paragraph rationale for a technology choice.
func (s *Suggester) Rationale(ctx context.Context, tech string) string {
	reply, err := s.client.Complete(ctx, llm.CompletionRequest{
		Messages: llm.SystemUser(suggestSystemPrompt,
			fmt.Sprintf("In one short paragraph, why is %s a reasonable choice for a small project?", tech)),
		Temperature: 0.7,
	})
	if err != nil {
		return fmt.Sprintf("%s is an excellent choice because it offers a good balance of performance, "+
			"developer experience, and community support.", tech)
	}
	return strings.TrimSpace(reply)
}

// Raw sends a free-form prompt through the port. Used by the ad-hoc handler;
// the error is returned so the caller can pick its own fallback.
func (s *Suggester) Raw(ctx context.Context, system, user string) (string, error) {
	return s.client.Complete(ctx, llm.CompletionRequest{
		Messages:    llm.SystemUser(system, user),
		Temperature: 0.7,
	})
}
