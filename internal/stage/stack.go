package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/project"
)

// Technology option lists offered by the stack selector. "Other" routes the
// choice into the free-text field instead of the stack.
var (
	frontendOptions = []string{"React", "Vue", "Angular", "Next.js", "Svelte", "HTML/CSS/JS", "Other"}
	backendOptions  = []string{"Node.js", "Python/Flask", "Python/FastAPI", "Python/Django", "Java/Spring", "Go", "Ruby on Rails", "PHP", "Other"}
	databaseOptions = []string{"PostgreSQL", "MySQL", "MongoDB", "SQLite", "Firebase", "DynamoDB", "Supabase", "Other"}
	aiOptions       = []string{"OpenAI API", "Hugging Face", "LangChain", "TensorFlow", "PyTorch", "Other"}
)

// StackSelectorHandler picks the technology stack. Submitting it rebuilds
// techStack from scratch: replace, never merge.
type StackSelectorHandler struct {
	suggest *Suggester
}

func (h *StackSelectorHandler) ID() string { return catalog.StageStackSelector }

func (h *StackSelectorHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	desc := "Select the technologies you plan to use for this project."
	if h.suggest != nil && r.Description != "" {
		desc += "\n\nRecommendation:\n" + h.suggest.TechStack(ctx, r)
	}
	return PromptData{
		Title:       "Technology Stack Selection",
		Description: desc,
		Fields: []Field{
			{ID: "frontend", Question: "Frontend Technology", Kind: KindSelect, Options: frontendOptions, Value: firstIn(r.TechStack, frontendOptions)},
			{ID: "backend", Question: "Backend Technology", Kind: KindSelect, Options: backendOptions, Value: firstIn(r.TechStack, backendOptions)},
			{ID: "database", Question: "Database Technology", Kind: KindSelect, Options: databaseOptions, Value: firstIn(r.TechStack, databaseOptions)},
			{ID: "ai_ml", Question: "AI/ML Technologies (if applicable)", Kind: KindMultiSelect, Options: aiOptions, Values: allIn(r.TechStack, aiOptions)},
			{ID: "other_tech", Question: "Other Technologies (comma separated)", Kind: KindText},
		},
	}
}

func (h *StackSelectorHandler) Apply(r *project.Record, resp Responses) error {
	r.TechStack = nil

	for _, key := range []string{"frontend", "backend", "database"} {
		if v := strings.TrimSpace(resp.Text(key)); v != "" && v != "Other" {
			r.TechStack = append(r.TechStack, v)
		}
	}
	for _, tech := range resp.List("ai_ml") {
		if tech != "Other" {
			r.TechStack = append(r.TechStack, tech)
		}
	}
	r.TechStack = append(r.TechStack, SplitCommaItems(resp.Text("other_tech"))...)
	return nil
}

// ReasonerHandler records the rationale behind each technology choice plus
// free-form "Decision: Reasoning" lines. Keys overwrite, never append.
type ReasonerHandler struct {
	suggest *Suggester
}

func (h *ReasonerHandler) ID() string { return catalog.StageReasoner }

func (h *ReasonerHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	fields := make([]Field, 0, len(r.TechStack)+1)
	for i, tech := range r.TechStack {
		question := fmt.Sprintf("Why did you choose %s?", tech)
		if h.suggest != nil && r.Decisions[tech] == "" {
			question += "\n# " + h.suggest.Rationale(ctx, tech)
		}
		fields = append(fields, Field{
			ID:       fmt.Sprintf("reason_%d", i),
			Question: question,
			Kind:     KindText,
			Value:    r.Decisions[tech],
		})
	}
	fields = append(fields, Field{
		ID:       "additional_decisions",
		Question: "Any other architectural decisions to document? (Format: Decision: Reasoning)",
		Kind:     KindText,
	})

	return PromptData{
		Title:       "Technology Decision Reasoning",
		Description: "Explain the reasoning behind your technology choices.",
		Fields:      fields,
	}
}

func (h *ReasonerHandler) Apply(r *project.Record, resp Responses) error {
	for i, tech := range r.TechStack {
		if reason := strings.TrimSpace(resp.Text(fmt.Sprintf("reason_%d", i))); reason != "" {
			r.Decisions[tech] = reason
		}
	}
	for key, value := range ParseKeyValues(resp.Text("additional_decisions")) {
		r.Decisions[key] = value
	}
	return nil
}

func firstIn(stack []string, options []string) string {
	for _, tech := range stack {
		for _, opt := range options {
			if tech == opt {
				return tech
			}
		}
	}
	return ""
}

func allIn(stack []string, options []string) []string {
	var out []string
	for _, tech := range stack {
		for _, opt := range options {
			if tech == opt {
				out = append(out, tech)
			}
		}
	}
	return out
}
