package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/project"
)

// StartHandler is the no-op entry stage.
type StartHandler struct{}

func (h *StartHandler) ID() string { return catalog.StageStart }

func (h *StartHandler) Prompt(_ context.Context, r *project.Record) PromptData {
	return PromptData{
		Title:       "Starting Project",
		Description: fmt.Sprintf("Initializing project: %s", r.Name),
	}
}

func (h *StartHandler) Apply(*project.Record, Responses) error { return nil }

// ClarifyIntentHandler captures description, purpose and goals.
type ClarifyIntentHandler struct {
	suggest *Suggester
}

func (h *ClarifyIntentHandler) ID() string { return catalog.StageClarifyIntent }

func (h *ClarifyIntentHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	desc := "Let's clarify what you want to build and why."
	if h.suggest != nil && r.Description != "" {
		desc += "\n\nSuggested goals:\n" + h.suggest.Goals(ctx, r)
	}
	return PromptData{
		Title:       "Project Intent",
		Description: desc,
		Fields: []Field{
			{ID: "description", Question: "Describe the project in a sentence or two.", Kind: KindText, Value: r.Description},
			{ID: "purpose", Question: "What problem does it solve?", Kind: KindText, Value: r.Purpose},
			{ID: "goals", Question: "What are the main goals? (One per line)", Kind: KindText, Value: strings.Join(r.Goals, "\n")},
		},
	}
}

func (h *ClarifyIntentHandler) Apply(r *project.Record, resp Responses) error {
	if v := strings.TrimSpace(resp.Text("description")); v != "" {
		r.Description = v
	}
	if v := strings.TrimSpace(resp.Text("purpose")); v != "" {
		r.Purpose = v
	}
	if goals := SplitItems(resp.Text("goals")); len(goals) > 0 {
		r.Goals = goals
	}
	return nil
}

// NotBuilderHandler records what the MVP will not include.
type NotBuilderHandler struct {
	suggest *Suggester
}

func (h *NotBuilderHandler) ID() string { return catalog.StageNotBuilder }

func (h *NotBuilderHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	desc := "Let's identify what will NOT be included in the MVP to keep the scope focused."
	if h.suggest != nil && r.Description != "" {
		desc += "\n\nCommon candidates to exclude:\n" + h.suggest.Exclusions(ctx, r)
	}
	return PromptData{
		Title:       "Scope Reduction",
		Description: desc,
		Fields: []Field{
			{ID: "excluded_features", Question: "What features will NOT be included in the MVP? (One per line)", Kind: KindText, Value: strings.Join(r.ExcludedFeatures, "\n")},
			{ID: "constraints", Question: "Any constraints or limitations to consider? (One per line)", Kind: KindText, Value: strings.Join(r.Constraints, "\n")},
		},
	}
}

func (h *NotBuilderHandler) Apply(r *project.Record, resp Responses) error {
	r.ExcludedFeatures = SplitItems(resp.Text("excluded_features"))
	r.Constraints = SplitItems(resp.Text("constraints"))
	return nil
}

// MVPScoperHandler defines the MVP feature set and the target user.
type MVPScoperHandler struct {
	suggest *Suggester
}

func (h *MVPScoperHandler) ID() string { return catalog.StageMVPScoper }

func (h *MVPScoperHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	desc := "Now, let's define the core features that will be included in the MVP."
	if h.suggest != nil && r.Description != "" {
		desc += "\n\nSuggested features:\n" + h.suggest.Features(ctx, r)
	}
	return PromptData{
		Title:       "MVP Feature Scoping",
		Description: desc,
		Fields: []Field{
			{ID: "mvp_features", Question: "What are the essential features for the MVP? (One per line)", Kind: KindText, Value: strings.Join(r.MVPFeatures, "\n")},
			{ID: "target_user", Question: "Who is the target user for this MVP?", Kind: KindText, Value: r.TargetUser},
		},
	}
}

func (h *MVPScoperHandler) Apply(r *project.Record, resp Responses) error {
	if features := SplitItems(resp.Text("mvp_features")); len(features) > 0 {
		r.MVPFeatures = features
	}
	r.TargetUser = strings.TrimSpace(resp.Text("target_user"))
	return nil
}
