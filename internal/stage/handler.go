// Package stage implements the per-stage handlers of the clarification
// wizard: each handler renders prompt data from the project record and folds
// submitted responses back into it.
package stage

import (
	"context"
	"sort"
	"strings"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/project"
)

// Field kinds rendered by the UI layer.
const (
	KindText        = "text"
	KindSelect      = "select"
	KindMultiSelect = "multiselect"
)

// Field is one question shown to the user.
type Field struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"` // current selection for multiselect
}

// PromptData is the UI-facing payload for one stage.
type PromptData struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Feedback    string  `json:"feedback,omitempty"`
	Fields      []Field `json:"fields"`
}

// Responses maps field ids to submitted values: strings for text and select
// fields, string slices for multiselect.
type Responses map[string]any

// Text returns the string value for a field id, or "".
func (r Responses) Text(id string) string {
	if v, ok := r[id].(string); ok {
		return v
	}
	return ""
}

// List returns the slice value for a field id. A plain string is wrapped.
func (r Responses) List(id string) []string {
	switch v := r[id].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// JoinedText concatenates every submitted value, keyed in sorted order, for
// whole-response validation. The wizard validates the stage's combined
// free-text answer rather than each field independently.
func (r Responses) JoinedText() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				parts = append(parts, v)
			}
		case []string:
			parts = append(parts, v...)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Handler is the per-stage capability pair: produce a prompt, apply responses.
// Apply must either fully succeed or leave the record untouched; the engine
// guarantees this by handing Apply a throwaway clone.
type Handler interface {
	ID() string
	Prompt(ctx context.Context, r *project.Record) PromptData
	Apply(r *project.Record, resp Responses) error
}

// Registry resolves stage ids to handlers. Unknown ids get an AdHocHandler,
// keeping the core state machine enumerable while still serving stages a
// catalog (or the assisted policy) invents.
type Registry struct {
	handlers map[string]Handler
	suggest  *Suggester
}

// NewRegistry builds the built-in handler set. The suggester is shared by
// every handler that offers pre-filled advisory content.
func NewRegistry(suggest *Suggester) *Registry {
	reg := &Registry{
		handlers: make(map[string]Handler),
		suggest:  suggest,
	}
	for _, h := range []Handler{
		&StartHandler{},
		&ClarifyIntentHandler{suggest: suggest},
		&NotBuilderHandler{suggest: suggest},
		&MVPScoperHandler{suggest: suggest},
		&StackSelectorHandler{suggest: suggest},
		&ReasonerHandler{suggest: suggest},
		&FileMapHandler{},
		&TaskPlannerHandler{},
		&ExportHandler{},
	} {
		reg.handlers[h.ID()] = h
	}
	return reg
}

// Handler returns the handler for a stage id, falling back to an ad-hoc
// handler for ids outside the built-in set.
func (g *Registry) Handler(id string) Handler {
	if h, ok := g.handlers[id]; ok {
		return h
	}
	return NewAdHocHandler(id, g.suggest)
}

// Known reports whether the id has a built-in handler.
func (g *Registry) Known(id string) bool {
	_, ok := g.handlers[id]
	return ok
}

// FallbackPrompt is returned when a handler cannot produce its prompt; the
// engine promises CurrentPrompt never fails.
func FallbackPrompt(def *catalog.StageDefinition) PromptData {
	title := "Tell me more"
	if def != nil {
		title = def.Label
	}
	return PromptData{
		Title:       title,
		Description: "Tell me more about your project.",
		Fields: []Field{{
			ID:       "details",
			Question: "What else should I know?",
			Kind:     KindText,
		}},
	}
}
