package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clarityworks/clarifier/internal/project"
)

// AdHocHandler serves stage ids outside the built-in set. It is the escape hatch
// for catalog extensions and for stages the assisted transition policy picks
// that the core does not know. The prompt is produced by the completion port
// against a fixed JSON contract; responses land in the decisions map under
// the stage id so nothing is silently lost.
type AdHocHandler struct {
	id      string
	suggest *Suggester
}

// NewAdHocHandler creates a handler for an unknown stage id.
func NewAdHocHandler(id string, suggest *Suggester) *AdHocHandler {
	return &AdHocHandler{id: id, suggest: suggest}
}

func (h *AdHocHandler) ID() string { return h.id }

// adHocContract is the JSON shape requested from the completion port.
type adHocContract struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Questions   []struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	} `json:"questions"`
}

func (h *AdHocHandler) Prompt(ctx context.Context, r *project.Record) PromptData {
	if h.suggest != nil {
		if data, ok := h.modelPrompt(ctx, r); ok {
			return data
		}
	}
	return h.fallback()
}

func (h *AdHocHandler) modelPrompt(ctx context.Context, r *project.Record) (PromptData, bool) {
	user := fmt.Sprintf(
		"Generate questions for the %q stage of a project clarification workflow.\n"+
			"Project: %s\nDescription: %s\nTech stack: %s\n\n"+
			"Respond ONLY with JSON: {\"title\": ..., \"description\": ..., "+
			"\"questions\": [{\"id\": ..., \"question\": ...}]}",
		h.id, r.Name, r.Description, strings.Join(r.TechStack, ", "))

	reply, err := h.suggest.Raw(ctx, "You generate clarification questions for software projects.", user)
	if err != nil {
		return PromptData{}, false
	}

	var contract adHocContract
	if err := json.Unmarshal([]byte(extractJSON(reply)), &contract); err != nil {
		return PromptData{}, false
	}
	if contract.Title == "" || len(contract.Questions) == 0 {
		return PromptData{}, false
	}

	data := PromptData{Title: contract.Title, Description: contract.Description}
	for _, q := range contract.Questions {
		data.Fields = append(data.Fields, Field{ID: q.ID, Question: q.Question, Kind: KindText})
	}
	return data, true
}

func (h *AdHocHandler) fallback() PromptData {
	label := strings.ReplaceAll(h.id, "_", " ")
	return PromptData{
		Title:       titleCase(label),
		Description: fmt.Sprintf("Please provide information about %s.", label),
		Fields: []Field{
			{ID: "dynamic_input", Question: fmt.Sprintf("What are your thoughts on %s?", label), Kind: KindText},
		},
	}
}

func (h *AdHocHandler) Apply(r *project.Record, resp Responses) error {
	if text := strings.TrimSpace(resp.JoinedText()); text != "" {
		r.Decisions[h.id] = text
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// extractJSON strips a markdown code fence if the model wrapped its reply.
func extractJSON(reply string) string {
	if idx := strings.Index(reply, "```json"); idx >= 0 {
		reply = reply[idx+len("```json"):]
	} else if idx := strings.Index(reply, "```"); idx >= 0 {
		reply = reply[idx+3:]
	}
	if idx := strings.Index(reply, "```"); idx >= 0 {
		reply = reply[:idx]
	}
	return strings.TrimSpace(reply)
}
