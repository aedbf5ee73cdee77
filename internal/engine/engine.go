// Package engine drives one project through the ordered clarification stages.
//
// The engine owns the project record and the active stage id; there is no
// ambient session state. Exactly one stage is active at a time and every
// instance is single-threaded; callers that share an engine across goroutines
// must serialize access themselves.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/clerrors"
	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/metrics"
	"github.com/clarityworks/clarifier/internal/project"
	"github.com/clarityworks/clarifier/internal/stage"
	"github.com/clarityworks/clarifier/internal/validate"
)

// Exporter writes the final artifacts for a completed project.
type Exporter interface {
	Export(*project.Record) error
}

// Options bundles the engine's collaborators.
type Options struct {
	Catalog   *catalog.Catalog
	Registry  *stage.Registry
	Validator *validate.Validator
	Store     *project.Store
	Exporter  Exporter

	// Client powers assisted transitions. Optional; nil or failing clients
	// degrade to the static policy.
	Client              llm.Client
	AssistedTransitions bool

	Metrics *metrics.Metrics // optional
	Logger  zerolog.Logger
}

// Outcome reports the result of one Submit call.
type Outcome struct {
	Stage    string  `json:"stage"`
	Accepted bool    `json:"accepted"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
	Complete bool    `json:"complete"`
}

// Engine walks a single project through the workflow.
type Engine struct {
	opts   Options
	logger zerolog.Logger

	record   *project.Record
	current  string
	complete bool
	exported bool
	feedback string // validation feedback carried into the next prompt
}

// New creates an engine for the named project, loading its saved record if
// one exists.
func New(name string, opts Options) (*Engine, error) {
	if opts.Client == nil {
		opts.Client = llm.Disabled{}
	}

	record, err := opts.Store.LoadOrCreate(name)
	if err != nil {
		return nil, err
	}

	return &Engine{
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "engine").Str("project", name).Logger(),
		record:  record,
		current: opts.Catalog.StartStage(),
	}, nil
}

// Record returns the current project record.
func (e *Engine) Record() *project.Record { return e.record }

// CurrentStage returns the active stage id, or the terminal sentinel once
// the workflow is complete.
func (e *Engine) CurrentStage() string {
	if e.complete {
		return catalog.TerminalSentinel
	}
	return e.current
}

// Complete reports whether the workflow has reached the terminal state.
func (e *Engine) Complete() bool { return e.complete }

// CurrentPrompt returns the UI payload for the active stage. It never fails:
// a misbehaving handler degrades to a generic prompt. Calling it repeatedly
// without an intervening Submit returns identical data.
func (e *Engine) CurrentPrompt(ctx context.Context) (data stage.PromptData) {
	def, _ := e.opts.Catalog.Stage(e.current)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("stage", e.current).Msg("handler panicked in prompt")
			data = stage.FallbackPrompt(def)
		}
		data.Feedback = e.feedback
	}()

	data = e.opts.Registry.Handler(e.current).Prompt(ctx, e.record)
	return data
}

// Submit validates and applies the user's responses for the active stage.
//
// The record is never left half-mutated: the handler works on a clone that
// is committed only if it returns cleanly. Validation rejections are part of
// the Outcome, not errors; errors mean apply, persistence or export failed.
func (e *Engine) Submit(ctx context.Context, stageID string, resp stage.Responses) (Outcome, error) {
	if e.complete {
		return Outcome{Stage: catalog.TerminalSentinel, Complete: true}, clerrors.ErrWorkflowComplete
	}
	if stageID != e.current {
		return Outcome{Stage: e.current}, fmt.Errorf("stage %q is not active (current: %q)", stageID, e.current)
	}

	def, known := e.opts.Catalog.Stage(stageID)

	// Validation runs only for stages that declare rules; the whole-response
	// text is the concatenation of the submitted free-text answers.
	if known && len(def.Rules) > 0 {
		result := e.opts.Validator.Validate(ctx, def, resp.JoinedText())
		e.observeScore(result.Score)
		if !result.Accepted {
			e.feedback = result.Feedback
			e.countSubmission(stageID, "rejected")
			e.logger.Debug().Str("stage", stageID).Float64("score", result.Score).Msg("submission rejected")
			return Outcome{Stage: e.current, Feedback: result.Feedback, Score: result.Score}, nil
		}
	}

	// All-or-nothing apply on a throwaway clone.
	draft := e.record.Clone()
	if err := e.applyHandler(stageID, draft, resp); err != nil {
		e.countSubmission(stageID, "apply_error")
		return Outcome{Stage: e.current}, &clerrors.ApplyError{Stage: stageID, Err: err}
	}
	e.record = draft
	e.feedback = ""

	// Write-through persistence. A failed write must not look like success.
	if err := e.opts.Store.Save(e.record); err != nil {
		e.countSubmission(stageID, "persist_error")
		return Outcome{Stage: e.current, Accepted: true}, err
	}

	next := e.nextStage(ctx, stageID)
	e.current = next
	e.countSubmission(stageID, "accepted")

	if next == catalog.TerminalSentinel {
		e.complete = true
		if err := e.exportOnce(); err != nil {
			return Outcome{Stage: next, Accepted: true, Complete: true}, err
		}
	}

	e.logger.Info().Str("stage", stageID).Str("next", next).Msg("stage submitted")
	return Outcome{Stage: next, Accepted: true, Complete: e.complete}, nil
}

func (e *Engine) applyHandler(stageID string, draft *project.Record, resp stage.Responses) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return e.opts.Registry.Handler(stageID).Apply(draft, resp)
}

// exportOnce triggers the terminal export exactly once per engine lifetime.
func (e *Engine) exportOnce() error {
	if e.exported || e.opts.Exporter == nil {
		return nil
	}
	e.exported = true
	if err := e.opts.Exporter.Export(e.record); err != nil {
		return err
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.ExportsTotal.Inc()
	}
	return nil
}

// Progress describes how far through the workflow the project is.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
}

// Progress reports position within the catalog order.
func (e *Engine) Progress() Progress {
	total := e.opts.Catalog.Len()

	completed := total
	if !e.complete {
		if pos := e.opts.Catalog.Position(e.current); pos >= 0 {
			completed = pos
		} else {
			completed = 0
		}
	}

	fraction := 1.0
	if total > 1 {
		fraction = float64(completed) / float64(total-1)
	}
	if fraction > 1 {
		fraction = 1
	}
	return Progress{Completed: completed, Total: total, Fraction: fraction}
}

// nextStage computes the transition for a submitted stage. The static policy
// is always available; the assisted policy may override it when the
// completion port proposes a valid stage id.
func (e *Engine) nextStage(ctx context.Context, stageID string) string {
	static := e.opts.Catalog.Next(stageID)
	if !e.opts.AssistedTransitions {
		return static
	}

	proposed, err := e.proposeNext(ctx, stageID)
	if err != nil {
		e.countCompletion("transition", "error")
		e.logger.Debug().Err(err).Msg("assisted transition failed, using static policy")
		return static
	}
	e.countCompletion("transition", "ok")

	for _, id := range e.opts.Catalog.Order() {
		if id != stageID && strings.Contains(proposed, id) {
			return id
		}
	}
	if strings.Contains(proposed, catalog.TerminalSentinel) {
		return catalog.TerminalSentinel
	}
	return static
}

func (e *Engine) proposeNext(ctx context.Context, stageID string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current stage: %s\n\nProject state summary:\n", stageID)
	fmt.Fprintf(&sb, "- Description: %s\n", orUnset(e.record.Description))
	fmt.Fprintf(&sb, "- MVP features: %d defined\n", len(e.record.MVPFeatures))
	fmt.Fprintf(&sb, "- Excluded features: %d defined\n", len(e.record.ExcludedFeatures))
	fmt.Fprintf(&sb, "- Tech stack: %d technologies\n", len(e.record.TechStack))
	fmt.Fprintf(&sb, "- File map: %d entries\n- Tasks: %d planned\n", len(e.record.FileMap), len(e.record.Tasks))
	sb.WriteString("\nAvailable stage ids:\n")
	for _, id := range e.opts.Catalog.Order() {
		fmt.Fprintf(&sb, "- %s\n", id)
	}
	fmt.Fprintf(&sb, "- %s\n\nRespond with only the id of the next stage.", catalog.TerminalSentinel)

	reply, err := e.opts.Client.Complete(ctx, llm.CompletionRequest{
		Messages: llm.SystemUser(
			"You choose the next step in a project clarification workflow.",
			sb.String(),
		),
		Temperature: 0.2,
	})
	if err != nil {
		return "", &clerrors.CompletionError{Caller: "engine.transition", Err: err}
	}
	return strings.ToLower(strings.TrimSpace(reply)), nil
}

func (e *Engine) countSubmission(stageID, result string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.SubmissionsTotal.WithLabelValues(stageID, result).Inc()
	}
}

func (e *Engine) observeScore(score float64) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.ValidationScore.Observe(score)
	}
}

func (e *Engine) countCompletion(caller, status string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.CompletionCalls.WithLabelValues(caller, status).Inc()
	}
}

func orUnset(s string) string {
	if s == "" {
		return "not provided"
	}
	return s
}
