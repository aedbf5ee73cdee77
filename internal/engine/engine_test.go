package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/clerrors"
	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/project"
	"github.com/clarityworks/clarifier/internal/stage"
	"github.com/clarityworks/clarifier/internal/validate"
)

// countingExporter records export invocations.
type countingExporter struct {
	calls int
	fail  error
	last  *project.Record
}

func (c *countingExporter) Export(r *project.Record) error {
	c.calls++
	c.last = r
	if c.fail != nil {
		return c.fail
	}
	return nil
}

// scriptedClient returns canned replies in order, then errors.
type scriptedClient struct {
	replies []string
	calls   int
}

func (s *scriptedClient) Complete(context.Context, llm.CompletionRequest) (string, error) {
	if s.calls >= len(s.replies) {
		return "", clerrors.ErrCompletionUnavailable
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func (s *scriptedClient) ModelID() string { return "scripted" }

func testEngine(t *testing.T, opts ...func(*Options)) (*Engine, *countingExporter) {
	t.Helper()

	cat, err := catalog.LoadDefault()
	require.NoError(t, err)

	client := llm.Disabled{}
	exporter := &countingExporter{}
	options := Options{
		Catalog:   cat,
		Registry:  stage.NewRegistry(stage.NewSuggester(client, zerolog.Nop())),
		Validator: validate.New(client, zerolog.Nop()),
		Store:     project.NewStore(t.TempDir(), zerolog.Nop()),
		Exporter:  exporter,
		Logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(&options)
	}

	eng, err := New("demo", options)
	require.NoError(t, err)
	return eng, exporter
}

// walkToCompletion drives the engine through the default catalog with
// realistic answers.
func walkToCompletion(t *testing.T, eng *Engine) {
	t.Helper()
	ctx := context.Background()

	steps := []struct {
		stage string
		resp  stage.Responses
	}{
		{catalog.StageStart, stage.Responses{}},
		{catalog.StageClarifyIntent, stage.Responses{
			"description": "A task tracker for small teams",
			"purpose":     "keep everyone aligned",
			"goals":       "ship fast\nstay simple",
		}},
		{catalog.StageNotBuilder, stage.Responses{
			"excluded_features": "no mobile app",
			"constraints":       "two weeks",
		}},
		{catalog.StageMVPScoper, stage.Responses{
			"mvp_features": "kanban boards\nassignments",
			"target_user":  "small engineering teams",
		}},
		{catalog.StageStackSelector, stage.Responses{
			"frontend": "React",
			"backend":  "Node.js",
			"database": "PostgreSQL",
		}},
		{catalog.StageReasoner, stage.Responses{
			"reason_0": "team knows it",
		}},
		{catalog.StageFileMapBuilder, stage.Responses{
			"file_map": "src/App.jsx: Main component\nserver/index.js: API entry",
		}},
		{catalog.StageTaskPlanner, stage.Responses{
			"tasks": "Setup: README.md: 0.5h: 1\nBoards: src/boards.js: 2h: 2",
		}},
		{catalog.StageExporter, stage.Responses{}},
	}

	for _, step := range steps {
		require.Equal(t, step.stage, eng.CurrentStage())
		outcome, err := eng.Submit(ctx, step.stage, step.resp)
		require.NoError(t, err, step.stage)
		require.True(t, outcome.Accepted, step.stage)
	}
}

func TestEngine_FullWalkthrough(t *testing.T) {
	eng, exporter := testEngine(t)
	walkToCompletion(t, eng)

	assert.True(t, eng.Complete())
	assert.Equal(t, catalog.TerminalSentinel, eng.CurrentStage())
	assert.Equal(t, 1, exporter.calls)

	r := eng.Record()
	assert.Equal(t, "A task tracker for small teams", r.Description)
	assert.Equal(t, []string{"React", "Node.js", "PostgreSQL"}, r.TechStack)
	assert.Equal(t, "team knows it", r.Decisions["React"])
	assert.Len(t, r.Tasks, 2)
}

func TestEngine_RejectionKeepsStageAndFeedback(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	_, err := eng.Submit(ctx, catalog.StageStart, stage.Responses{})
	require.NoError(t, err)

	outcome, err := eng.Submit(ctx, catalog.StageClarifyIntent, stage.Responses{
		"description": "app",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, catalog.StageClarifyIntent, outcome.Stage)
	assert.NotEmpty(t, outcome.Feedback)

	// The feedback rides on the next prompt.
	data := eng.CurrentPrompt(ctx)
	assert.Equal(t, outcome.Feedback, data.Feedback)

	// A valid retry clears it.
	outcome, err = eng.Submit(ctx, catalog.StageClarifyIntent, stage.Responses{
		"description": "a task tracker for small teams",
	})
	require.NoError(t, err)
	require.True(t, outcome.Accepted)
	assert.Empty(t, eng.CurrentPrompt(ctx).Feedback)
}

func TestEngine_RejectionLeavesRecordUntouched(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	_, err := eng.Submit(ctx, catalog.StageStart, stage.Responses{})
	require.NoError(t, err)

	_, err = eng.Submit(ctx, catalog.StageClarifyIntent, stage.Responses{"description": "x"})
	require.NoError(t, err)
	assert.Empty(t, eng.Record().Description)
}

func TestEngine_WrongStageRejected(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.Submit(context.Background(), catalog.StageExporter, stage.Responses{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestEngine_SubmitAfterCompleteFails(t *testing.T) {
	eng, exporter := testEngine(t)
	walkToCompletion(t, eng)

	_, err := eng.Submit(context.Background(), catalog.StageStart, stage.Responses{})
	assert.ErrorIs(t, err, clerrors.ErrWorkflowComplete)
	assert.Equal(t, 1, exporter.calls)
}

func TestEngine_CurrentPromptIsIdempotent(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	first := eng.CurrentPrompt(ctx)
	second := eng.CurrentPrompt(ctx)
	assert.Equal(t, first, second)
}

func TestEngine_Progress(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	p := eng.Progress()
	assert.Equal(t, 0, p.Completed)
	assert.Equal(t, 9, p.Total)
	assert.Equal(t, 0.0, p.Fraction)

	_, err := eng.Submit(ctx, catalog.StageStart, stage.Responses{})
	require.NoError(t, err)

	p = eng.Progress()
	assert.Equal(t, 1, p.Completed)
	assert.Greater(t, p.Fraction, 0.0)

	walkRemaining(t, eng)
	p = eng.Progress()
	assert.Equal(t, 9, p.Completed)
	assert.Equal(t, 1.0, p.Fraction)
}

// walkRemaining finishes a workflow from wherever it currently is.
func walkRemaining(t *testing.T, eng *Engine) {
	t.Helper()
	ctx := context.Background()

	for i := 0; !eng.Complete() && i < 20; i++ {
		id := eng.CurrentStage()
		outcome, err := eng.Submit(ctx, id, defaultAnswers(id))
		require.NoError(t, err)
		require.True(t, outcome.Accepted, id)
	}
	require.True(t, eng.Complete())
}

// defaultAnswers returns a passing response for every rule-bearing stage of
// the built-in catalog.
func defaultAnswers(id string) stage.Responses {
	answers := map[string]stage.Responses{
		catalog.StageClarifyIntent: {"description": "a task tracker for small teams"},
		catalog.StageNotBuilder:    {"excluded_features": "no mobile app"},
		catalog.StageMVPScoper:     {"mvp_features": "boards\nassignments"},
		catalog.StageStackSelector: {"frontend": "React", "backend": "Node.js", "database": "PostgreSQL"},
		catalog.StageTaskPlanner:   {"tasks": "Setup: README.md: 0.5h: 1\nBoards: src/boards.js: 2h: 2"},
	}
	if resp, ok := answers[id]; ok {
		return resp
	}
	return stage.Responses{}
}

func TestEngine_PersistsAfterEverySubmit(t *testing.T) {
	dir := t.TempDir()
	store := project.NewStore(dir, zerolog.Nop())

	eng, _ := testEngine(t, func(o *Options) { o.Store = store })
	ctx := context.Background()

	_, err := eng.Submit(ctx, catalog.StageStart, stage.Responses{})
	require.NoError(t, err)
	_, err = eng.Submit(ctx, catalog.StageClarifyIntent, stage.Responses{
		"description": "a task tracker for small teams",
	})
	require.NoError(t, err)

	loaded, err := store.Load("demo")
	require.NoError(t, err)
	assert.Equal(t, "a task tracker for small teams", loaded.Description)
}

func TestEngine_ResumesFromSavedRecord(t *testing.T) {
	store := project.NewStore(t.TempDir(), zerolog.Nop())
	saved := project.NewRecord("demo")
	saved.Description = "already captured"
	require.NoError(t, store.Save(saved))

	eng, _ := testEngine(t, func(o *Options) { o.Store = store })
	assert.Equal(t, "already captured", eng.Record().Description)
	assert.Equal(t, catalog.StageStart, eng.CurrentStage())
}

func TestEngine_ExportFailureSurfaces(t *testing.T) {
	eng, exporter := testEngine(t)
	exporter.fail = errors.New("disk full")

	ctx := context.Background()

	var lastErr error
	for i := 0; !eng.Complete() && i < 20; i++ {
		id := eng.CurrentStage()
		_, lastErr = eng.Submit(ctx, id, defaultAnswers(id))
	}

	assert.True(t, eng.Complete())
	assert.EqualError(t, lastErr, "disk full")
}

func TestEngine_AssistedTransitionFollowsProposal(t *testing.T) {
	client := &scriptedClient{replies: []string{"mvp_scoper"}}
	eng, _ := testEngine(t, func(o *Options) {
		o.Client = client
		o.AssistedTransitions = true
	})

	outcome, err := eng.Submit(context.Background(), catalog.StageStart, stage.Responses{})
	require.NoError(t, err)
	assert.Equal(t, catalog.StageMVPScoper, outcome.Stage)
	assert.Equal(t, 1, client.calls)
}

func TestEngine_AssistedTransitionFallsBackToStatic(t *testing.T) {
	// An exhausted client errors on every call; the static chain must win.
	client := &scriptedClient{}
	eng, _ := testEngine(t, func(o *Options) {
		o.Client = client
		o.AssistedTransitions = true
	})

	outcome, err := eng.Submit(context.Background(), catalog.StageStart, stage.Responses{})
	require.NoError(t, err)
	assert.Equal(t, catalog.StageClarifyIntent, outcome.Stage)
}

func TestEngine_AssistedTransitionIgnoresGarbage(t *testing.T) {
	client := &scriptedClient{replies: []string{"definitely not a stage id"}}
	eng, _ := testEngine(t, func(o *Options) {
		o.Client = client
		o.AssistedTransitions = true
	})

	outcome, err := eng.Submit(context.Background(), catalog.StageStart, stage.Responses{})
	require.NoError(t, err)
	assert.Equal(t, catalog.StageClarifyIntent, outcome.Stage)
}

func TestEngine_OfflineCompletesEndToEnd(t *testing.T) {
	// The whole wizard must finish with the completion port disabled.
	eng, exporter := testEngine(t, func(o *Options) {
		o.Client = llm.Disabled{}
		o.AssistedTransitions = true
	})
	walkToCompletion(t, eng)

	assert.True(t, eng.Complete())
	assert.Equal(t, 1, exporter.calls)
}
