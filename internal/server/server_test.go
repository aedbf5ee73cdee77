package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/engine"
	"github.com/clarityworks/clarifier/internal/export"
	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/metrics"
	"github.com/clarityworks/clarifier/internal/project"
	"github.com/clarityworks/clarifier/internal/stage"
	"github.com/clarityworks/clarifier/internal/validate"
)

// testApp wires a full server against temp storage.
func testApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zerolog.Nop()

	cat, err := catalog.LoadDefault()
	require.NoError(t, err)

	client := llm.Disabled{}
	store := project.NewStore(t.TempDir(), logger)
	registry := stage.NewRegistry(stage.NewSuggester(client, logger))
	validator := validate.New(client, logger)
	exporter := export.New(t.TempDir(), t.TempDir(), logger)
	collector := metrics.New()

	sessions := NewSessions(func(name string) (*engine.Engine, error) {
		return engine.New(name, engine.Options{
			Catalog:   cat,
			Registry:  registry,
			Validator: validator,
			Store:     store,
			Exporter:  exporter,
			Client:    client,
			Metrics:   collector,
			Logger:    logger,
		})
	})

	srv := New(Config{ListenAddr: ":0"}, sessions, store, cat, exporter, collector, logger)
	return srv.App()
}

func jsonReq(method, path, body string) *http.Request {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestServer_Healthz(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("GET", "/healthz", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Metrics(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("GET", "/metrics", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_CreateProject(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects", `{"name":"demo"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body PromptResponse
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "demo", body.Project)
	assert.Equal(t, catalog.StageStart, body.Stage)
	assert.Equal(t, "Starting Project", body.Prompt.Title)
}

func TestServer_CreateProject_MissingName(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects", `{}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "missing_name", problem.Type)
}

func TestServer_SubmitAdvancesStage(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"stage":"start","responses":{}}`), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome engine.Outcome
	json.NewDecoder(resp.Body).Decode(&outcome)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, catalog.StageClarifyIntent, outcome.Stage)
}

func TestServer_SubmitRejectionReturnsFeedback(t *testing.T) {
	app := testApp(t)

	_, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"stage":"start","responses":{}}`), -1)
	require.NoError(t, err)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"stage":"clarify_intent","responses":{"description":"app"}}`), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome engine.Outcome
	json.NewDecoder(resp.Body).Decode(&outcome)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, catalog.StageClarifyIntent, outcome.Stage)
	assert.NotEmpty(t, outcome.Feedback)
}

func TestServer_SubmitWrongStage(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"stage":"exporter","responses":{}}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_SubmitMissingStage(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"responses":{}}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_GetPrompt(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("GET", "/api/v1/projects/demo/prompt", ""), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body PromptResponse
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, catalog.StageStart, body.Stage)
}

func TestServer_GetProgress(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("GET", "/api/v1/projects/demo/progress", ""), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var progress engine.Progress
	json.NewDecoder(resp.Body).Decode(&progress)
	assert.Equal(t, 9, progress.Total)
	assert.Equal(t, 0, progress.Completed)
}

func TestServer_ListProjects(t *testing.T) {
	app := testApp(t)

	_, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/submit",
		`{"stage":"start","responses":{}}`), -1)
	require.NoError(t, err)

	resp, err := app.Test(jsonReq("GET", "/api/v1/projects", ""), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ProjectListResponse
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, []string{"demo"}, body.Projects)
}

func TestServer_ExportProject(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/projects/demo/export", ""), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ReloadCatalog(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("POST", "/api/v1/catalog/reload", ""), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, true, body["reloaded"])
}

func TestServer_RequestIDHeader(t *testing.T) {
	app := testApp(t)

	resp, err := app.Test(jsonReq("GET", "/healthz", ""), -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
