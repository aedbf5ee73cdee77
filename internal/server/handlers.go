package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/clarityworks/clarifier/internal/clerrors"
	"github.com/clarityworks/clarifier/internal/engine"
	"github.com/clarityworks/clarifier/internal/stage"
)

// ProblemDetail is the RFC 7807 style error body returned by every endpoint.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, typ, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// CreateProjectRequest is the body of POST /api/v1/projects.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// PromptResponse pairs the active stage id with its prompt payload.
type PromptResponse struct {
	Project string           `json:"project"`
	Stage   string           `json:"stage"`
	Prompt  stage.PromptData `json:"prompt"`
}

// SubmitRequest is the body of POST /api/v1/projects/:name/submit.
type SubmitRequest struct {
	Stage     string          `json:"stage"`
	Responses stage.Responses `json:"responses"`
}

// ProjectListResponse is the body of GET /api/v1/projects.
type ProjectListResponse struct {
	Projects []string `json:"projects"`
}

// CreateProject handles POST /api/v1/projects.
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request",
			"Project name is required")
	}

	var resp PromptResponse
	err := s.sessions.With(req.Name, func(eng *engine.Engine) error {
		resp = PromptResponse{
			Project: req.Name,
			Stage:   eng.CurrentStage(),
			Prompt:  eng.CurrentPrompt(c.Context()),
		}
		return nil
	})
	if err != nil {
		return s.engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListProjects handles GET /api/v1/projects.
func (s *Server) ListProjects(c *fiber.Ctx) error {
	names, err := s.store.List()
	if err != nil {
		return s.engineError(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(ProjectListResponse{Projects: names})
}

// GetPrompt handles GET /api/v1/projects/:name/prompt.
func (s *Server) GetPrompt(c *fiber.Ctx) error {
	name := c.Params("name")

	var resp PromptResponse
	err := s.sessions.With(name, func(eng *engine.Engine) error {
		resp = PromptResponse{
			Project: name,
			Stage:   eng.CurrentStage(),
			Prompt:  eng.CurrentPrompt(c.Context()),
		}
		return nil
	})
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(resp)
}

// Submit handles POST /api/v1/projects/:name/submit.
func (s *Server) Submit(c *fiber.Ctx) error {
	name := c.Params("name")

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if req.Stage == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_stage", "Bad Request",
			"Stage id is required")
	}

	var outcome engine.Outcome
	err := s.sessions.With(name, func(eng *engine.Engine) error {
		var submitErr error
		outcome, submitErr = eng.Submit(c.Context(), req.Stage, req.Responses)
		return submitErr
	})
	if err != nil {
		if errors.Is(err, clerrors.ErrWorkflowComplete) {
			return problemResponse(c, fiber.StatusConflict,
				"workflow_complete", "Conflict",
				"The workflow has already finished")
		}
		return s.engineError(c, err)
	}
	return c.JSON(outcome)
}

// GetProgress handles GET /api/v1/projects/:name/progress.
func (s *Server) GetProgress(c *fiber.Ctx) error {
	name := c.Params("name")

	var progress engine.Progress
	err := s.sessions.With(name, func(eng *engine.Engine) error {
		progress = eng.Progress()
		return nil
	})
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(progress)
}

// ExportProject handles POST /api/v1/projects/:name/export. It re-runs the
// export for an already persisted project, whatever stage it is in.
func (s *Server) ExportProject(c *fiber.Ctx) error {
	name := c.Params("name")

	err := s.sessions.With(name, func(eng *engine.Engine) error {
		return s.exporter.Export(eng.Record())
	})
	if err != nil {
		return s.engineError(c, err)
	}
	return c.JSON(fiber.Map{"exported": true, "project": name})
}

// ReloadCatalog handles POST /api/v1/catalog/reload. Live engines are
// discarded so the next request picks up the new stage graph.
func (s *Server) ReloadCatalog(c *fiber.Ctx) error {
	if err := s.catalog.Reload(); err != nil {
		var cfgErr *clerrors.ConfigError
		if errors.As(err, &cfgErr) {
			return problemResponse(c, fiber.StatusUnprocessableEntity,
				"invalid_catalog", "Unprocessable Entity",
				err.Error())
		}
		return s.engineError(c, err)
	}
	s.sessions.Reset()
	return c.JSON(fiber.Map{"reloaded": true, "stages": s.catalog.Len()})
}

// Liveness handles GET /healthz.
func (s *Server) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// engineError maps engine and storage errors onto problem responses.
func (s *Server) engineError(c *fiber.Ctx, err error) error {
	var persistErr *clerrors.PersistError
	if errors.As(err, &persistErr) {
		return problemResponse(c, fiber.StatusInternalServerError,
			"persistence_error", "Internal Server Error",
			err.Error())
	}

	var applyErr *clerrors.ApplyError
	if errors.As(err, &applyErr) {
		return problemResponse(c, fiber.StatusUnprocessableEntity,
			"apply_error", "Unprocessable Entity",
			err.Error())
	}

	if errors.Is(err, clerrors.ErrStageUnknown) {
		return problemResponse(c, fiber.StatusNotFound,
			"stage_unknown", "Not Found",
			err.Error())
	}

	return problemResponse(c, fiber.StatusInternalServerError,
		"internal_error", "Internal Server Error",
		err.Error())
}
