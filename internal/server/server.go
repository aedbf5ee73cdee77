// Package server exposes the clarification wizard over HTTP so a browser
// front end (or curl) can drive the same engine the CLI uses.
package server

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/metrics"
	"github.com/clarityworks/clarifier/internal/project"
)

// Exporter re-exports a project's artifacts on demand.
type Exporter interface {
	Export(*project.Record) error
}

// Config holds the server's settings.
type Config struct {
	ListenAddr  string
	CORSOrigins string
}

// Server is the wizard's Fiber application.
type Server struct {
	app      *fiber.App
	sessions *Sessions
	store    *project.Store
	catalog  *catalog.Catalog
	exporter Exporter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	config   Config
}

// New creates and configures the HTTP server.
func New(
	cfg Config,
	sessions *Sessions,
	store *project.Store,
	cat *catalog.Catalog,
	exporter Exporter,
	metricsCollector *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:      app,
		sessions: sessions,
		store:    store,
		catalog:  cat,
		exporter: exporter,
		metrics:  metricsCollector,
		logger:   logger.With().Str("component", "server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware(cfg Config) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		reqID := c.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	// Request logging, skipping probe noise
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/metrics" {
			return c.Next()
		}

		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", c.Locals("request_id").(string)).
			Msg("api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.Liveness)

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	v1 := s.app.Group("/api/v1")

	v1.Post("/projects", s.CreateProject)
	v1.Get("/projects", s.ListProjects)
	v1.Get("/projects/:name/prompt", s.GetPrompt)
	v1.Post("/projects/:name/submit", s.Submit)
	v1.Get("/projects/:name/progress", s.GetProgress)
	v1.Post("/projects/:name/export", s.ExportProject)

	v1.Post("/catalog/reload", s.ReloadCatalog)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8070"
	}

	s.logger.Info().Str("addr", addr).Msg("wizard API server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("wizard API server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
