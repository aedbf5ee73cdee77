// Command clarifyd serves the clarification wizard over HTTP.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clarityworks/clarifier/internal/catalog"
	"github.com/clarityworks/clarifier/internal/config"
	"github.com/clarityworks/clarifier/internal/engine"
	"github.com/clarityworks/clarifier/internal/export"
	"github.com/clarityworks/clarifier/internal/llm"
	"github.com/clarityworks/clarifier/internal/metrics"
	"github.com/clarityworks/clarifier/internal/project"
	"github.com/clarityworks/clarifier/internal/server"
	"github.com/clarityworks/clarifier/internal/stage"
	"github.com/clarityworks/clarifier/internal/validate"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("listen_addr", cfg.ListenAddr).
		Bool("completions", cfg.CompletionEnabled()).
		Msg("starting clarifyd")

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load stage catalog")
	}

	var client llm.Client = llm.Disabled{}
	if cfg.CompletionEnabled() {
		client = llm.NewOpenRouterClient(cfg.OpenRouterAPIKey,
			llm.WithModel(cfg.OpenRouterModel),
			llm.WithBaseURL(cfg.OpenRouterBaseURL),
			llm.WithLogger(logger),
		)
		logger.Info().Str("model", client.ModelID()).Msg("completion port enabled")
	} else {
		logger.Info().Msg("no API key configured, running offline")
	}

	store := project.NewStore(cfg.ClarityDir, logger)
	validator := validate.New(client, logger)
	registry := stage.NewRegistry(stage.NewSuggester(client, logger))
	exporter := export.New(cfg.OutputDir, cfg.ClarityDir, logger)
	collector := metrics.New()

	sessions := server.NewSessions(func(name string) (*engine.Engine, error) {
		return engine.New(name, engine.Options{
			Catalog:             cat,
			Registry:            registry,
			Validator:           validator,
			Store:               store,
			Exporter:            exporter,
			Client:              client,
			AssistedTransitions: cfg.AssistedTransitions() && cfg.CompletionEnabled(),
			Metrics:             collector,
			Logger:              logger,
		})
	})

	srv := server.New(server.Config{
		ListenAddr:  cfg.ListenAddr,
		CORSOrigins: cfg.CORSOrigins,
	}, sessions, store, cat, exporter, collector, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("clarifyd stopped")
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	return catalog.LoadDefault()
}
