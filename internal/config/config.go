// Package config loads clarifier configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Transition policy names accepted in TransitionPolicy.
const (
	PolicyStatic   = "static"
	PolicyAssisted = "assisted"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Workspace layout
	ClarityDir string `envconfig:"CLARIFIER_STATE_DIR" default:".clarity"`
	OutputDir  string `envconfig:"CLARIFIER_OUTPUT_DIR" default:"."`

	// Stage catalog. Empty means the embedded default catalog.
	CatalogPath string `envconfig:"CLARIFIER_CATALOG_PATH"`

	// Transition policy: "static" (default) or "assisted" (the completion
	// port picks the next stage, falling back to static on any failure).
	TransitionPolicy string `envconfig:"CLARIFIER_TRANSITION_POLICY" default:"static"`

	// OpenRouter settings. Optional, the wizard runs fully offline without them.
	OpenRouterAPIKey  string        `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterModel   string        `envconfig:"OPENROUTER_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	OpenRouterBaseURL string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	CompletionTimeout time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"60s"`

	// HTTP daemon
	ListenAddr  string `envconfig:"CLARIFYD_LISTEN_ADDR" default:":8070"`
	CORSOrigins string `envconfig:"CLARIFYD_CORS_ORIGINS"`
}

// CompletionEnabled returns true if an OpenRouter key is configured.
func (c *Config) CompletionEnabled() bool {
	return c.OpenRouterAPIKey != ""
}

// AssistedTransitions returns true if the assisted transition policy is selected.
func (c *Config) AssistedTransitions() bool {
	return c.TransitionPolicy == PolicyAssisted
}

// Validate checks cross-field constraints not expressible as envconfig tags.
func (c *Config) Validate() error {
	switch c.TransitionPolicy {
	case PolicyStatic, PolicyAssisted:
	default:
		return fmt.Errorf("invalid CLARIFIER_TRANSITION_POLICY %q, expected %q or %q",
			c.TransitionPolicy, PolicyStatic, PolicyAssisted)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
