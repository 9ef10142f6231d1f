// Package config holds runtime configuration for all binaries.
package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// MutationTimeout bounds every ledger mutation; mutations are safe to
	// retry on timeout with the same client transaction id.
	MutationTimeout time.Duration `envconfig:"MUTATION_TIMEOUT" default:"10s"`

	// AllowNegativeStock keeps the observed oversell behavior: issues may
	// drive on-hand quantity negative. Set false to reject instead.
	AllowNegativeStock bool `envconfig:"ALLOW_NEGATIVE_STOCK" default:"true"`

	// IdempotencyTTL is how long recorded client transaction ids are kept
	// before the reconcile worker prunes them.
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"168h"`

	// ReconcileInterval is the pause between reconcile worker passes.
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"10m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database url must be provided")
	}
	return &cfg, nil
}

// IsDevelopment returns true when the application runs in development.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
