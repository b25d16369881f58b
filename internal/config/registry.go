// Package config loads WIND binaries' environment-variable configuration,
// grounded on the teacher's config.go (caarlos0/env + godotenv, validated
// struct with env defaults, structured logging of the final config).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// RegistryConfig holds cmd/registryd's configuration.
type RegistryConfig struct {
	Addr          string        `env:"WIND_REGISTRY_ADDR" envDefault:"127.0.0.1:7001"`
	MetricsAddr   string        `env:"WIND_REGISTRY_METRICS_ADDR" envDefault:"127.0.0.1:7090"`
	DefaultTTL    time.Duration `env:"WIND_REGISTRY_DEFAULT_TTL" envDefault:"60s"`
	CleanupPeriod time.Duration `env:"WIND_REGISTRY_CLEANUP_PERIOD" envDefault:"1s"`
	WatchSinkSize int           `env:"WIND_REGISTRY_WATCH_SINK_SIZE" envDefault:"64"`

	LogLevel  string `env:"WIND_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"WIND_LOG_FORMAT" envDefault:"json"`
}

// LoadRegistryConfig reads configuration from an optional .env file and the
// environment, in that priority order (env vars win). A nil logger is
// tolerated for the earliest startup phase, before structured logging is
// available.
func LoadRegistryConfig(logger *zerolog.Logger) (*RegistryConfig, error) {
	if err := godotenv.Load(); err != nil && logger != nil {
		logger.Info().Msg("no .env file found, using environment variables only")
	}

	cfg := &RegistryConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse registry config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate registry config: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded configuration for obviously broken values.
func (c *RegistryConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("WIND_REGISTRY_ADDR is required")
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("WIND_REGISTRY_DEFAULT_TTL must be > 0, got %s", c.DefaultTTL)
	}
	if c.CleanupPeriod <= 0 {
		return fmt.Errorf("WIND_REGISTRY_CLEANUP_PERIOD must be > 0, got %s", c.CleanupPeriod)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("WIND_LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "pretty": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("WIND_LOG_FORMAT must be one of json, pretty (got %q)", c.LogFormat)
	}
	return nil
}

// LogConfig emits the loaded configuration as one structured log line.
func (c *RegistryConfig) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("addr", c.Addr).
		Str("metrics_addr", c.MetricsAddr).
		Dur("default_ttl", c.DefaultTTL).
		Dur("cleanup_period", c.CleanupPeriod).
		Int("watch_sink_size", c.WatchSinkSize).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("registry configuration loaded")
}
