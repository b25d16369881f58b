// Package logging builds the structured zerolog logger shared by every
// WIND binary, grounded on the teacher's internal/single/monitoring/logger.go.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors the teacher's LogLevel string enum.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Format selects the console writer used for local development versus the
// JSON writer used in production (Loki-compatible).
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Config configures New.
type Config struct {
	Level     Level
	Format    Format
	Component string // stamped as a "component" field on every record
}

// New builds a zerolog.Logger with a timestamp, caller info, and a
// "service"/"component" field for filtering in aggregated logs.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stdout

	level := zerolog.InfoLevel
	switch cfg.Level {
	case LevelDebug:
		level = zerolog.DebugLevel
	case LevelInfo:
		level = zerolog.InfoLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	case LevelFatal:
		level = zerolog.FatalLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Caller().
		Str("service", "wind").
		Logger()

	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}
	return logger
}
