// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Store operations (hit/miss, key, tier, TTL)
//   - Coverage decisions (have vs want windows, fetch direction)
//   - Backfill promotions from the durable tier
//
// Info: Normal operation events
//   - Successful syncs and their fetch windows
//   - Domain registration
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Fast-tier degradation to durable-only
//   - Fetch failures served from cached data
//   - Fetch retry attempts and cooldown gating
//   - Durable-tier write failures (soft)
//
// Error: Error conditions requiring attention
//   - Cold-path fetch failures (no cached data to fall back on)
//   - Malformed request parameters
//   - Configuration errors
//
// Context Fields:
//   - component: package emitting the log line
//   - domain: data domain name
//   - key: cache key string
//   - cache_hit: boolean indicating cache hit
//   - window_start / window_end: fetch window bounds
//   - direction: fetch direction (cold, extend, backfill)
//   - duration: operation duration
//   - ttl: fast-tier TTL
