// Package config loads the syncached daemon configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the daemon configuration. Every field has a working default
// so an empty environment yields a runnable single-node setup (in-memory
// fast tier, local SQLite durable tier).
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `env:"SYNCACHE_LISTEN_ADDR" envDefault:":8080"`

	// RedisAddr selects Redis as the fast tier when set (host:port).
	RedisAddr string `env:"SYNCACHE_REDIS_ADDR"`

	// MemcachedAddr selects memcached as the fast tier when set (host:port).
	// Ignored when RedisAddr is also set.
	MemcachedAddr string `env:"SYNCACHE_MEMCACHED_ADDR"`

	// SQLitePath is the durable-tier database file.
	SQLitePath string `env:"SYNCACHE_SQLITE_PATH" envDefault:"syncache.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"SYNCACHE_LOG_LEVEL" envDefault:"info"`

	// LogFormat is json or console.
	LogFormat string `env:"SYNCACHE_LOG_FORMAT" envDefault:"json"`

	// FetchTimeout bounds each upstream fetch call.
	FetchTimeout time.Duration `env:"SYNCACHE_FETCH_TIMEOUT" envDefault:"30s"`

	// FailureCooldown is the per-key window during which a failed upstream
	// is not re-fetched. Zero disables the gate.
	FailureCooldown time.Duration `env:"SYNCACHE_FAILURE_COOLDOWN" envDefault:"30s"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
