// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers file and env on top.
// - External errors are wrapped via this package's sentinel kinds.
package config

import "github.com/rkarimi/encore/internal/domain/model"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is where the SQLite database lives. Empty selects the
	// in-memory store (nothing survives a restart).
	DataDir string `koanf:"data_dir"`

	// MaxQueueSize caps how many opponents one ranking pass presents.
	MaxQueueSize int `koanf:"max_queue_size"`

	// KFactor caps the rating points transferable per comparison.
	KFactor float64 `koanf:"k_factor"`

	// BaselineRating is assigned to freshly logged sets.
	BaselineRating float64 `koanf:"baseline_rating"`

	// RetryAttempts bounds internal retries of transient storage failures.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBackoffMS is the base backoff between retries, doubled per
	// attempt.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// DedupeSize bounds the vote idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// QueuePolicy selects the opponent ordering: shuffle or roundrobin.
	QueuePolicy string `koanf:"queue_policy"`

	// QueueSeed seeds the shuffle policy; 0 means time-seeded.
	QueueSeed int64 `koanf:"queue_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		DataDir:             "",
		MaxQueueSize:        10,
		KFactor:             32,
		BaselineRating:      model.BaselineRating,
		RetryAttempts:       3,
		RetryBackoffMS:      50,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		QueuePolicy:         "shuffle",
		QueueSeed:           0,
	}
}
