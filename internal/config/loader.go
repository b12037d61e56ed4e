package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ENCORE_CONFIG is set
//  3. env (prefix ENCORE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ENCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: ENCORE_ADDR, ENCORE_MAX_QUEUE_SIZE, ...
	// Keys map to the flat koanf tags on the struct; underscores preserved.
	envProvider := env.Provider("ENCORE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "encore_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxQueueSize <= 0:
		return fmt.Errorf("%w: max_queue_size must be positive", ErrInvalidConfig)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive", ErrInvalidConfig)
	case c.RetryAttempts <= 0:
		return fmt.Errorf("%w: retry_attempts must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	switch c.QueuePolicy {
	case "shuffle", "roundrobin":
	default:
		return fmt.Errorf("%w: unknown queue_policy %q", ErrInvalidConfig, c.QueuePolicy)
	}
	return nil
}
