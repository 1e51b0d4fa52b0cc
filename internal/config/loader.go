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

	"github.com/mdaly0277/marketintel/internal/domain/format"
	"github.com/mdaly0277/marketintel/internal/domain/tier"
)

const (
	envPrefix  = "MI_"
	envCfgPath = "MI_CONFIG"
)

// Load builds a Config by layering defaults, an optional YAML file and env
// vars, then validates it.
func Load(ctx context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envCfgPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// MI_QUEUE_SIZE -> queue_size. Keys are flat, underscores kept.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envCfgPath {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.DataDir == "" && c.DataBaseURL == "":
		return invalid("one of data_dir or data_base_url is required")
	case c.ScreenerFile == "":
		return invalid("screener_file must not be empty")
	case c.TopN < 0:
		return invalid("top_n must be >= 0, got %d", c.TopN)
	case c.WorkerCount < 1:
		return invalid("worker_count must be >= 1, got %d", c.WorkerCount)
	case c.QueueSize < 1:
		return invalid("queue_size must be >= 1, got %d", c.QueueSize)
	case c.RefreshIntervalSec < 0:
		return invalid("refresh_interval_sec must be >= 0, got %d", c.RefreshIntervalSec)
	case c.FetchTimeoutMS < 1:
		return invalid("fetch_timeout_ms must be >= 1, got %d", c.FetchTimeoutMS)
	case c.MaxPageLimit < 1:
		return invalid("max_page_limit must be >= 1, got %d", c.MaxPageLimit)
	case c.ReloadPerMinute < 1:
		return invalid("reload_per_minute must be >= 1, got %d", c.ReloadPerMinute)
	}
	if _, err := tier.Lookup(c.TierScheme); err != nil {
		return invalid("tier_scheme: %v", err)
	}
	if _, err := format.ParseScale(c.ReturnScale); err != nil {
		return invalid("return_scale: %v", err)
	}
	return nil
}
