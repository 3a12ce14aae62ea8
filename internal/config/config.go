// Package config defines service configuration and its defaults.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/shotcoach/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Mode is the default coaching mode: rule, ai or hybrid.
	Mode string `koanf:"mode"`

	// AIAPIKey authenticates against the alternate suggestion provider.
	AIAPIKey string `koanf:"ai_api_key"`

	// AIBaseURL enables the HTTP alternate provider when set.
	AIBaseURL string `koanf:"ai_base_url"`

	// AITimeoutMS bounds one alternate provider call.
	AITimeoutMS int `koanf:"ai_timeout_ms"`

	// AIRateLimit caps alternate provider calls per second.
	AIRateLimit float64 `koanf:"ai_rate_limit"`

	// EnableCaching turns on the snapshot TTL cache.
	EnableCaching bool `koanf:"enable_caching"`

	// MaxCacheAgeMS is the cache time-to-live.
	MaxCacheAgeMS int64 `koanf:"max_cache_age_ms"`

	// CacheMaxEntries bounds the cache; 0 means unbounded.
	CacheMaxEntries int `koanf:"cache_max_entries"`

	// DBPath is the SQLite snapshot database. Empty keeps snapshots in memory.
	DBPath string `koanf:"db_path"`

	// RefreshWorkers sets the number of snapshot refresh workers.
	RefreshWorkers int `koanf:"refresh_workers"`

	// RefreshQueueSize bounds the refresh queue.
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// SweepIntervalMS schedules stale snapshot sweeps; 0 sweeps only at startup.
	SweepIntervalMS int64 `koanf:"sweep_interval_ms"`

	// RoastThresholds overrides the per-roast taste thresholds of the rule engine.
	RoastThresholds map[string]float64 `koanf:"roast_thresholds"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Mode:             string(model.ModeRule),
		AITimeoutMS:      5_000,
		AIRateLimit:      2,
		EnableCaching:    true,
		MaxCacheAgeMS:    int64((30 * time.Minute) / time.Millisecond),
		CacheMaxEntries:  10_000,
		RefreshWorkers:   runtime.NumCPU(),
		RefreshQueueSize: 1_000,
	}
}

// MaxCacheAge returns MaxCacheAgeMS as a duration.
func (c *Config) MaxCacheAge() time.Duration {
	return time.Duration(c.MaxCacheAgeMS) * time.Millisecond
}

// AITimeout returns AITimeoutMS as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutMS) * time.Millisecond
}

// SweepInterval returns SweepIntervalMS as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMS) * time.Millisecond
}

// Thresholds converts RoastThresholds to roast levels. Names are parsed leniently.
func (c *Config) Thresholds() (map[model.RoastLevel]float64, error) {
	out := make(map[model.RoastLevel]float64, len(c.RoastThresholds))
	for name, th := range c.RoastThresholds {
		roast, err := model.ParseRoastLevel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: roast_thresholds: %w", ErrInvalidConfig, err)
		}
		out[roast] = th
	}
	return out, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := model.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxCacheAgeMS < 0 {
		return fmt.Errorf("%w: max_cache_age_ms must not be negative", ErrInvalidConfig)
	}
	if c.AITimeoutMS < 0 || c.AIRateLimit < 0 {
		return fmt.Errorf("%w: ai_timeout_ms and ai_rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.CacheMaxEntries < 0 || c.RefreshQueueSize < 0 || c.SweepIntervalMS < 0 {
		return fmt.Errorf("%w: sizes and intervals must not be negative", ErrInvalidConfig)
	}
	thresholds, err := c.Thresholds()
	if err != nil {
		return err
	}
	for roast, th := range thresholds {
		if th <= 0 {
			return fmt.Errorf("%w: threshold for %s must be positive", ErrInvalidConfig, roast)
		}
	}
	return nil
}
