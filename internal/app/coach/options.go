package coach

import (
	"time"

	"github.com/okian/shotcoach/internal/adapters/cache"
	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/logger"
)

// Option configures a Coach.
type Option func(*Coach)

// WithMode selects rule, ai or hybrid coaching. Unknown modes are ignored.
func WithMode(m model.Mode) Option {
	return func(c *Coach) {
		switch m {
		case model.ModeRule, model.ModeAI, model.ModeHybrid:
			c.mode = m
		}
	}
}

// WithEngine replaces the rule engine.
func WithEngine(e *coaching.Engine) Option {
	return func(c *Coach) {
		if e != nil {
			c.engine = e
		}
	}
}

// WithProvider sets the alternate provider used by the ai and hybrid modes.
func WithProvider(p coaching.Provider) Option {
	return func(c *Coach) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithCaching turns the snapshot cache on or off.
func WithCaching(enabled bool) Option {
	return func(c *Coach) {
		c.caching = enabled
	}
}

// WithMaxCacheAge sets how long a cached snapshot may be served.
func WithMaxCacheAge(d time.Duration) Option {
	return func(c *Coach) {
		if d >= 0 {
			c.maxAge = d
		}
	}
}

// WithCache supplies the cache, e.g. one bounded by entry count.
func WithCache(t *cache.TTL) Option {
	return func(c *Coach) {
		if t != nil {
			c.cache = t
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coach) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coach) {
		if l != nil {
			c.logger = l
		}
	}
}
