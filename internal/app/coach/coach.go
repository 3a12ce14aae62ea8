// Package coach turns shot form data into a coaching snapshot, choosing between the
// rule engine and the alternate provider and caching recent results.
package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/shotcoach/internal/adapters/cache"
	"github.com/okian/shotcoach/internal/adapters/provider"
	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/internal/domain/version"
	"github.com/okian/shotcoach/pkg/logger"
	"github.com/okian/shotcoach/pkg/metrics"
)

const (
	defaultMaxCacheAge = 30 * time.Minute
	maxSuggestions     = 3
)

// Options tune a single GetSuggestions call.
type Options struct {
	// ForceRefresh bypasses the cache and recomputes.
	ForceRefresh bool
	// UseCache set to false opts this call out of cached results.
	UseCache *bool
}

func (o Options) cacheAllowed() bool {
	return !o.ForceRefresh && (o.UseCache == nil || *o.UseCache)
}

// Coach orchestrates one coaching mode. It is safe for concurrent use.
type Coach struct {
	mode     model.Mode
	engine   *coaching.Engine
	provider coaching.Provider
	cache    *cache.TTL
	caching  bool
	maxAge   time.Duration
	now      func() time.Time
	logger   logger.Logger
}

// New creates a rule-mode coach with caching enabled and the stub alternate
// provider.
func New(opts ...Option) *Coach {
	c := &Coach{
		mode:     model.ModeRule,
		engine:   coaching.NewEngine(),
		provider: provider.Stub{},
		cache:    cache.New(),
		caching:  true,
		maxAge:   defaultMaxCacheAge,
		now:      time.Now,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the configured coaching mode.
func (c *Coach) Mode() model.Mode {
	return c.mode
}

// Version returns the coaching version stamped on snapshots of this mode.
func (c *Coach) Version() string {
	return version.CurrentFor(string(c.mode))
}

// Engine returns the rule engine.
func (c *Coach) Engine() *coaching.Engine {
	return c.engine
}

// CacheSize returns the number of cached snapshots.
func (c *Coach) CacheSize() int {
	return c.cache.Size()
}

// GetSuggestions returns the coaching snapshot for form at roast. Alternate
// provider failures fall back to the rule engine and are never returned.
func (c *Coach) GetSuggestions(ctx context.Context, form model.ShotFormData, roast model.RoastLevel, opts Options) (model.CoachingSnapshot, error) {
	start := c.now()
	ver := c.Version()
	in := form.ToShotInput(roast)

	hash, err := version.GenerateInputHash(cacheRecord(form, in, ver))
	if err != nil {
		metrics.RecordCoachingRequest(string(c.mode), "error")
		return model.CoachingSnapshot{}, fmt.Errorf("derive cache key: %w", err)
	}
	key := string(c.mode) + "-" + hash

	if c.caching && opts.cacheAllowed() {
		if snap, ok := c.cache.Get(key, start, c.maxAge); ok {
			metrics.RecordCacheHit()
			metrics.RecordCoachingRequest(string(c.mode), "cache_hit")
			c.logger.Debug(ctx, "serving cached snapshot", logger.String("key", key))
			return snap, nil
		}
		metrics.RecordCacheMiss()
	}

	var (
		suggestions []model.Suggestion
		complete    = true
	)
	switch c.mode {
	case model.ModeAI:
		suggestions, complete = c.alternate(ctx, in)
	case model.ModeHybrid:
		suggestions, complete = c.hybrid(ctx, in)
	default:
		suggestions = c.engine.Coach(in)
	}
	if suggestions == nil {
		suggestions = []model.Suggestion{}
	}

	snap := model.CoachingSnapshot{
		Version:     ver,
		Mode:        c.mode,
		Suggestions: suggestions,
		InputHash:   hash,
		ComputedAt:  c.now(),
	}
	// A provider fallback is not cached, so the next call asks the provider again.
	if c.caching && complete {
		c.cache.Put(key, snap)
	}

	for _, s := range suggestions {
		metrics.RecordSuggestion(string(s.Field), string(s.Source))
	}
	metrics.RecordCoachingRequest(string(c.mode), "computed")
	metrics.RecordCoachingLatency(string(c.mode), float64(c.now().Sub(start).Microseconds())/1000)
	return snap, nil
}

// alternate asks the provider and falls back to the rule engine when it fails.
// The bool is false on fallback.
func (c *Coach) alternate(ctx context.Context, in model.ShotInput) ([]model.Suggestion, bool) {
	ai, ok := c.askProvider(ctx, in)
	if !ok {
		return c.engine.Coach(in), false
	}
	ai = coaching.Normalize(coaching.Dedupe(ai), c.engine.Config().Limits)
	return coaching.Truncate(coaching.SortByPriority(ai), maxSuggestions), true
}

// hybrid merges rule suggestions with alternate ones. On a direct conflict, an
// opposite-sign change to the same field, the rule suggestion wins.
func (c *Coach) hybrid(ctx context.Context, in model.ShotInput) ([]model.Suggestion, bool) {
	rules := c.engine.Coach(in)
	ai, ok := c.askProvider(ctx, in)
	if !ok {
		return rules, false
	}

	merged := append([]model.Suggestion(nil), rules...)
	for _, s := range ai {
		if conflicts(s, rules, in) {
			continue
		}
		merged = append(merged, s)
	}
	merged = coaching.Normalize(coaching.Dedupe(merged), c.engine.Config().Limits)
	return coaching.Truncate(coaching.SortByPriority(merged), maxSuggestions), true
}

// askProvider returns the provider's suggestions tagged as ai, or false when the
// call failed.
func (c *Coach) askProvider(ctx context.Context, in model.ShotInput) ([]model.Suggestion, bool) {
	summary := c.engine.Classifier().ClassifyShot(in)
	out, err := c.provider.Suggest(ctx, in, summary)
	if err != nil {
		c.logger.Warn(ctx, "alternate provider failed, using rule suggestions",
			logger.String("mode", string(c.mode)), logger.Error(err))
		metrics.RecordErrorByComponent("coach", "provider_fallback")
		return nil, false
	}
	for i := range out {
		out[i].Source = model.SourceAI
	}
	return out, true
}

func conflicts(s model.Suggestion, rules []model.Suggestion, in model.ShotInput) bool {
	cur := currentValue(in, s.Field)
	change := s.Change(cur)
	for _, r := range rules {
		if r.Field != s.Field {
			continue
		}
		rc := r.Change(cur)
		if (rc > 0 && change < 0) || (rc < 0 && change > 0) {
			return true
		}
	}
	return false
}

// currentValue is the shot's present setting for field, 0 when unknown.
func currentValue(in model.ShotInput, field model.Field) float64 {
	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	switch field {
	case model.FieldDose:
		return in.DoseG
	case model.FieldRatio:
		return in.EffectiveRatio()
	case model.FieldShotTime:
		return in.ShotTimeS
	case model.FieldWaterTemp:
		return deref(in.WaterTempC)
	case model.FieldPreinfusion:
		return deref(in.PreinfusionS)
	case model.FieldGrindStep:
		return deref(in.GrindStep)
	default:
		return 0
	}
}

// cacheRecord lists every parameter that influences the result. Blank time and
// absent temperature hash as null.
func cacheRecord(form model.ShotFormData, in model.ShotInput, ver string) map[string]any {
	var shotTime *float64
	if !form.Time.Blank() {
		shotTime = &in.ShotTimeS
	}
	return map[string]any{
		"dose":        in.DoseG,
		"yield":       in.YieldG,
		"time":        shotTime,
		"ratio":       in.Ratio,
		"temperature": in.WaterTempC,
		"roast":       string(in.Roast),
		"acidity":     in.Balance.Acidity,
		"bitterness":  in.Balance.Bitterness,
		"body":        in.Balance.Body,
		"aftertaste":  in.Balance.Aftertaste,
		"version":     ver,
	}
}
