// Package coaching turns a shot's taste balance into a short, ranked list of
// parameter adjustments.
//
// The rule engine runs six stages: per-dimension rule generation, roast bias,
// extraction-direction weighting, per-field dedupe, clamping, and final ranking.
package coaching

import (
	"context"
	"sort"

	"github.com/okian/shotcoach/internal/domain/extraction"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// Provider produces suggestions for a shot. The rule engine is one implementation;
// alternate providers may fail and are treated as best effort by callers.
type Provider interface {
	Suggest(ctx context.Context, in model.ShotInput, summary model.ExtractionSummary) ([]model.Suggestion, error)
}

// Engine is the rule-based suggestion engine. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cfg        Config
	classifier *extraction.Classifier
}

// NewEngine creates a rule engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		cfg:        DefaultConfig(),
		classifier: extraction.NewClassifier(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the calibration in use.
func (e *Engine) Config() Config {
	return e.cfg
}

// Classifier returns the classifier used for directional weighting.
func (e *Engine) Classifier() *extraction.Classifier {
	return e.classifier
}

type ranked struct {
	s     model.Suggestion
	score float64
}

// Coach returns at most MaxSuggestions suggestions for in, most important first.
func (e *Engine) Coach(in model.ShotInput) []model.Suggestion {
	if in.Ratio == nil {
		in.Ratio = mathutil.Ptr(in.EffectiveRatio())
	}

	candidates := generate(in, e.cfg)
	for i := range candidates {
		candidates[i] = applyRoastBias(candidates[i], in.Roast, e.cfg)
	}

	summary := e.classifier.ClassifyShot(in)
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = directionWeight(c, summary, *in.Ratio, e.cfg)
	}

	var out []ranked
	for _, idx := range dedupeIndex(candidates) {
		s, ok := normalizeOne(candidates[idx], e.cfg.Limits)
		if !ok || reversedByClamp(candidates[idx], s, *in.Ratio) {
			continue
		}
		out = append(out, ranked{s: s, score: float64(s.Priority) + weights[idx]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score < out[j].score
	})

	result := make([]model.Suggestion, 0, len(out))
	for _, r := range out {
		result = append(result, r.s)
	}
	return Truncate(result, e.cfg.MaxSuggestions)
}

// Suggest implements Provider. The summary argument is ignored; the engine
// recomputes it so both classifications agree bit for bit.
func (e *Engine) Suggest(_ context.Context, in model.ShotInput, _ model.ExtractionSummary) ([]model.Suggestion, error) {
	return e.Coach(in), nil
}

// reversedByClamp reports whether clamping a ratio target left no change from the
// current ratio, or a change against the rule's direction.
func reversedByClamp(raw, clamped model.Suggestion, current float64) bool {
	if raw.Field != model.FieldRatio || raw.Target == nil || clamped.Target == nil {
		return false
	}
	want := mathutil.Sign(mathutil.Round(*raw.Target-current, 4))
	got := mathutil.Sign(mathutil.Round(*clamped.Target-current, 4))
	return got == 0 || got != want
}
