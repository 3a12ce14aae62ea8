package coaching

import (
	"github.com/okian/shotcoach/internal/domain/extraction"
	"github.com/okian/shotcoach/internal/domain/model"
)

// Range bounds a normalized value and sets its rounding precision.
type Range struct {
	Min      float64
	Max      float64
	Decimals int
}

// Limits are the safety ranges applied to every suggestion before it is returned.
type Limits struct {
	Delta  map[model.Field]Range
	Target map[model.Field]Range
}

// Steps are the magnitudes of the adjustments the rules emit.
type Steps struct {
	Grind     float64
	RatioUp   float64
	RatioDown float64
	TimeS     float64
	TempC     float64
	DoseUp    float64
	DoseDown  float64
}

// Config is the rule engine calibration. DefaultConfig returns fresh maps, so a
// caller may modify the result freely.
type Config struct {
	// Thresholds is the per-roast imbalance threshold a taste value must exceed.
	Thresholds map[model.RoastLevel]float64
	// FallbackThreshold is used for roasts missing from Thresholds.
	FallbackThreshold float64

	MaxSuggestions int
	Steps          Steps

	// Roast bias.
	LightTempDecreasePenalty int
	RoastBoost               int
	DarkTempScale            float64

	// Direction weights by field; the sign of the rewarded change is fixed per field.
	DirectionWeights    map[model.Field]float64
	HighConfidenceScale float64
	RatioWeightScale    float64

	// Per-suggestion confidence cutoffs on |taste value|.
	SuggestionHighConfidence   float64
	SuggestionMediumConfidence float64

	Limits Limits
}

// DefaultThresholds returns the production per-roast thresholds. Lighter roasts
// trigger coaching sooner.
func DefaultThresholds() map[model.RoastLevel]float64 {
	return map[model.RoastLevel]float64{
		model.RoastLight:       0.10,
		model.RoastMediumLight: 0.15,
		model.RoastMedium:      0.20,
		model.RoastMediumDark:  0.25,
		model.RoastDark:        0.30,
	}
}

// DefaultLimits returns the production safety ranges.
func DefaultLimits() Limits {
	return Limits{
		Delta: map[model.Field]Range{
			model.FieldWaterTemp:   {Min: -2, Max: 2, Decimals: 1},
			model.FieldShotTime:    {Min: -4, Max: 4, Decimals: 0},
			model.FieldGrindStep:   {Min: -2, Max: 2, Decimals: 0},
			model.FieldDose:        {Min: -0.5, Max: 0.5, Decimals: 1},
			model.FieldRatio:       {Min: -0.3, Max: 0.3, Decimals: 1},
			model.FieldPreinfusion: {Min: -3, Max: 3, Decimals: 0},
		},
		Target: map[model.Field]Range{
			model.FieldRatio:       {Min: 1.5, Max: 2.6, Decimals: 1},
			model.FieldWaterTemp:   {Min: 85, Max: 98, Decimals: 1},
			model.FieldShotTime:    {Min: 15, Max: 45, Decimals: 0},
			model.FieldGrindStep:   {Min: 0, Max: 100, Decimals: 0},
			model.FieldDose:        {Min: 7, Max: 25, Decimals: 1},
			model.FieldPreinfusion: {Min: 0, Max: 15, Decimals: 0},
		},
	}
}

// DefaultConfig returns the production calibration.
func DefaultConfig() Config {
	return Config{
		Thresholds:        DefaultThresholds(),
		FallbackThreshold: 0.20,
		MaxSuggestions:    3,
		Steps: Steps{
			Grind:     1,
			RatioUp:   0.2,
			RatioDown: 0.1,
			TimeS:     2,
			TempC:     1,
			DoseUp:    0.3,
			DoseDown:  0.2,
		},
		LightTempDecreasePenalty: 2,
		RoastBoost:               1,
		DarkTempScale:            1.5,
		DirectionWeights: map[model.Field]float64{
			model.FieldGrindStep: 2,
			model.FieldShotTime:  1.5,
			model.FieldWaterTemp: 1,
			model.FieldRatio:     1.2,
			model.FieldDose:      0.5,
		},
		HighConfidenceScale:        1.2,
		RatioWeightScale:           1.15,
		SuggestionHighConfidence:   0.9,
		SuggestionMediumConfidence: 0.5,
		Limits:                     DefaultLimits(),
	}
}

// Threshold returns the imbalance threshold for roast.
func (c Config) Threshold(roast model.RoastLevel) float64 {
	if th, ok := c.Thresholds[roast]; ok {
		return th
	}
	return c.FallbackThreshold
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithConfig replaces the default calibration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithThresholds overrides the thresholds of the listed roasts. Non-positive
// values are ignored.
func WithThresholds(thresholds map[model.RoastLevel]float64) Option {
	return func(e *Engine) {
		merged := make(map[model.RoastLevel]float64, len(e.cfg.Thresholds))
		for roast, th := range e.cfg.Thresholds {
			merged[roast] = th
		}
		for roast, th := range thresholds {
			if th > 0 {
				merged[roast] = th
			}
		}
		e.cfg.Thresholds = merged
	}
}

// WithClassifier sets the classifier used for directional weighting.
func WithClassifier(c *extraction.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}
