package extraction

// Config holds the classifier's weights, guards and bands. Tests substitute their
// own values through WithConfig.
type Config struct {
	// Base taste weights. Acidity is applied with a sign flip.
	BitternessWeight float64
	AcidityWeight    float64
	BodyWeight       float64
	AftertasteWeight float64
	// RoastWeightBoost is added to the acidity weight for light roasts and to the
	// bitterness weight for dark roasts.
	RoastWeightBoost float64

	// Shots faster than ShortShotS pull toward under, slower than LongShotS toward over.
	ShortShotS float64
	LongShotS  float64
	TimeNudge  float64

	// Ratio guard: (ratio - TargetRatio) * RatioNudge.
	TargetRatio float64
	RatioNudge  float64

	// Band edges before the deadband is applied.
	UnderEdge         float64
	SlightlyUnderEdge float64
	SlightlyOverEdge  float64
	OverEdge          float64
	Deadband          float64

	// Confidence magnitude cutoffs and the ratio distance treated as fully off-target.
	HighConfidence   float64
	MediumConfidence float64
	RatioSpread      float64
}

// DefaultConfig returns the production calibration.
func DefaultConfig() Config {
	return Config{
		BitternessWeight: 0.65,
		AcidityWeight:    0.55,
		BodyWeight:       0.15,
		AftertasteWeight: 0.20,
		RoastWeightBoost: 0.05,

		ShortShotS: 25,
		LongShotS:  35,
		TimeNudge:  0.15,

		TargetRatio: 2.0,
		RatioNudge:  0.15,

		UnderEdge:         -0.6,
		SlightlyUnderEdge: -0.2,
		SlightlyOverEdge:  0.2,
		OverEdge:          0.6,
		Deadband:          0.05,

		HighConfidence:   0.75,
		MediumConfidence: 0.4,
		RatioSpread:      0.6,
	}
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithConfig replaces the default calibration.
func WithConfig(cfg Config) Option {
	return func(c *Classifier) {
		c.cfg = cfg
	}
}
