// Package extraction classifies a shot's extraction state from its taste balance
// and process parameters.
package extraction

import (
	"math"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

var reasons = map[model.ExtractionLabel]string{
	model.LabelUnder:         "Sour, thin cup: under-extracted. Extract more by grinding finer or running longer.",
	model.LabelSlightlyUnder: "Slightly under-extracted. A small push toward more extraction should round it out.",
	model.LabelBalanced:      "Extraction looks balanced. Keep these parameters.",
	model.LabelSlightlyOver:  "Slightly over-extracted. Ease off extraction a little.",
	model.LabelOver:          "Bitter, harsh cup: over-extracted. Extract less by grinding coarser or cutting the shot shorter.",
}

// Params are the classifier inputs. Nil fields are unknown.
type Params struct {
	Acidity    *float64
	Bitterness *float64
	Body       *float64
	Aftertaste *float64
	ShotTimeS  *float64
	Ratio      *float64
}

// ParamsFromShot extracts classifier inputs from a shot. The ratio is derived from
// dose and yield when not given.
func ParamsFromShot(in model.ShotInput) Params {
	return Params{
		Acidity:    in.Balance.Acidity,
		Bitterness: in.Balance.Bitterness,
		Body:       in.Balance.Body,
		Aftertaste: in.Balance.Aftertaste,
		ShotTimeS:  mathutil.Ptr(in.ShotTimeS),
		Ratio:      mathutil.Ptr(in.EffectiveRatio()),
	}
}

// Classifier scores extraction. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with configuration options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the calibration in use.
func (c *Classifier) Config() Config {
	return c.cfg
}

var defaultClassifier = NewClassifier()

// Classify scores p for roast with the default calibration.
func Classify(p Params, roast model.RoastLevel) model.ExtractionSummary {
	return defaultClassifier.Classify(p, roast)
}

// ClassifyShot is Classify over ParamsFromShot(in) and in.Roast.
func (c *Classifier) ClassifyShot(in model.ShotInput) model.ExtractionSummary {
	return c.Classify(ParamsFromShot(in), in.Roast)
}

// Classify scores p for roast.
func (c *Classifier) Classify(p Params, roast model.RoastLevel) model.ExtractionSummary {
	acidity := valueOrZero(p.Acidity)
	bitterness := valueOrZero(p.Bitterness)
	body := valueOrZero(p.Body)
	aftertaste := valueOrZero(p.Aftertaste)

	wAcidity, wBitterness := c.cfg.AcidityWeight, c.cfg.BitternessWeight
	switch {
	case roast.IsLight():
		wAcidity += c.cfg.RoastWeightBoost
	case roast.IsDark():
		wBitterness += c.cfg.RoastWeightBoost
	}

	score := wBitterness*bitterness - wAcidity*acidity +
		c.cfg.BodyWeight*body + c.cfg.AftertasteWeight*aftertaste

	if p.ShotTimeS != nil {
		switch t := *p.ShotTimeS; {
		case t < c.cfg.ShortShotS:
			score -= c.cfg.TimeNudge
		case t > c.cfg.LongShotS:
			score += c.cfg.TimeNudge
		}
	}
	if p.Ratio != nil {
		score += (*p.Ratio - c.cfg.TargetRatio) * c.cfg.RatioNudge
	}
	score = mathutil.Round(mathutil.Clamp(score, -1, 1), 2)

	label := c.label(score)
	return model.ExtractionSummary{
		Score:      score,
		Label:      label,
		Confidence: c.confidence(acidity, bitterness, body, aftertaste, p.Ratio),
		Reason:     reasons[label],
	}
}

// label maps a score to a band. Each edge is widened outward by the deadband, so
// adjacent bands overlap and the first match in evaluation order wins.
func (c *Classifier) label(score float64) model.ExtractionLabel {
	under := mathutil.Round(c.cfg.UnderEdge+c.cfg.Deadband, 4)
	slightlyUnder := mathutil.Round(c.cfg.SlightlyUnderEdge+c.cfg.Deadband, 4)
	slightlyOver := mathutil.Round(c.cfg.SlightlyOverEdge-c.cfg.Deadband, 4)
	over := mathutil.Round(c.cfg.OverEdge-c.cfg.Deadband, 4)

	switch {
	case score <= under:
		return model.LabelUnder
	case score <= slightlyUnder:
		return model.LabelSlightlyUnder
	case score < slightlyOver:
		return model.LabelBalanced
	case score < over:
		return model.LabelSlightlyOver
	default:
		return model.LabelOver
	}
}

func (c *Classifier) confidence(acidity, bitterness, body, aftertaste float64, ratio *float64) model.Confidence {
	mag := 0.7*math.Max(math.Abs(acidity), math.Abs(bitterness)) +
		0.2*math.Abs(aftertaste) +
		0.1*math.Abs(body)
	if ratio != nil {
		mag += 0.1 * math.Min(1, math.Abs(*ratio-c.cfg.TargetRatio)/c.cfg.RatioSpread)
	}
	switch {
	case mag >= c.cfg.HighConfidence:
		return model.ConfidenceHigh
	case mag >= c.cfg.MediumConfidence:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func valueOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
