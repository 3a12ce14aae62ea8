package coaching

import (
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// underSign is the direction of change that corrects under-extraction for each
// weighted field. Over-extraction rewards the opposite sign.
var underSign = map[model.Field]int{
	model.FieldGrindStep: -1,
	model.FieldShotTime:  1,
	model.FieldWaterTemp: 1,
	model.FieldRatio:     -1,
	model.FieldDose:      1,
}

// directionWeight is an additive ranking term. It is negative (a reward) when the
// suggestion moves the shot in the direction that corrects the extraction.
func directionWeight(s model.Suggestion, summary model.ExtractionSummary, currentRatio float64, cfg Config) float64 {
	dir := summary.Label.Direction()
	want, ok := underSign[s.Field]
	if !ok || dir == model.DirectionBalanced {
		return 0
	}
	if dir == model.DirectionOver {
		want = -want
	}

	var w float64
	if mathutil.Sign(s.Change(currentRatio)) == want {
		w = -cfg.DirectionWeights[s.Field]
	}
	if summary.Confidence == model.ConfidenceHigh {
		w *= cfg.HighConfidenceScale
	}
	if s.Field == model.FieldRatio {
		w *= cfg.RatioWeightScale
	}
	return w
}
