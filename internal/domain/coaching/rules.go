package coaching

import (
	"math"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// dimensionRule turns one taste value into candidate suggestions. It returns nil
// when the value is inside the threshold.
type dimensionRule func(in model.ShotInput, v, threshold float64, cfg Config) []model.Suggestion

var dimensionRules = map[model.Dimension]dimensionRule{
	model.DimBitterness: bitternessRules,
	model.DimAcidity:    acidityRules,
	model.DimBody:       bodyRules,
	model.DimAftertaste: aftertasteRules,
}

// generate evaluates every dimension independently and concatenates the results
// in model.Dimensions() order.
func generate(in model.ShotInput, cfg Config) []model.Suggestion {
	threshold := cfg.Threshold(in.Roast)
	var out []model.Suggestion
	for _, dim := range model.Dimensions() {
		v, ok := in.Balance.Get(dim)
		if !ok {
			continue
		}
		out = append(out, dimensionRules[dim](in, v, threshold, cfg)...)
	}
	return out
}

func bitternessRules(in model.ShotInput, v, th float64, cfg Config) []model.Suggestion {
	st := cfg.Steps
	switch {
	case v > th:
		return compact(
			grind(st.Grind, 1, scaled(v, cfg), "Grind coarser to cut the bitterness of an over-extracted shot."),
			ratio(in, st.RatioUp, 2, model.ConfidenceMedium, "Pull a longer ratio to dilute harsh, bitter compounds."),
			shotTime(-st.TimeS, 3, model.ConfidenceLow, "Shorten the shot to extract fewer bitter compounds."),
			temp(in, -st.TempC, 4, model.ConfidenceLow, "Lower the water temperature to soften bitterness."),
		)
	case v < -th:
		return compact(
			grind(-st.Grind, 1, scaled(v, cfg), "Grind finer to build sweetness and depth."),
			ratio(in, -st.RatioDown, 3, model.ConfidenceLow, "Tighten the ratio for a more concentrated cup."),
			shotTime(st.TimeS, 4, model.ConfidenceLow, "Run the shot longer to develop more sweetness."),
			temp(in, st.TempC, 5, model.ConfidenceLow, "Raise the water temperature to increase extraction."),
		)
	}
	return nil
}

func acidityRules(in model.ShotInput, v, th float64, cfg Config) []model.Suggestion {
	st := cfg.Steps
	switch {
	case v > th:
		return compact(
			grind(st.Grind, 1, scaled(v, cfg), "Grind coarser to tame sharp acidity."),
			ratio(in, st.RatioUp, 2, model.ConfidenceMedium, "Raise the ratio to soften sharp acidity."),
			temp(in, -st.TempC, 4, model.ConfidenceLow, "Lower the water temperature to mute sharp acidity."),
		)
	case v < -th:
		return compact(
			grind(-st.Grind, 1, scaled(v, cfg), "Grind finer to bring back brightness."),
			temp(in, st.TempC, 2, model.ConfidenceMedium, "Raise the water temperature to increase brightness and extraction."),
			dose(st.DoseUp, 3, model.ConfidenceLow, "Add a little dose for more sweetness and structure."),
			shotTime(st.TimeS, 4, model.ConfidenceLow, "Run the shot longer to lift a flat cup."),
		)
	}
	return nil
}

func bodyRules(in model.ShotInput, v, th float64, cfg Config) []model.Suggestion {
	st := cfg.Steps
	switch {
	case v < -th:
		return compact(
			dose(st.DoseUp, 1, scaled(v, cfg), "Increase the dose for more body and texture."),
			grind(-st.Grind, 2, model.ConfidenceMedium, "Grind finer to add weight to a thin shot."),
			ratio(in, -st.RatioDown, 3, model.ConfidenceLow, "Tighten the ratio for a heavier mouthfeel."),
		)
	case v > th:
		return compact(
			ratio(in, st.RatioUp, 1, model.ConfidenceMedium, "Open up the ratio to lighten a heavy body."),
			grind(st.Grind, 2, model.ConfidenceMedium, "Grind coarser to lighten a heavy, muddy body."),
			dose(-st.DoseDown, 3, model.ConfidenceLow, "Drop the dose slightly to thin a heavy body."),
		)
	}
	return nil
}

func aftertasteRules(in model.ShotInput, v, th float64, cfg Config) []model.Suggestion {
	st := cfg.Steps
	switch {
	case v > th:
		return compact(
			grind(st.Grind, 1, scaled(v, cfg), "Grind coarser to clean up a harsh, drying finish."),
			ratio(in, st.RatioUp, 2, model.ConfidenceMedium, "Raise the ratio to soften a harsh finish."),
			temp(in, -st.TempC, 3, model.ConfidenceLow, "Lower the water temperature to reduce astringency."),
		)
	case v < -th:
		return compact(
			grind(-st.Grind, 2, model.ConfidenceLow, "Grind slightly finer to lengthen a short finish."),
			shotTime(st.TimeS, 3, model.ConfidenceLow, "Run the shot longer to extend the finish."),
		)
	}
	return nil
}

// scaled maps a taste magnitude onto a suggestion confidence tier.
func scaled(v float64, cfg Config) model.Confidence {
	mag := math.Abs(v)
	switch {
	case mag >= cfg.SuggestionHighConfidence:
		return model.ConfidenceHigh
	case mag >= cfg.SuggestionMediumConfidence:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func suggestion(field model.Field, priority int, conf model.Confidence, reason string) *model.Suggestion {
	return &model.Suggestion{
		Field:      field,
		Reason:     reason,
		Priority:   priority,
		Confidence: conf,
		Source:     model.SourceRule,
	}
}

func grind(step float64, priority int, conf model.Confidence, reason string) *model.Suggestion {
	s := suggestion(model.FieldGrindStep, priority, conf, reason)
	s.Delta = mathutil.Ptr(step)
	return s
}

func shotTime(seconds float64, priority int, conf model.Confidence, reason string) *model.Suggestion {
	s := suggestion(model.FieldShotTime, priority, conf, reason)
	s.Delta = mathutil.Ptr(seconds)
	return s
}

func dose(grams float64, priority int, conf model.Confidence, reason string) *model.Suggestion {
	s := suggestion(model.FieldDose, priority, conf, reason)
	s.Delta = mathutil.Ptr(grams)
	return s
}

// ratio is expressed as an absolute target relative to the shot's current ratio.
func ratio(in model.ShotInput, change float64, priority int, conf model.Confidence, reason string) *model.Suggestion {
	s := suggestion(model.FieldRatio, priority, conf, reason)
	s.Target = mathutil.Ptr(in.EffectiveRatio() + change)
	return s
}

// temp returns nil when the water temperature is unknown.
func temp(in model.ShotInput, degrees float64, priority int, conf model.Confidence, reason string) *model.Suggestion {
	if in.WaterTempC == nil {
		return nil
	}
	s := suggestion(model.FieldWaterTemp, priority, conf, reason)
	s.Delta = mathutil.Ptr(degrees)
	return s
}

func compact(candidates ...*model.Suggestion) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
