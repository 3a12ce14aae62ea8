package coaching

import (
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// applyRoastBias adjusts priority, and for dark-roast temperature drops the
// magnitude, of a freshly generated candidate. The direction never changes.
func applyRoastBias(s model.Suggestion, roast model.RoastLevel, cfg Config) model.Suggestion {
	if s.Delta == nil {
		return s
	}
	dir := mathutil.Sign(*s.Delta)

	switch {
	case roast == model.RoastLight:
		switch {
		case s.Field == model.FieldWaterTemp && dir < 0:
			s.Priority += cfg.LightTempDecreasePenalty
		case s.Field == model.FieldWaterTemp && dir > 0,
			s.Field == model.FieldGrindStep && dir < 0,
			s.Field == model.FieldPreinfusion && dir > 0:
			s.Priority -= cfg.RoastBoost
		}
	case roast.IsDark():
		switch {
		case s.Field == model.FieldWaterTemp && dir < 0:
			s.Priority -= cfg.RoastBoost
			s.Delta = mathutil.Ptr(*s.Delta * cfg.DarkTempScale)
		case s.Field == model.FieldGrindStep && dir > 0,
			s.Field == model.FieldShotTime && dir < 0:
			s.Priority -= cfg.RoastBoost
		}
	}
	return s
}
