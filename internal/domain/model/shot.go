package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/okian/shotcoach/pkg/mathutil"
)

// ShotInput describes one pulled shot. Optional process fields are nil when unknown.
type ShotInput struct {
	Roast        RoastLevel   `json:"roast"`
	DoseG        float64      `json:"dose_g"`
	YieldG       float64      `json:"yield_g"`
	ShotTimeS    float64      `json:"shotTime_s"`
	Ratio        *float64     `json:"ratio,omitempty"`
	WaterTempC   *float64     `json:"waterTemp_C,omitempty"`
	PreinfusionS *float64     `json:"preinfusion_s,omitempty"`
	GrindStep    *float64     `json:"grindStep,omitempty"`
	Balance      TasteBalance `json:"balance"`
}

// EffectiveRatio returns the explicit ratio or yield/dose rounded to 2 decimals.
// A zero dose yields +Inf or NaN; callers validate upstream.
func (s ShotInput) EffectiveRatio() float64 {
	if s.Ratio != nil {
		return *s.Ratio
	}
	return mathutil.Round(s.YieldG/s.DoseG, 2)
}

// FormValue is a numeric form field as typed by the user. It decodes from a JSON
// string or number; null decodes to blank.
type FormValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FormValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	*v = FormValue(data)
	return nil
}

// Blank reports whether the field was left empty.
func (v FormValue) Blank() bool {
	return strings.TrimSpace(string(v)) == ""
}

// Float parses the value. Unparsable text becomes NaN so it propagates through
// arithmetic instead of being silently replaced.
func (v FormValue) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Optional returns nil for a blank field, otherwise a pointer to Float().
func (v FormValue) Optional() *float64 {
	if v.Blank() {
		return nil
	}
	return mathutil.Ptr(v.Float())
}

// ShotFormData is the shot as captured by the entry form.
type ShotFormData struct {
	Dose        FormValue    `json:"dose"`
	Yield       FormValue    `json:"yield"`
	Time        FormValue    `json:"time"`
	Ratio       FormValue    `json:"ratio,omitempty"`
	WaterTemp   FormValue    `json:"waterTemp,omitempty"`
	Preinfusion FormValue    `json:"preinfusion,omitempty"`
	GrindStep   FormValue    `json:"grindStep,omitempty"`
	Balance     TasteBalance `json:"balance"`
}

// ToShotInput converts the form into the engine input for roast.
func (f ShotFormData) ToShotInput(roast RoastLevel) ShotInput {
	in := ShotInput{
		Roast:        roast,
		DoseG:        f.Dose.Float(),
		YieldG:       f.Yield.Float(),
		ShotTimeS:    f.Time.Float(),
		Ratio:        f.Ratio.Optional(),
		WaterTempC:   f.WaterTemp.Optional(),
		PreinfusionS: f.Preinfusion.Optional(),
		GrindStep:    f.GrindStep.Optional(),
		Balance:      f.Balance,
	}
	if in.Ratio == nil {
		in.Ratio = mathutil.Ptr(in.EffectiveRatio())
	}
	return in
}
