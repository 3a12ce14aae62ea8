package loadtest

import (
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
)

// Ranges for generated shots.
const (
	doseMin      = 16.0
	doseRange    = 4.0
	ratioMin     = 1.5
	ratioRange   = 1.5
	timeMin      = 18.0
	timeRange    = 22.0
	tempMin      = 88.0
	tempRange    = 8.0
	reportChance = 0.75
)

// generateShots creates n shots with unique ids. The same seed always yields the
// same forms.
func generateShots(n int, seed uint64, mode string) []Shot {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	roasts := model.Roasts()
	shots := make([]Shot, n)
	for i := range shots {
		shots[i] = Shot{
			ShotID: uuid.NewString(),
			Roast:  roasts[rng.IntN(len(roasts))],
			Mode:   mode,
			Form:   generateForm(rng),
		}
	}
	return shots
}

func generateForm(rng *rand.Rand) model.ShotFormData {
	dose := mathutil.Round(doseMin+rng.Float64()*doseRange, 1)
	yield := mathutil.Round(dose*(ratioMin+rng.Float64()*ratioRange), 1)
	form := model.ShotFormData{
		Dose:  formValue(dose),
		Yield: formValue(yield),
		Time:  formValue(mathutil.Round(timeMin+rng.Float64()*timeRange, 0)),
	}
	if rng.Float64() < reportChance {
		form.WaterTemp = formValue(mathutil.Round(tempMin+rng.Float64()*tempRange, 0))
	}
	form.Balance = model.TasteBalance{
		Acidity:    taste(rng),
		Bitterness: taste(rng),
		Body:       taste(rng),
		Aftertaste: taste(rng),
	}
	return form
}

// taste returns a value on [-1,1] or nil when the taster skipped the dimension.
func taste(rng *rand.Rand) *float64 {
	if rng.Float64() >= reportChance {
		return nil
	}
	return mathutil.Ptr(mathutil.Round(rng.Float64()*2-1, 2))
}

func formValue(f float64) model.FormValue {
	return model.FormValue(strconv.FormatFloat(f, 'f', -1, 64))
}
