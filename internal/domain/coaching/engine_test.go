package coaching_test

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/extraction"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return mathutil.Ptr(v) }

func shot(roast model.RoastLevel, balance model.TasteBalance) model.ShotInput {
	return model.ShotInput{Roast: roast, DoseG: 18, YieldG: 36, ShotTimeS: 30, Balance: balance}
}

func byField(ss []model.Suggestion) map[model.Field]model.Suggestion {
	out := make(map[model.Field]model.Suggestion, len(ss))
	for _, s := range ss {
		out[s.Field] = s
	}
	return out
}

func TestEngineScenarios(t *testing.T) {
	Convey("Given the default rule engine", t, func() {
		e := coaching.NewEngine()

		Convey("When a medium roast is very bitter", func() {
			got := e.Coach(shot(model.RoastMedium, model.TasteBalance{Bitterness: f(0.8)}))
			fields := byField(got)

			Convey("Then it suggests a coarser grind and a longer ratio", func() {
				So(len(got), ShouldEqual, 3)
				grind, ok := fields[model.FieldGrindStep]
				So(ok, ShouldBeTrue)
				So(*grind.Delta, ShouldBeGreaterThan, 0)
				So(grind.Reason, ShouldContainSubstring, "coarser")
				So(grind.Source, ShouldEqual, model.SourceRule)

				r, ok := fields[model.FieldRatio]
				So(ok, ShouldBeTrue)
				So(r.Delta, ShouldBeNil)
				So(*r.Target, ShouldEqual, 2.2)

				So(got[0].Field, ShouldEqual, model.FieldGrindStep)
				So(got[1].Field, ShouldEqual, model.FieldRatio)
				So(got[2].Field, ShouldEqual, model.FieldShotTime)
			})
		})

		Convey("When a medium roast is flat and the water temperature is known", func() {
			in := shot(model.RoastMedium, model.TasteBalance{Acidity: f(-0.8)})
			in.WaterTempC = f(93)
			fields := byField(e.Coach(in))

			Convey("Then it suggests raising the temperature by one degree", func() {
				tmp, ok := fields[model.FieldWaterTemp]
				So(ok, ShouldBeTrue)
				So(*tmp.Delta, ShouldEqual, 1.0)
				So(tmp.Reason, ShouldContainSubstring, "brightness")
				So(tmp.Reason, ShouldContainSubstring, "extraction")
			})
		})

		Convey("When the same shot has no water temperature", func() {
			got := e.Coach(shot(model.RoastMedium, model.TasteBalance{Acidity: f(-0.8)}))

			Convey("Then no temperature suggestion is emitted", func() {
				_, ok := byField(got)[model.FieldWaterTemp]
				So(ok, ShouldBeFalse)
				So(len(got), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When every taste value is zero", func() {
			zero := f(0)
			in := shot(model.RoastMedium, model.TasteBalance{Acidity: zero, Bitterness: zero, Body: zero, Aftertaste: zero})

			Convey("Then nothing is suggested and the extraction is balanced", func() {
				So(e.Coach(in), ShouldBeEmpty)
				So(extraction.NewClassifier().ClassifyShot(in).Label, ShouldEqual, model.LabelBalanced)
			})
		})

		Convey("When the balance is entirely absent", func() {
			So(e.Coach(shot(model.RoastLight, model.TasteBalance{})), ShouldBeEmpty)
		})

		Convey("When every dimension is at its extreme", func() {
			in := shot(model.RoastMedium, model.TasteBalance{Bitterness: f(1), Acidity: f(1), Body: f(-1), Aftertaste: f(-1)})
			in.WaterTempC = f(94)

			Convey("Then it returns between one and three suggestions", func() {
				var got []model.Suggestion
				So(func() { got = e.Coach(in) }, ShouldNotPanic)
				So(len(got), ShouldBeBetweenOrEqual, 1, 3)
			})
		})

		Convey("When the ratio is not given", func() {
			in := shot(model.RoastMedium, model.TasteBalance{Bitterness: f(0.8)})
			in.YieldG = 40

			Convey("Then it is computed from dose and yield before rules fire", func() {
				r := byField(e.Coach(in))[model.FieldRatio]
				So(*r.Target, ShouldEqual, 2.4)
			})
		})
	})
}

func TestEngineThresholds(t *testing.T) {
	Convey("Given a moderately bitter shot", t, func() {
		e := coaching.NewEngine()
		balance := model.TasteBalance{Bitterness: f(0.25)}

		Convey("Then a light roast triggers coaching and a dark roast does not", func() {
			So(len(e.Coach(shot(model.RoastLight, balance))), ShouldBeGreaterThanOrEqualTo, 1)
			So(e.Coach(shot(model.RoastDark, balance)), ShouldBeEmpty)
		})

		Convey("And a value on the threshold itself does not trigger", func() {
			So(e.Coach(shot(model.RoastMedium, model.TasteBalance{Bitterness: f(0.2)})), ShouldBeEmpty)
			So(e.Coach(shot(model.RoastMedium, model.TasteBalance{Bitterness: f(-0.2)})), ShouldBeEmpty)
		})

		Convey("And thresholds can be substituted", func() {
			strict := coaching.NewEngine(coaching.WithThresholds(map[model.RoastLevel]float64{model.RoastDark: 0.2}))
			So(len(strict.Coach(shot(model.RoastDark, balance))), ShouldBeGreaterThanOrEqualTo, 1)
			So(strict.Config().Threshold(model.RoastLight), ShouldEqual, 0.10)
		})

		Convey("And an unknown roast uses the fallback threshold", func() {
			So(coaching.DefaultConfig().Threshold(model.RoastLevel("Cinnamon")), ShouldEqual, 0.20)
		})
	})
}

func TestEngineRoastBias(t *testing.T) {
	Convey("Given the default rule engine", t, func() {
		e := coaching.NewEngine()

		Convey("When a dark roast has a harsh finish and a known temperature", func() {
			in := shot(model.RoastDark, model.TasteBalance{Aftertaste: f(0.8)})
			in.WaterTempC = f(94)
			got := e.Coach(in)
			tmp, ok := byField(got)[model.FieldWaterTemp]

			Convey("Then the temperature drop is amplified and boosted", func() {
				So(ok, ShouldBeTrue)
				So(*tmp.Delta, ShouldEqual, -1.5)
				So(tmp.Priority, ShouldEqual, 2)
				So(got[0].Field, ShouldEqual, model.FieldGrindStep)
				So(got[0].Priority, ShouldEqual, 0)
			})
		})

		Convey("When a light roast is flat", func() {
			in := shot(model.RoastLight, model.TasteBalance{Acidity: f(-0.8)})
			in.WaterTempC = f(94)
			got := e.Coach(in)
			fields := byField(got)

			Convey("Then finer grind and hotter water are boosted", func() {
				So(fields[model.FieldGrindStep].Priority, ShouldEqual, 0)
				So(*fields[model.FieldGrindStep].Delta, ShouldEqual, -1.0)
				So(fields[model.FieldWaterTemp].Priority, ShouldEqual, 1)
			})
		})

		Convey("When a light roast is bitter", func() {
			in := shot(model.RoastLight, model.TasteBalance{Bitterness: f(0.5)})
			in.WaterTempC = f(94)
			got := e.Coach(in)

			Convey("Then the temperature drop is pushed out of the top three", func() {
				_, ok := byField(got)[model.FieldWaterTemp]
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestEngineDirectionWeighting(t *testing.T) {
	Convey("Given a strongly under-extracted shot with conflicting rules", t, func() {
		e := coaching.NewEngine()
		in := model.ShotInput{Roast: model.RoastMedium, DoseG: 18, YieldG: 36, ShotTimeS: 20,
			Balance: model.TasteBalance{Acidity: f(1.0), Body: f(-0.8)}}
		summary := e.Classifier().ClassifyShot(in)
		got := e.Coach(in)

		Convey("Then suggestions that add extraction are promoted", func() {
			So(summary.Label, ShouldEqual, model.LabelUnder)
			So(summary.Confidence, ShouldEqual, model.ConfidenceHigh)
			So(got[0].Field, ShouldEqual, model.FieldDose)
			So(got[1].Field, ShouldEqual, model.FieldGrindStep)
			So(got[2].Field, ShouldEqual, model.FieldRatio)
		})
	})
}

func TestEngineProperties(t *testing.T) {
	Convey("Given a grid of balances across every roast", t, func() {
		e := coaching.NewEngine()
		values := []float64{-1, -0.5, -0.15, 0, 0.15, 0.5, 1}
		var violations []string

		for _, roast := range model.Roasts() {
			for _, a := range values {
				for _, b := range values {
					for _, body := range values {
						for _, aft := range values {
							in := shot(roast, model.TasteBalance{Acidity: f(a), Bitterness: f(b), Body: f(body), Aftertaste: f(aft)})
							in.WaterTempC = f(93)
							got := e.Coach(in)
							if again := e.Coach(in); !reflect.DeepEqual(again, got) {
								violations = append(violations, "non-deterministic")
							}
							violations = append(violations, checkInvariants(got)...)
						}
					}
				}
			}
		}

		Convey("Then every result honours the cap, uniqueness and clamp bounds", func() {
			So(violations, ShouldBeEmpty)
		})
	})
}

func checkInvariants(got []model.Suggestion) []string {
	var v []string
	if len(got) > 3 {
		v = append(v, fmt.Sprintf("too many suggestions: %d", len(got)))
	}
	seen := map[model.Field]bool{}
	for _, s := range got {
		if seen[s.Field] {
			v = append(v, "duplicate field "+string(s.Field))
		}
		seen[s.Field] = true
		if (s.Delta == nil) == (s.Target == nil) {
			v = append(v, "suggestion must carry exactly one of delta or target")
			continue
		}
		if s.Delta != nil && *s.Delta == 0 {
			v = append(v, "zero delta for "+string(s.Field))
		}
		bound := map[model.Field]float64{
			model.FieldWaterTemp: 2, model.FieldShotTime: 4, model.FieldGrindStep: 2, model.FieldDose: 0.5,
		}
		if lim, ok := bound[s.Field]; ok && s.Delta != nil && math.Abs(*s.Delta) > lim {
			v = append(v, fmt.Sprintf("%s delta %v out of range", s.Field, *s.Delta))
		}
		if s.Field == model.FieldRatio && s.Target != nil && (*s.Target < 1.5 || *s.Target > 2.6) {
			v = append(v, fmt.Sprintf("ratio target %v out of range", *s.Target))
		}
	}
	return v
}

func TestEngineAsProvider(t *testing.T) {
	Convey("Given the engine used through the Provider interface", t, func() {
		var p coaching.Provider = coaching.NewEngine()
		in := shot(model.RoastMedium, model.TasteBalance{Bitterness: f(0.8)})

		Convey("Then it never fails and matches Coach", func() {
			got, err := p.Suggest(context.Background(), in, model.ExtractionSummary{})
			So(err, ShouldBeNil)
			So(got, ShouldResemble, coaching.NewEngine().Coach(in))
		})
	})
}

func TestEngineRatioClamp(t *testing.T) {
	Convey("Given a very bitter medium roast", t, func() {
		e := coaching.NewEngine()
		balance := model.TasteBalance{Bitterness: f(0.8)}

		Convey("When the ratio is already above the ratio ceiling", func() {
			in := shot(model.RoastMedium, balance)
			in.YieldG = 47

			Convey("Then no ratio target pointing the other way is returned", func() {
				_, ok := byField(e.Coach(in))[model.FieldRatio]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the ratio sits exactly on the ceiling", func() {
			in := shot(model.RoastMedium, balance)
			in.Ratio = f(2.6)

			Convey("Then the no-op ratio target is dropped", func() {
				_, ok := byField(e.Coach(in))[model.FieldRatio]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the ratio is just below the ceiling", func() {
			in := shot(model.RoastMedium, balance)
			in.YieldG = 45

			Convey("Then the clamped target still raises the ratio", func() {
				r, ok := byField(e.Coach(in))[model.FieldRatio]
				So(ok, ShouldBeTrue)
				So(*r.Target, ShouldEqual, 2.6)
			})
		})
	})
}
