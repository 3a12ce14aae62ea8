package coach_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/shotcoach/internal/app/coach"
	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/mathutil"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProvider struct {
	out   []model.Suggestion
	err   error
	calls atomic.Int32
}

func (p *fakeProvider) Suggest(context.Context, model.ShotInput, model.ExtractionSummary) ([]model.Suggestion, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return append([]model.Suggestion(nil), p.out...), nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time            { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func bitterForm() model.ShotFormData {
	return model.ShotFormData{
		Dose:    "18",
		Yield:   "36",
		Time:    "30",
		Balance: model.TasteBalance{Bitterness: mathutil.Ptr(0.8)},
	}
}

func fields(in []model.Suggestion) []model.Field {
	out := make([]model.Field, len(in))
	for i, s := range in {
		out[i] = s.Field
	}
	return out
}

func TestRuleMode(t *testing.T) {
	Convey("Given a rule-mode coach", t, func() {
		c := coach.New()
		ctx := context.Background()

		Convey("When coaching a bitter medium roast", func() {
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)

			Convey("Then the snapshot carries the rule engine output", func() {
				So(snap.Mode, ShouldEqual, model.ModeRule)
				So(snap.Version, ShouldEqual, "rule-v1.1.0")
				So(snap.InputHash, ShouldNotBeEmpty)
				So(fields(snap.Suggestions), ShouldResemble,
					[]model.Field{model.FieldGrindStep, model.FieldRatio, model.FieldShotTime})
				for _, s := range snap.Suggestions {
					So(s.Source, ShouldEqual, model.SourceRule)
				}
			})
		})

		Convey("When the shot is balanced", func() {
			form := bitterForm()
			form.Balance = model.TasteBalance{}
			snap, err := c.GetSuggestions(ctx, form, model.RoastMedium, coach.Options{})

			Convey("Then the suggestion list is empty, not nil", func() {
				So(err, ShouldBeNil)
				So(snap.Suggestions, ShouldNotBeNil)
				So(snap.Suggestions, ShouldBeEmpty)
			})
		})
	})
}

func TestCaching(t *testing.T) {
	Convey("Given a coach with a controlled clock", t, func() {
		clk := &clock{t: time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)}
		p := &fakeProvider{out: []model.Suggestion{{Field: model.FieldGrindStep, Delta: mathutil.Ptr(1.0), Priority: 1}}}
		c := coach.New(coach.WithMode(model.ModeAI), coach.WithProvider(p),
			coach.WithClock(clk.now), coach.WithMaxCacheAge(10*time.Minute))
		ctx := context.Background()

		first, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
		So(err, ShouldBeNil)
		So(c.CacheSize(), ShouldEqual, 1)

		Convey("Then a repeat call within the max age is served from cache", func() {
			clk.advance(10 * time.Minute)
			again, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)
			So(again.ComputedAt, ShouldEqual, first.ComputedAt)
			So(p.calls.Load(), ShouldEqual, 1)
		})

		Convey("Then an entry older than the max age is recomputed and replaced", func() {
			clk.advance(10*time.Minute + time.Second)
			again, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)
			So(again.ComputedAt, ShouldEqual, clk.t)
			So(p.calls.Load(), ShouldEqual, 2)
			So(c.CacheSize(), ShouldEqual, 1)

			clk.advance(time.Minute)
			third, _ := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(third.ComputedAt, ShouldEqual, again.ComputedAt)
		})

		Convey("Then ForceRefresh bypasses the cache", func() {
			clk.advance(time.Minute)
			again, _ := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{ForceRefresh: true})
			So(again.ComputedAt, ShouldEqual, clk.t)
			So(p.calls.Load(), ShouldEqual, 2)
		})

		Convey("Then UseCache false bypasses the cache", func() {
			clk.advance(time.Minute)
			again, _ := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{UseCache: mathutil.Ptr(false)})
			So(again.ComputedAt, ShouldEqual, clk.t)

			clk.advance(time.Minute)
			cached, _ := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{UseCache: mathutil.Ptr(true)})
			So(cached.ComputedAt, ShouldEqual, again.ComputedAt)
		})

		Convey("Then a different roast uses a different entry", func() {
			other, _ := c.GetSuggestions(ctx, bitterForm(), model.RoastLight, coach.Options{})
			So(other.InputHash, ShouldNotEqual, first.InputHash)
			So(c.CacheSize(), ShouldEqual, 2)
		})
	})

	Convey("Given a cached rule snapshot", t, func() {
		c := coach.New()
		ctx := context.Background()
		first, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
		So(err, ShouldBeNil)
		So(first.Suggestions, ShouldNotBeEmpty)
		want := *first.Suggestions[0].Delta

		Convey("When the caller edits the returned suggestions", func() {
			first.Suggestions[0].Priority = 99
			*first.Suggestions[0].Delta = 42

			Convey("Then the next cache hit serves the original values", func() {
				again, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
				So(err, ShouldBeNil)
				So(again.ComputedAt, ShouldEqual, first.ComputedAt)
				So(again.Suggestions[0].Priority, ShouldNotEqual, 99)
				So(*again.Suggestions[0].Delta, ShouldEqual, want)
			})
		})
	})

	Convey("Given an ai coach whose provider is down", t, func() {
		clk := &clock{t: time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)}
		p := &fakeProvider{err: errors.New("down")}
		c := coach.New(coach.WithMode(model.ModeAI), coach.WithProvider(p), coach.WithClock(clk.now))
		ctx := context.Background()

		_, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
		So(err, ShouldBeNil)

		Convey("Then the rule fallback is not cached", func() {
			So(c.CacheSize(), ShouldEqual, 0)
		})

		Convey("When the provider recovers", func() {
			p.err = nil
			p.out = []model.Suggestion{{Field: model.FieldWaterTemp, Delta: mathutil.Ptr(-1.0), Priority: 1}}
			clk.advance(time.Second)
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})

			Convey("Then the next call asks it again and caches its answer", func() {
				So(err, ShouldBeNil)
				So(p.calls.Load(), ShouldEqual, 2)
				So(fields(snap.Suggestions), ShouldResemble, []model.Field{model.FieldWaterTemp})
				So(snap.Suggestions[0].Source, ShouldEqual, model.SourceAI)
				So(c.CacheSize(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a coach with caching disabled", t, func() {
		clk := &clock{t: time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)}
		c := coach.New(coach.WithCaching(false), coach.WithClock(clk.now))

		a, _ := c.GetSuggestions(context.Background(), bitterForm(), model.RoastMedium, coach.Options{})
		clk.advance(time.Second)
		b, _ := c.GetSuggestions(context.Background(), bitterForm(), model.RoastMedium, coach.Options{})

		So(b.ComputedAt, ShouldHappenAfter, a.ComputedAt)
		So(c.CacheSize(), ShouldEqual, 0)
	})
}

func TestCacheKey(t *testing.T) {
	Convey("Given the same form encoded with different key orders", t, func() {
		var a, b model.ShotFormData
		So(json.Unmarshal([]byte(`{"dose":"18","yield":"36","time":"28","balance":{"acidity":0.3,"body":-0.4}}`), &a), ShouldBeNil)
		So(json.Unmarshal([]byte(`{"balance":{"body":-0.4,"acidity":0.3},"time":28,"yield":36,"dose":18}`), &b), ShouldBeNil)
		c := coach.New(coach.WithCaching(false))

		sa, err := c.GetSuggestions(context.Background(), a, model.RoastMedium, coach.Options{})
		So(err, ShouldBeNil)
		sb, err := c.GetSuggestions(context.Background(), b, model.RoastMedium, coach.Options{})
		So(err, ShouldBeNil)

		Convey("Then both produce the same input hash", func() {
			So(sa.InputHash, ShouldEqual, sb.InputHash)
		})

		Convey("And a blank time differs from an explicit one", func() {
			a.Time = ""
			sc, err := c.GetSuggestions(context.Background(), a, model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)
			So(sc.InputHash, ShouldNotEqual, sa.InputHash)
		})

		Convey("And modes share the parameter hash scheme but not versions", func() {
			h := coach.New(coach.WithMode(model.ModeHybrid), coach.WithCaching(false))
			sh, err := h.GetSuggestions(context.Background(), a, model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)
			So(sh.Version, ShouldEqual, "hybrid-v1.0.0")
			So(sh.InputHash, ShouldNotEqual, sa.InputHash)
		})
	})
}

func TestAIMode(t *testing.T) {
	Convey("Given an ai-mode coach", t, func() {
		ctx := context.Background()
		rule := coaching.NewEngine().Coach(bitterForm().ToShotInput(model.RoastMedium))

		Convey("When the alternate provider fails", func() {
			p := &fakeProvider{err: errors.New("connection refused")}
			c := coach.New(coach.WithMode(model.ModeAI), coach.WithProvider(p))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})

			Convey("Then the rule suggestions are returned without an error", func() {
				So(err, ShouldBeNil)
				So(snap.Version, ShouldEqual, "ai-v0.1.0")
				So(snap.Suggestions, ShouldResemble, rule)
			})
		})

		Convey("When the alternate provider names one field twice", func() {
			p := &fakeProvider{out: []model.Suggestion{
				{Field: model.FieldGrindStep, Delta: mathutil.Ptr(1.0), Priority: 1},
				{Field: model.FieldGrindStep, Delta: mathutil.Ptr(-1.0), Priority: 2},
			}}
			c := coach.New(coach.WithMode(model.ModeAI), coach.WithProvider(p))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})

			Convey("Then only the higher-priority suggestion survives", func() {
				So(err, ShouldBeNil)
				So(fields(snap.Suggestions), ShouldResemble, []model.Field{model.FieldGrindStep})
				So(*snap.Suggestions[0].Delta, ShouldEqual, 1.0)
			})
		})

		Convey("When the default stub provider is in place", func() {
			c := coach.New(coach.WithMode(model.ModeAI))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)
			So(snap.Suggestions, ShouldResemble, rule)
		})

		Convey("When the alternate provider answers", func() {
			p := &fakeProvider{out: []model.Suggestion{
				{Field: model.FieldDose, Delta: mathutil.Ptr(0.3), Priority: 4},
				{Field: model.FieldGrindStep, Delta: mathutil.Ptr(5.0), Priority: 1},
				{Field: model.FieldShotTime, Delta: mathutil.Ptr(-2.0), Priority: 3},
				{Field: model.FieldWaterTemp, Delta: mathutil.Ptr(-1.0), Priority: 2},
			}}
			c := coach.New(coach.WithMode(model.ModeAI), coach.WithProvider(p))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)

			Convey("Then its suggestions are clamped, ranked and truncated", func() {
				So(fields(snap.Suggestions), ShouldResemble,
					[]model.Field{model.FieldGrindStep, model.FieldWaterTemp, model.FieldShotTime})
				So(*snap.Suggestions[0].Delta, ShouldEqual, 2.0)
				for _, s := range snap.Suggestions {
					So(s.Source, ShouldEqual, model.SourceAI)
				}
			})
		})
	})
}

func TestHybridMode(t *testing.T) {
	Convey("Given a hybrid coach", t, func() {
		ctx := context.Background()

		Convey("When the provider contradicts the rule engine on grind", func() {
			p := &fakeProvider{out: []model.Suggestion{
				{Field: model.FieldGrindStep, Delta: mathutil.Ptr(-1.0), Priority: 0, Reason: "finer"},
				{Field: model.FieldWaterTemp, Delta: mathutil.Ptr(-1.0), Priority: 0, Reason: "cooler"},
				{Field: model.FieldDose, Delta: mathutil.Ptr(0.3), Priority: 5, Reason: "more coffee"},
			}}
			c := coach.New(coach.WithMode(model.ModeHybrid), coach.WithProvider(p))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)

			Convey("Then the rule suggestion wins and the rest merge by priority", func() {
				So(fields(snap.Suggestions), ShouldResemble,
					[]model.Field{model.FieldWaterTemp, model.FieldGrindStep, model.FieldRatio})
				So(snap.Suggestions[0].Source, ShouldEqual, model.SourceAI)
				So(snap.Suggestions[1].Source, ShouldEqual, model.SourceRule)
				So(*snap.Suggestions[1].Delta, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the provider contradicts a ratio target", func() {
			p := &fakeProvider{out: []model.Suggestion{
				{Field: model.FieldRatio, Target: mathutil.Ptr(1.8), Priority: 0},
			}}
			c := coach.New(coach.WithMode(model.ModeHybrid), coach.WithProvider(p))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})
			So(err, ShouldBeNil)

			Convey("Then the lower target is dropped", func() {
				for _, s := range snap.Suggestions {
					So(s.Source, ShouldEqual, model.SourceRule)
				}
			})
		})

		Convey("When the provider fails", func() {
			c := coach.New(coach.WithMode(model.ModeHybrid), coach.WithProvider(&fakeProvider{err: errors.New("timeout")}))
			snap, err := c.GetSuggestions(ctx, bitterForm(), model.RoastMedium, coach.Options{})

			Convey("Then only the rule suggestions are returned", func() {
				So(err, ShouldBeNil)
				So(snap.Suggestions, ShouldResemble, coaching.NewEngine().Coach(bitterForm().ToShotInput(model.RoastMedium)))
			})
		})
	})
}
