package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/shotcoach/internal/adapters/cache"
	"github.com/okian/shotcoach/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func snap(version string, at time.Time) model.CoachingSnapshot {
	return model.CoachingSnapshot{Version: version, Mode: model.ModeRule, ComputedAt: at}
}

func TestTTL(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		c := cache.New()
		t0 := time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)

		Convey("When a snapshot is stored", func() {
			c.Put("rule-abc", snap("rule-v1.1.0", t0))

			Convey("Then it is served while fresh", func() {
				got, ok := c.Get("rule-abc", t0.Add(time.Minute), 5*time.Minute)
				So(ok, ShouldBeTrue)
				So(got.Version, ShouldEqual, "rule-v1.1.0")
				So(got.ComputedAt, ShouldEqual, t0)
			})

			Convey("Then an entry exactly at max age is still fresh", func() {
				_, ok := c.Get("rule-abc", t0.Add(5*time.Minute), 5*time.Minute)
				So(ok, ShouldBeTrue)
			})

			Convey("Then a stale entry is a miss and is evicted", func() {
				_, ok := c.Get("rule-abc", t0.Add(6*time.Minute), 5*time.Minute)
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
			})

			Convey("Then a second put replaces the value", func() {
				c.Put("rule-abc", snap("rule-v1.2.0", t0))
				got, _ := c.Get("rule-abc", t0, time.Minute)
				So(got.Version, ShouldEqual, "rule-v1.2.0")
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("Then Clear empties it", func() {
				c.Clear()
				So(c.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the key is unknown", func() {
			_, ok := c.Get("missing", t0, time.Hour)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a bounded cache", t, func() {
		c := cache.New(cache.WithMaxEntries(2))
		t0 := time.Now()

		c.Put("a", snap("1", t0))
		c.Put("b", snap("2", t0))
		c.Put("c", snap("3", t0))

		Convey("Then the oldest insertion is evicted", func() {
			So(c.Size(), ShouldEqual, 2)
			_, ok := c.Get("a", t0, time.Hour)
			So(ok, ShouldBeFalse)
			_, ok = c.Get("c", t0, time.Hour)
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given concurrent writers and readers", t, func() {
		c := cache.New(cache.WithMaxEntries(50))
		t0 := time.Now()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := string(rune('a' + (i+j)%26))
					c.Put(key, snap("v", t0))
					c.Get(key, t0, time.Minute)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then the bound holds", func() {
			So(c.Size(), ShouldBeLessThanOrEqualTo, 26)
		})
	})
}

func TestTTLIsolation(t *testing.T) {
	Convey("Given a cached snapshot with a delta suggestion", t, func() {
		c := cache.New()
		t0 := time.Date(2025, 10, 3, 8, 0, 0, 0, time.UTC)
		delta := 1.0
		stored := snap("rule-v1.1.0", t0)
		stored.Suggestions = []model.Suggestion{{Field: model.FieldGrindStep, Delta: &delta, Priority: 1}}
		c.Put("rule-abc", stored)

		Convey("When the caller edits what it stored", func() {
			delta = 42
			stored.Suggestions[0].Priority = 99

			Convey("Then the cached copy is unchanged", func() {
				got, ok := c.Get("rule-abc", t0, time.Minute)
				So(ok, ShouldBeTrue)
				So(*got.Suggestions[0].Delta, ShouldEqual, 1)
				So(got.Suggestions[0].Priority, ShouldEqual, 1)
			})
		})

		Convey("When the caller edits a served copy", func() {
			first, _ := c.Get("rule-abc", t0, time.Minute)
			*first.Suggestions[0].Delta = 42
			first.Suggestions[0].Priority = 99

			Convey("Then the next hit serves the original values", func() {
				again, ok := c.Get("rule-abc", t0, time.Minute)
				So(ok, ShouldBeTrue)
				So(*again.Suggestions[0].Delta, ShouldEqual, 1)
				So(again.Suggestions[0].Priority, ShouldEqual, 1)
			})
		})
	})
}
