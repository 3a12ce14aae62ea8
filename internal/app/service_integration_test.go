package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/shotcoach/internal/adapters/repository"
	service "github.com/okian/shotcoach/internal/app"
	"github.com/okian/shotcoach/internal/app/coach"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/internal/domain/version"
	. "github.com/smartystreets/goconvey/convey"
)

// legacyRecord is a snapshot written by the first extraction release.
func legacyRecord(shotID string) repository.Record {
	return repository.Record{
		ShotID:            shotID,
		Roast:             model.RoastMedium,
		Form:              bitterForm(),
		Snapshot:          model.CoachingSnapshot{Version: "rule-v1.0.0", Mode: model.ModeRule, Suggestions: []model.Suggestion{}},
		ExtractionVersion: "extract-2025.01.15",
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration_StaleSweep(t *testing.T) {
	Convey("Given a service over a store holding legacy snapshots", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		for i := 0; i < 5; i++ {
			_, err := store.Save(ctx, legacyRecord(fmt.Sprintf("shot-%d", i)))
			So(err, ShouldBeNil)
		}

		svc := service.New(service.WithConfig(testConfig()), service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.Coach(ctx, "fresh", bitterForm(), model.RoastMedium, "", coach.Options{})
		So(err, ShouldBeNil)

		Convey("When sweeping for stale snapshots", func() {
			n, err := svc.SweepStale(ctx)
			So(err, ShouldBeNil)

			Convey("Then only the legacy shots are queued and refreshed", func() {
				So(n, ShouldEqual, 5)

				refreshed := waitFor(5*time.Second, func() bool {
					records, err := store.List(ctx)
					if err != nil {
						return false
					}
					for _, rec := range records {
						if svc.IsStale(rec) {
							return false
						}
					}
					return true
				})
				So(refreshed, ShouldBeTrue)

				rec, err := svc.Snapshot(ctx, "shot-3")
				So(err, ShouldBeNil)
				So(rec.ExtractionVersion, ShouldEqual, version.Extraction.Current())
				So(rec.Snapshot.Version, ShouldEqual, "rule-v1.1.0")
				So(len(rec.Snapshot.Suggestions), ShouldEqual, 3)

				So(waitFor(time.Second, func() bool {
					return svc.GetStats()["pendingRefreshes"] == int64(0)
				}), ShouldBeTrue)
			})

			Convey("And a second sweep after the refresh finds nothing", func() {
				So(waitFor(5*time.Second, func() bool {
					n, _ := svc.SweepStale(ctx)
					return n == 0
				}), ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_SQLite(t *testing.T) {
	Convey("Given a service persisting to SQLite", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.DBPath = filepath.Join(t.TempDir(), "snapshots.db")

		svc := service.New(service.WithConfig(cfg))
		So(svc.Start(ctx), ShouldBeNil)

		first, err := svc.Coach(ctx, "shot-1", bitterForm(), model.RoastDark, "", coach.Options{})
		So(err, ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When the same service is started again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then it reopens the database instead of reusing the closed one", func() {
				rec, err := svc.Snapshot(ctx, "shot-1")
				So(err, ShouldBeNil)
				So(rec.ID, ShouldEqual, first.ID)

				_, err = svc.Coach(ctx, "shot-2", bitterForm(), model.RoastLight, "", coach.Options{})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the service is restarted on the same database", func() {
			again := service.New(service.WithConfig(cfg))
			So(again.Start(ctx), ShouldBeNil)
			defer func() { _ = again.Stop(ctx) }()

			rec, err := again.Snapshot(ctx, "shot-1")

			Convey("Then the snapshot survives verbatim", func() {
				So(err, ShouldBeNil)
				So(rec.ID, ShouldEqual, first.ID)
				So(rec.Roast, ShouldEqual, model.RoastDark)
				So(rec.Snapshot.InputHash, ShouldEqual, first.Snapshot.InputHash)
				So(rec.Snapshot.Suggestions, ShouldResemble, first.Snapshot.Suggestions)
				So(rec.Extraction, ShouldResemble, first.Extraction)
			})

			Convey("And a manual refresh rewrites it", func() {
				refreshed, err := again.Refresh(ctx, "shot-1")
				So(err, ShouldBeNil)
				So(refreshed.ID, ShouldEqual, first.ID)
				So(refreshed.Snapshot.ComputedAt.Before(first.Snapshot.ComputedAt), ShouldBeFalse)
			})
		})
	})
}
