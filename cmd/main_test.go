package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/shotcoach/internal/adapters/repository"
	app "github.com/okian/shotcoach/internal/app"
	"github.com/okian/shotcoach/internal/config"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/logger"
	"github.com/okian/shotcoach/pkg/mathutil"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startedService(store repository.Store) *app.Service {
	cfg := config.New()
	cfg.RefreshWorkers = 1
	svc := app.New(app.WithConfig(cfg), app.WithStore(store), app.WithLogger(logger.NewNop()))
	convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
	return svc
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the process handler", t, func() {
		svc := startedService(repository.NewMemoryStore())
		defer func() { _ = svc.Stop(context.Background()) }()
		h := newHandler(context.Background(), svc, logger.NewNop())

		convey.Convey("Then API and docs routes are served with a request id", func() {
			for _, path := range []string{"/", "/healthz", "/versions", "/stats", "/metrics", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("And coaching works end to end", func() {
			body := `{"shotId":"s1","roast":"Light","form":{"dose":"18","yield":"36","time":"24","balance":{"acidity":0.7}}}`
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/coach", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"shotId":"s1"`)
		})
	})
}

func TestSweepStale(t *testing.T) {
	convey.Convey("Given a store with a snapshot from an old extraction release", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		_, err := store.Save(ctx, repository.Record{
			ShotID: "old",
			Roast:  model.RoastMedium,
			Form: model.ShotFormData{Dose: "18", Yield: "36", Time: "30",
				Balance: model.TasteBalance{Bitterness: mathutil.Ptr(0.6)}},
			Snapshot:          model.CoachingSnapshot{Version: "rule-v1.1.0", Mode: model.ModeRule},
			ExtractionVersion: "extract-2025.06.01",
		})
		convey.So(err, convey.ShouldBeNil)

		svc := startedService(store)
		defer func() { _ = svc.Stop(context.Background()) }()

		convey.Convey("When the startup sweep runs", func() {
			sweepStale(ctx, svc, 0, logger.NewNop())

			convey.Convey("Then the snapshot is regenerated in the background", func() {
				deadline := time.Now().Add(5 * time.Second)
				var rec repository.Record
				for time.Now().Before(deadline) {
					rec, err = svc.Snapshot(ctx, "old")
					if err == nil && !svc.IsStale(rec) {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(svc.IsStale(rec), convey.ShouldBeFalse)
				convey.So(rec.Snapshot.Suggestions, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the periodic sweep is cancelled", func() {
			sweepCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then it returns", func() {
				done := make(chan struct{})
				go func() {
					sweepStale(sweepCtx, svc, 10*time.Millisecond, logger.NewNop())
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(5 * time.Second):
				}
				convey.So(sweepCtx.Err(), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		svc := startedService(repository.NewMemoryStore())
		defer func() { _ = svc.Stop(context.Background()) }()

		convey.Convey("Then the updater stops with its context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
