// Package service wires the coach, the snapshot store and the refresh pipeline
// into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/shotcoach/internal/adapters/cache"
	"github.com/okian/shotcoach/internal/adapters/mq/queue"
	"github.com/okian/shotcoach/internal/adapters/mq/worker"
	"github.com/okian/shotcoach/internal/adapters/provider"
	"github.com/okian/shotcoach/internal/adapters/repository"
	"github.com/okian/shotcoach/internal/app/coach"
	"github.com/okian/shotcoach/internal/config"
	"github.com/okian/shotcoach/internal/domain/coaching"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/internal/domain/pending"
	"github.com/okian/shotcoach/internal/domain/version"
	"github.com/okian/shotcoach/pkg/logger"
	"github.com/okian/shotcoach/pkg/metrics"
)

// Service implements the API dependencies for shot coaching.
type Service struct {
	mu sync.RWMutex

	// Core components
	cfg      *config.Config
	engine   *coaching.Engine
	coaches  map[model.Mode]*coach.Coach
	store    repository.Store
	provider coaching.Provider
	tracker  pending.Tracker
	queue    queue.Queue
	pool     *worker.Pool

	// ownsStore is set when Start opened the store itself.
	ownsStore bool

	defaultMode model.Mode
	now         func() time.Time

	// State
	started  bool
	stopping bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults come from config.New.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore replaces the store selected from the configuration. The caller keeps
// ownership: Stop does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithProvider replaces the alternate provider selected from the configuration.
func WithProvider(p coaching.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithClock overrides time.Now for snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.logger.Info(ctx, "starting coaching service...")

	mode, _ := model.ParseMode(s.cfg.Mode)
	s.defaultMode = mode

	thresholds, _ := s.cfg.Thresholds()
	s.engine = coaching.NewEngine(coaching.WithThresholds(thresholds))

	if s.provider == nil {
		s.provider = provider.New(provider.Config{
			BaseURL:   s.cfg.AIBaseURL,
			APIKey:    s.cfg.AIAPIKey,
			Timeout:   s.cfg.AITimeout(),
			RateLimit: s.cfg.AIRateLimit,
		})
	}

	// Modes share one cache; keys carry the mode prefix.
	shared := cache.New(cache.WithMaxEntries(s.cfg.CacheMaxEntries))
	s.coaches = make(map[model.Mode]*coach.Coach, 3)
	for _, m := range []model.Mode{model.ModeRule, model.ModeAI, model.ModeHybrid} {
		s.coaches[m] = coach.New(
			coach.WithMode(m),
			coach.WithEngine(s.engine),
			coach.WithProvider(s.provider),
			coach.WithCache(shared),
			coach.WithCaching(s.cfg.EnableCaching),
			coach.WithMaxCacheAge(s.cfg.MaxCacheAge()),
			coach.WithClock(s.now),
			coach.WithLogger(s.logger.Named("coach")),
		)
	}

	if s.store == nil {
		if s.cfg.DBPath != "" {
			store, err := repository.NewSQLiteStore(s.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}
			s.store = store
			s.ownsStore = true
			s.logger.Info(ctx, "using sqlite snapshot store", logger.String("path", s.cfg.DBPath))
		} else {
			s.store = repository.NewMemoryStore()
			s.ownsStore = true
			s.logger.Info(ctx, "using in-memory snapshot store")
		}
	}

	s.tracker = pending.NewInMemoryTracker(pending.WithMaxSize(s.cfg.RefreshQueueSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.RefreshQueueSize))
	s.pool = worker.NewPool(s.cfg.RefreshWorkers, s.queue, s,
		worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "coaching service started",
		logger.String("mode", string(s.defaultMode)),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.RefreshQueueSize),
		logger.Bool("caching", s.cfg.EnableCaching),
	)
	return nil
}

// Stop drains pending refreshes and closes a store Start opened. It is safe to
// call more than once, and the service can be started again afterwards.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	pool := s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping coaching service...")

	// Workers still refresh while the queue drains, so the lock is not held here.
	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		// A later Start reopens it from the configuration.
		s.store = nil
		s.ownsStore = false
	}
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "coaching service stopped")
	return errors.Join(errs...)
}

// Coach computes the extraction summary and coaching snapshot for form. When
// shotID is set the result is persisted under it. An empty mode uses the
// configured default.
func (s *Service) Coach(ctx context.Context, shotID string, form model.ShotFormData, roast model.RoastLevel, mode model.Mode, opts coach.Options) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Record{}, ErrNotStarted
	}
	return s.coach(ctx, strings.TrimSpace(shotID), form, roast, mode, opts)
}

// must be called with s.mu held.
func (s *Service) coach(ctx context.Context, shotID string, form model.ShotFormData, roast model.RoastLevel, mode model.Mode, opts coach.Options) (repository.Record, error) {
	if err := validate(form, roast); err != nil {
		return repository.Record{}, err
	}
	if mode == "" {
		mode = s.defaultMode
	}
	c, ok := s.coaches[mode]
	if !ok {
		return repository.Record{}, fmt.Errorf("%w: %w: %q", ErrInvalidInput, model.ErrUnknownMode, mode)
	}

	snap, err := c.GetSuggestions(ctx, form, roast, opts)
	if err != nil {
		return repository.Record{}, fmt.Errorf("coach shot: %w", err)
	}
	summary := s.engine.Classifier().ClassifyShot(form.ToShotInput(roast))
	metrics.RecordExtractionLabel(string(summary.Label))

	rec := repository.Record{
		ShotID:            shotID,
		Roast:             roast,
		Form:              form,
		Snapshot:          snap,
		ExtractionVersion: version.Extraction.Current(),
		Extraction:        summary,
	}
	if shotID == "" {
		return rec, nil
	}
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return repository.Record{}, fmt.Errorf("save snapshot: %w", err)
	}
	return saved, nil
}

// Classify returns the extraction summary for form without coaching it.
func (s *Service) Classify(form model.ShotFormData, roast model.RoastLevel) (model.ExtractionSummary, error) {
	if err := validate(form, roast); err != nil {
		return model.ExtractionSummary{}, err
	}
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return model.ExtractionSummary{}, ErrNotStarted
	}
	summary := engine.Classifier().ClassifyShot(form.ToShotInput(roast))
	metrics.RecordExtractionLabel(string(summary.Label))
	return summary, nil
}

// Snapshot returns the persisted record of shotID.
func (s *Service) Snapshot(ctx context.Context, shotID string) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Record{}, ErrNotStarted
	}
	return s.store.Get(ctx, shotID)
}

// IsStale reports whether rec was produced by an extraction or coaching version
// that the current ones supersede.
func (s *Service) IsStale(rec repository.Record) bool {
	current := version.CurrentFor(string(s.mode()))
	return version.ShouldRegenerateSnapshot(current, rec.Snapshot.Version, version.KindCoaching) ||
		version.ShouldRegenerateSnapshot(version.Extraction.Current(), rec.ExtractionVersion, version.KindExtraction)
}

func (s *Service) mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultMode == "" {
		m, _ := model.ParseMode(s.cfg.Mode)
		return m
	}
	return s.defaultMode
}

// Refresh recomputes the snapshot of shotID with the default mode, bypassing the
// cache, and stores it.
func (s *Service) Refresh(ctx context.Context, shotID string) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Record{}, ErrNotStarted
	}

	old, err := s.store.Get(ctx, shotID)
	if err != nil {
		metrics.RecordSnapshotRefresh("error")
		return repository.Record{}, err
	}
	rec, err := s.coach(ctx, old.ShotID, old.Form, old.Roast, "", coach.Options{ForceRefresh: true})
	if err != nil {
		metrics.RecordSnapshotRefresh("error")
		return repository.Record{}, err
	}
	metrics.RecordSnapshotRefresh("ok")
	s.logger.Info(ctx, "snapshot regenerated",
		logger.String("shotID", shotID),
		logger.String("from", old.Snapshot.Version),
		logger.String("to", rec.Snapshot.Version),
	)
	return rec, nil
}

// RefreshJob implements worker.Refresher.
func (s *Service) RefreshJob(ctx context.Context, job queue.Job) error {
	defer func() {
		s.tracker.Unrecord(ctx, job.ShotID)
		metrics.UpdatePendingRefreshes(s.tracker.Size())
	}()
	_, err := s.Refresh(ctx, job.ShotID)
	return err
}

// SweepStale enqueues a refresh for every stored snapshot that IsStale. Shots
// already pending are skipped. It returns the number of jobs enqueued.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return 0, ErrNotStarted
	}
	store, tracker, q := s.store, s.tracker, s.queue
	s.mu.RUnlock()

	records, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}
	metrics.UpdateSnapshotsStored(len(records))

	enqueued := 0
	for _, rec := range records {
		if !s.IsStale(rec) {
			continue
		}
		metrics.RecordSnapshotStale()
		if tracker.SeenAndRecord(ctx, rec.ShotID) {
			continue
		}
		if !q.Enqueue(ctx, queue.Job{ShotID: rec.ShotID, Reason: "stale"}) {
			tracker.Unrecord(ctx, rec.ShotID)
			s.logger.Warn(ctx, "refresh queue rejected job", logger.String("shotID", rec.ShotID))
			continue
		}
		enqueued++
	}
	metrics.UpdatePendingRefreshes(tracker.Size())
	if enqueued > 0 {
		s.logger.Info(ctx, "stale snapshots queued for refresh", logger.Int("count", enqueued))
	}
	return enqueued, nil
}

// VersionReport lists the extraction and coaching versions in effect.
type VersionReport struct {
	Extraction     string         `json:"extraction"`
	Coaching       string         `json:"coaching"`
	Mode           model.Mode     `json:"mode"`
	ExtractionList []version.Info `json:"extractionVersions"`
	CoachingList   []version.Info `json:"coachingVersions"`
}

// Versions returns the current versions and their registries.
func (s *Service) Versions() VersionReport {
	mode := s.mode()
	return VersionReport{
		Extraction:     version.Extraction.Current(),
		Coaching:       version.CurrentFor(string(mode)),
		Mode:           mode,
		ExtractionList: version.Extraction.All(),
		CoachingList:   version.Coaching.All(),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"mode":      s.cfg.Mode,
		"caching":   s.cfg.EnableCaching,
		"queueSize": s.cfg.RefreshQueueSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = queueLen
		stats["cacheSize"] = s.coaches[s.defaultMode].CacheSize()
		stats["pendingRefreshes"] = s.tracker.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["snapshots"] = n
			metrics.UpdateSnapshotsStored(n)
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

// validate rejects shots the engine cannot score meaningfully.
func validate(form model.ShotFormData, roast model.RoastLevel) error {
	if !roast.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, model.ErrUnknownRoast, roast)
	}
	dose, yield := form.Dose.Float(), form.Yield.Float()
	if !finite(dose) || dose <= 0 {
		return fmt.Errorf("%w: dose must be a positive number", ErrInvalidInput)
	}
	if !finite(yield) || yield <= 0 {
		return fmt.Errorf("%w: yield must be a positive number", ErrInvalidInput)
	}
	optional := map[string]model.FormValue{
		"time":        form.Time,
		"ratio":       form.Ratio,
		"waterTemp":   form.WaterTemp,
		"preinfusion": form.Preinfusion,
		"grindStep":   form.GrindStep,
	}
	for name, v := range optional {
		if !v.Blank() && !finite(v.Float()) {
			return fmt.Errorf("%w: %s must be a number", ErrInvalidInput, name)
		}
	}
	for _, dim := range model.Dimensions() {
		if v, ok := form.Balance.Get(dim); ok && !finite(v) {
			return fmt.Errorf("%w: %s must be a number", ErrInvalidInput, dim)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
