// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/shotcoach/internal/adapters/repository"
	service "github.com/okian/shotcoach/internal/app"
	"github.com/okian/shotcoach/internal/app/coach"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/pkg/logger"
	"github.com/okian/shotcoach/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Coach computes and, with a shot id, persists a coaching snapshot.
	Coach(ctx context.Context, shotID string, form model.ShotFormData, roast model.RoastLevel, mode model.Mode, opts coach.Options) (repository.Record, error)
	Classify(form model.ShotFormData, roast model.RoastLevel) (model.ExtractionSummary, error)

	// Snapshot operations.
	Snapshot(ctx context.Context, shotID string) (repository.Record, error)
	IsStale(rec repository.Record) bool
	Refresh(ctx context.Context, shotID string) (repository.Record, error)
	SweepStale(ctx context.Context) (int, error)

	Versions() service.VersionReport
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	coachHandler      *CoachHandler
	extractionHandler *ExtractionHandler
	snapshotHandler   *SnapshotHandler
	versionsHandler   *VersionsHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger logger.Logger
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	r := responder{logger: o.logger}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		coachHandler:      &CoachHandler{deps: deps, responder: r},
		extractionHandler: &ExtractionHandler{deps: deps, responder: r},
		snapshotHandler:   &SnapshotHandler{deps: deps, responder: r},
		versionsHandler:   &VersionsHandler{deps: deps},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/versions", MetricsMiddleware(s.versionsHandler.HandleVersions, "versions"))
	mux.HandleFunc("/coach", MetricsMiddleware(s.coachHandler.HandlePostCoach, "coach"))
	mux.HandleFunc("/extraction", MetricsMiddleware(s.extractionHandler.HandlePostExtraction, "extraction"))
	mux.HandleFunc("/snapshots/refresh", MetricsMiddleware(s.snapshotHandler.HandleRefresh, "snapshots_refresh"))
	mux.HandleFunc("/snapshots/", MetricsMiddleware(s.snapshotHandler.HandleGetSnapshot, "snapshots"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// responder writes service errors with the matching status and logs server faults.
type responder struct {
	logger logger.Logger
}

func (r responder) fail(w http.ResponseWriter, req *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error(req.Context(), "request failed",
			logger.String("path", req.URL.Path),
			logger.String("requestID", w.Header().Get(requestIDHeader)),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
