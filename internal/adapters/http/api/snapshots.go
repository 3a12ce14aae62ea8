package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okian/shotcoach/internal/adapters/repository"
)

type snapshotResponse struct {
	repository.Record
	Stale bool `json:"stale"`
}

type refreshRequest struct {
	ShotID string `json:"shotId"`
}

type sweepResponse struct {
	Queued int `json:"queued"`
}

// SnapshotHandler handles persisted snapshot requests.
type SnapshotHandler struct {
	deps Dependencies
	responder
}

// HandleGetSnapshot handles GET /snapshots/{shotID} requests.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_snapshot"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /snapshots/
	shotID := strings.TrimPrefix(r.URL.Path, "/snapshots/")
	if shotID == "" || strings.Contains(shotID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Snapshot(r.Context(), shotID)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Record: rec, Stale: h.deps.IsStale(rec)})
}

// HandleRefresh handles POST /snapshots/refresh requests. A body naming a shot
// refreshes it synchronously; an empty body queues every stale snapshot.
func (h *SnapshotHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh_snapshots"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if shotID := strings.TrimSpace(req.ShotID); shotID != "" {
		rec, err := h.deps.Refresh(r.Context(), shotID)
		if err != nil {
			h.fail(w, r, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, snapshotResponse{Record: rec, Stale: false})
		return
	}

	n, err := h.deps.SweepStale(r.Context())
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, sweepResponse{Queued: n})
}
