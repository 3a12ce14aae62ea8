package api

import (
	"net/http"

	"github.com/okian/shotcoach/internal/app/coach"
	"github.com/okian/shotcoach/internal/domain/model"
	"github.com/okian/shotcoach/internal/domain/version"
)

// coachRequest mirrors the OpenAPI schema for POST /coach.
type coachRequest struct {
	ShotID       string             `json:"shotId"`
	Roast        string             `json:"roast"`
	Mode         string             `json:"mode"`
	Form         model.ShotFormData `json:"form"`
	ForceRefresh bool               `json:"forceRefresh"`
	UseCache     *bool              `json:"useCache"`
}

// parse resolves the roast and optional mode names.
func (c coachRequest) parse() (model.RoastLevel, model.Mode, error) {
	roast, err := model.ParseRoastLevel(c.Roast)
	if err != nil {
		return "", "", err
	}
	if c.Mode == "" {
		return roast, "", nil
	}
	mode, err := model.ParseMode(c.Mode)
	if err != nil {
		return "", "", err
	}
	return roast, mode, nil
}

// CoachHandler handles coaching requests.
type CoachHandler struct {
	deps Dependencies
	responder
}

// HandlePostCoach handles POST /coach requests.
func (h *CoachHandler) HandlePostCoach(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_coach"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req coachRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	roast, mode, err := req.parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rec, err := h.deps.Coach(r.Context(), req.ShotID, req.Form, roast, mode, coach.Options{
		ForceRefresh: req.ForceRefresh,
		UseCache:     req.UseCache,
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// extractionRequest mirrors the OpenAPI schema for POST /extraction.
type extractionRequest struct {
	Roast string             `json:"roast"`
	Form  model.ShotFormData `json:"form"`
}

type extractionResponse struct {
	Version    string                  `json:"version"`
	Extraction model.ExtractionSummary `json:"extraction"`
}

// ExtractionHandler handles extraction classification requests.
type ExtractionHandler struct {
	deps Dependencies
	responder
}

// HandlePostExtraction handles POST /extraction requests.
func (h *ExtractionHandler) HandlePostExtraction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_extraction"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req extractionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	roast, err := model.ParseRoastLevel(req.Roast)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	summary, err := h.deps.Classify(req.Form, roast)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, extractionResponse{Version: version.Extraction.Current(), Extraction: summary})
}
