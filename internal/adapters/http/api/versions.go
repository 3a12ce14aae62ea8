package api

import "net/http"

// VersionsHandler reports the extraction and coaching versions in effect.
type VersionsHandler struct {
	deps Dependencies
}

// HandleVersions handles GET /versions requests.
func (h *VersionsHandler) HandleVersions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Versions())
}
