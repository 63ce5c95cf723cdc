package api

import (
	"net/http"
	"strings"
)

// RankHandler serves per-subject rank lookups.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{subject_id}.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	subjectID := strings.TrimPrefix(r.URL.Path, "/rank/")
	if subjectID == "" || strings.Contains(subjectID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_subject_id", NewKind("rank", "subject id is required"))
		return
	}

	entry, err := h.deps.Rank(r.Context(), subjectID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "subject_not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "rank_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
