package api

import (
	"net/http"
	"strconv"
	"strings"
)

// MeasurementsHandler serves stored measurements.
type MeasurementsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewMeasurementsHandler creates a new measurements handler. maxLimit
// caps the list page size.
func NewMeasurementsHandler(deps Dependencies, maxLimit int) *MeasurementsHandler {
	return &MeasurementsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /measurements?subject_id=&limit=.
func (h *MeasurementsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	limit := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", NewKind("list measurements", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	subjectID := r.URL.Query().Get("subject_id")

	measurements, err := h.deps.Measurements(r.Context(), subjectID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err)
		return
	}

	resp := make([]measurementResponse, 0, len(measurements))
	for _, m := range measurements {
		resp = append(resp, toMeasurementResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /measurements/{id}.
func (h *MeasurementsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/measurements/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_id", NewKind("get measurement", "measurement id is required"))
		return
	}

	m, err := h.deps.Measurement(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "measurement_not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toMeasurementResponse(m))
}
