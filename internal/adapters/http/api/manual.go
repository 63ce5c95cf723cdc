package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/leap/internal/domain/kinematic"
	"github.com/okian/leap/internal/domain/model"
)

// ManualHandler accepts mark pairs and records manual measurements.
type ManualHandler struct {
	deps Dependencies
}

// NewManualHandler creates a new manual measurement handler.
func NewManualHandler(deps Dependencies) *ManualHandler {
	return &ManualHandler{deps: deps}
}

type manualRequest struct {
	SubjectID      string  `json:"subject_id"`
	TakeoffSeconds float64 `json:"takeoff_seconds"`
	PeakSeconds    float64 `json:"peak_seconds"`
}

// HandlePostManual handles POST /measurements/manual.
func (h *ManualHandler) HandlePostManual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", Wrap("decode manual request", err))
		return
	}
	if req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_subject", NewKind("manual measure", "subject_id is required"))
		return
	}
	if req.TakeoffSeconds < 0 || req.PeakSeconds < 0 {
		writeError(w, http.StatusBadRequest, "invalid_marks", NewKind("manual measure", "mark seconds must be non-negative"))
		return
	}

	takeoff := model.TimeMark{Role: model.MarkTakeoff, Seconds: req.TakeoffSeconds}
	peak := model.TimeMark{Role: model.MarkPeak, Seconds: req.PeakSeconds}

	m, err := h.deps.ManualMeasure(r.Context(), req.SubjectID, takeoff, peak)
	if err != nil {
		if errors.Is(err, kinematic.ErrInvalidMarkOrder) {
			writeError(w, http.StatusBadRequest, "invalid_mark_order", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "measure_failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMeasurementResponse(m))
}
