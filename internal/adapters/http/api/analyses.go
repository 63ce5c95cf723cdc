package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/leap/internal/domain/types"
)

// AnalysesHandler accepts video analysis submissions and reports their
// progress.
type AnalysesHandler struct {
	deps Dependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

type analysisRequest struct {
	RequestID       string  `json:"request_id"`
	SubjectID       string  `json:"subject_id"`
	SourceRef       string  `json:"source_ref"`
	SubjectHeightCm float64 `json:"subject_height_cm"`
}

type statusResponse struct {
	RequestID   string               `json:"request_id"`
	State       string               `json:"state"`
	Percent     int                  `json:"percent"`
	Measurement *measurementResponse `json:"measurement,omitempty"`
	Error       string               `json:"error,omitempty"`
	UpdatedAt   string               `json:"updated_at"`
}

// HandleSubmit handles POST /analyses.
func (h *AnalysesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", Wrap("decode analysis request", err))
		return
	}
	if req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "missing_subject", NewKind("submit analysis", "subject_id is required"))
		return
	}
	if req.SourceRef == "" {
		writeError(w, http.StatusBadRequest, "missing_source", NewKind("submit analysis", "source_ref is required"))
		return
	}
	if req.SubjectHeightCm <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_height", NewKind("submit analysis", "subject_height_cm must be positive"))
		return
	}

	requestID, duplicate, err := h.deps.SubmitAnalysis(r.Context(), req.RequestID, req.SubjectID, req.SourceRef, req.SubjectHeightCm)
	if err != nil {
		if errors.Is(err, types.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "submit_failed", WrapKind("submit analysis", "enqueue", err))
		return
	}

	status := http.StatusAccepted
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, ackResponse{RequestID: requestID, Status: "queued", Duplicate: duplicate})
}

// HandleStatus handles GET /analyses/{request_id}.
func (h *AnalysesHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	requestID := strings.TrimPrefix(r.URL.Path, "/analyses/")
	if requestID == "" || strings.Contains(requestID, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request_id", NewKind("analysis status", "request id is required"))
		return
	}

	st, err := h.deps.AnalysisStatus(r.Context(), requestID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "unknown_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "status_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

func toStatusResponse(st types.AnalysisStatus) statusResponse {
	resp := statusResponse{
		RequestID: st.RequestID,
		State:     st.State,
		Percent:   st.Percent,
		Error:     st.Error,
		UpdatedAt: st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if st.Measurement != nil {
		m := toMeasurementResponse(*st.Measurement)
		resp.Measurement = &m
	}
	return resp
}
