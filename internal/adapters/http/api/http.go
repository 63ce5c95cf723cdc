// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Manual pipeline.
	ManualMeasure(ctx context.Context, subjectID string, takeoff, peak model.TimeMark) (model.Measurement, error)

	// Vision pipeline.
	SubmitAnalysis(ctx context.Context, requestID, subjectID, sourceRef string, subjectHeightCm float64) (string, bool, error)
	AnalysisStatus(ctx context.Context, requestID string) (types.AnalysisStatus, error)

	// Read operations.
	Measurement(ctx context.Context, id string) (model.Measurement, error)
	Measurements(ctx context.Context, subjectID string, limit int) ([]model.Measurement, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, subjectID string) (Entry, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	manualHandler       *ManualHandler
	analysesHandler     *AnalysesHandler
	measurementsHandler *MeasurementsHandler
	leaderboardHandler  *LeaderboardHandler
	rankHandler         *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxListLimit int) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		manualHandler:       NewManualHandler(deps),
		analysesHandler:     NewAnalysesHandler(deps),
		measurementsHandler: NewMeasurementsHandler(deps, maxListLimit),
		leaderboardHandler:  NewLeaderboardHandler(deps, maxListLimit),
		rankHandler:         NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/measurements/manual", MetricsMiddleware(s.manualHandler.HandlePostManual, "measurements_manual"))
	mux.HandleFunc("/measurements", MetricsMiddleware(s.measurementsHandler.HandleList, "measurements"))
	mux.HandleFunc("/measurements/", MetricsMiddleware(s.measurementsHandler.HandleGet, "measurements"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.analysesHandler.HandleSubmit, "analyses"))
	mux.HandleFunc("/analyses/", MetricsMiddleware(s.analysesHandler.HandleStatus, "analyses_status"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

// measurementResponse mirrors the wire schema for stored measurements.
type measurementResponse struct {
	ID             string   `json:"id"`
	SubjectID      string   `json:"subject_id"`
	Method         string   `json:"method"`
	HeightCm       float64  `json:"height_cm"`
	AirTimeSeconds *float64 `json:"air_time_seconds,omitempty"`
	Category       string   `json:"category"`
	CreatedAt      string   `json:"created_at"`
}

func toMeasurementResponse(m model.Measurement) measurementResponse {
	resp := measurementResponse{
		ID:        m.ID,
		SubjectID: m.SubjectID,
		Method:    string(m.Method),
		HeightCm:  m.HeightCm,
		Category:  m.Category,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if m.HasAirTime {
		airTime := m.AirTimeSeconds
		resp.AirTimeSeconds = &airTime
	}
	return resp
}

type ackResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
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

// isNotFound allows the API to translate upstream not-found errors to 404.
// This stays generic to avoid tight coupling with specific packages.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrUnknownRequest) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
