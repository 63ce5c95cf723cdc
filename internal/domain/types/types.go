// Package types contains common types used across the application
package types

import (
	"errors"
	"time"

	"github.com/okian/leap/internal/domain/model"
)

// Entry represents a best-jump ranking entry
type Entry struct {
	Rank      int     `json:"rank"`
	SubjectID string  `json:"subject_id"`
	HeightCm  float64 `json:"height_cm"`
}

// Analysis request states.
const (
	StateQueued  = "queued"
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// AnalysisStatus is the externally visible state of one submitted
// analysis request. Measurement is set once State is StateDone.
type AnalysisStatus struct {
	RequestID   string
	State       string
	Percent     int
	Measurement *model.Measurement
	Error       string
	UpdatedAt   time.Time
}

// Sentinel kinds for submission errors shared between the service and
// its HTTP surface.
var (
	ErrQueueFull      = errors.New("analysis queue is full")
	ErrUnknownRequest = errors.New("unknown analysis request")
)
