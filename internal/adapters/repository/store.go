// Package repository defines the ranking and history store interfaces.
package repository

import (
	"context"

	"github.com/okian/leap/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank          int
	SubjectID     string
	HeightCm      float64
	MeasurementID string
	Method        model.Method
}

// RankStore provides read/write access to the best-jump leaderboard.
type RankStore interface {
	// UpdateBest sets a new best height for a subject if higher than the
	// existing one. Returns true if the store updated the height.
	UpdateBest(ctx context.Context, subjectID string, heightCm float64) (bool, error)
	// UpdateBestWithMeta sets a new best height and stores associated
	// measurement metadata when improved.
	UpdateBestWithMeta(ctx context.Context, subjectID string, heightCm float64, measurementID string, method model.Method) (bool, error)

	// Rank returns the current rank and best height for a subject.
	// Returns ErrNotFound if the subject is unknown.
	Rank(ctx context.Context, subjectID string) (Entry, error)

	// TopN returns the top-N entries ordered by height desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of subjects tracked in the leaderboard.
	Count(ctx context.Context) int
}

// HistoryStore persists finished measurements.
type HistoryStore interface {
	// Save stores a measurement. The measurement ID must be unique.
	Save(ctx context.Context, m model.Measurement) error
	// Get returns a measurement by ID. Returns ErrMeasurementNotFound
	// if no measurement with that ID exists.
	Get(ctx context.Context, id string) (model.Measurement, error)
	// List returns measurements for a subject, newest first, up to limit.
	// An empty subjectID lists across all subjects.
	List(ctx context.Context, subjectID string, limit int) ([]model.Measurement, error)
	// Close releases the underlying storage.
	Close() error
}
