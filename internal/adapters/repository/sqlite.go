package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/pkg/metrics"
)

// defaultListLimit bounds List queries when the caller passes a
// non-positive limit.
const defaultListLimit = 100

// SQLiteHistory is a HistoryStore backed by an embedded sqlite database.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory opens (and if needed creates) the measurement history
// database at path. Use ":memory:" for an ephemeral store.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS measurements (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			method TEXT NOT NULL,
			height_cm REAL NOT NULL,
			air_time_seconds REAL NOT NULL DEFAULT 0,
			has_air_time INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_measurements_subject
			ON measurements(subject_id, created_at DESC);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &SQLiteHistory{db: db}, nil
}

// Save implements HistoryStore.Save.
func (s *SQLiteHistory) Save(ctx context.Context, m model.Measurement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements
			(id, subject_id, method, height_cm, air_time_seconds, has_air_time, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SubjectID, string(m.Method), m.HeightCm, m.AirTimeSeconds,
		boolToInt(m.HasAirTime), m.Category, m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		metrics.RecordHistoryError()
		return fmt.Errorf("save measurement %s: %w", m.ID, err)
	}
	metrics.RecordHistorySave()
	return nil
}

// Get implements HistoryStore.Get.
func (s *SQLiteHistory) Get(ctx context.Context, id string) (model.Measurement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject_id, method, height_cm, air_time_seconds, has_air_time, category, created_at
		 FROM measurements WHERE id = ?`, id)

	m, err := scanMeasurement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Measurement{}, ErrMeasurementNotFound
	}
	if err != nil {
		metrics.RecordHistoryError()
		return model.Measurement{}, fmt.Errorf("get measurement %s: %w", id, err)
	}
	return m, nil
}

// List implements HistoryStore.List.
func (s *SQLiteHistory) List(ctx context.Context, subjectID string, limit int) ([]model.Measurement, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, subject_id, method, height_cm, air_time_seconds, has_air_time, category, created_at
		 FROM measurements`
	args := make([]any, 0, 2)
	if subjectID != "" {
		query += ` WHERE subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordHistoryError()
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	out := make([]model.Measurement, 0, limit)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			metrics.RecordHistoryError()
			return nil, fmt.Errorf("list measurements: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordHistoryError()
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return out, nil
}

// Close implements HistoryStore.Close.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(sc scanner) (model.Measurement, error) {
	var (
		m          model.Measurement
		method     string
		hasAirTime int
		createdAt  string
	)
	if err := sc.Scan(&m.ID, &m.SubjectID, &method, &m.HeightCm, &m.AirTimeSeconds, &hasAirTime, &m.Category, &createdAt); err != nil {
		return model.Measurement{}, err
	}
	m.Method = model.Method(method)
	m.HasAirTime = hasAirTime != 0
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Measurement{}, fmt.Errorf("parse created_at: %w", err)
	}
	m.CreatedAt = ts
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
