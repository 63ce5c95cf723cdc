// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with documented defaults.
// - All analysis thresholds live here so tests can override them without
//   touching algorithm code.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers. Vision analyses
	// are CPU- and detector-bound, so the default stays modest.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxListLimit caps GET /measurements?limit and /leaderboard?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// HistoryPath is the sqlite file for measurement history.
	// ":memory:" keeps history in process memory.
	HistoryPath string `koanf:"history_path"`

	// FramesRoot is the directory under which analysis source refs are
	// resolved to frame directories.
	FramesRoot string `koanf:"frames_root"`

	// DetectorURL is the base URL of the external pose detector service.
	DetectorURL string `koanf:"detector_url"`

	// DetectorTimeoutMS bounds a single detector inference call.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms"`

	// SampleRate is the fixed analysis rate in samples per second,
	// independent of the source video's native frame rate.
	SampleRate float64 `koanf:"sample_rate"`

	// SeekTimeoutMS bounds how long a single frame seek may settle
	// before the current frame is used as-is.
	SeekTimeoutMS int `koanf:"seek_timeout_ms"`

	// MinConfidence gates raw landmark selection.
	MinConfidence float64 `koanf:"min_confidence"`

	// StrictConfidence gates observations entering aggregation.
	StrictConfidence float64 `koanf:"strict_confidence"`

	// MinObservations is required of hip observations both before and
	// after the strict confidence filter.
	MinObservations int `koanf:"min_observations"`

	// MinBodySamples is how many nose-to-ankle spans the median-based
	// calibration requires before trusting it.
	MinBodySamples int `koanf:"min_body_samples"`

	// BodyRatio is the assumed nose-to-ankle share of standing height.
	BodyRatio float64 `koanf:"body_ratio"`

	// FrameFillRatio is the calibration fallback: share of the frame's
	// pixel height a standing person is assumed to occupy.
	FrameFillRatio float64 `koanf:"frame_fill_ratio"`

	// BaselineWindowSeconds is the opening still-standing window.
	BaselineWindowSeconds float64 `koanf:"baseline_window_seconds"`

	// MaxPlausibleCm is the artifact-correction threshold; results above
	// it are halved exactly once.
	MaxPlausibleCm float64 `koanf:"max_plausible_cm"`

	// MinJumpCm is the floor below which a result is rejected as noise.
	MinJumpCm float64 `koanf:"min_jump_cm"`
}

// New creates a Config with documented defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		QueueSize:             1024,
		WorkerCount:           runtime.NumCPU(),
		DedupeSize:            100_000,
		MaxListLimit:          100,
		HistoryPath:           "leap.db",
		FramesRoot:            "clips",
		DetectorURL:           "http://127.0.0.1:9090",
		DetectorTimeoutMS:     10_000,
		SampleRate:            15,
		SeekTimeoutMS:         500,
		MinConfidence:         0.3,
		StrictConfidence:      0.4,
		MinObservations:       5,
		MinBodySamples:        3,
		BodyRatio:             0.9,
		FrameFillRatio:        0.7,
		BaselineWindowSeconds: 1.0,
		MaxPlausibleCm:        120,
		MinJumpCm:             5,
	}
}
