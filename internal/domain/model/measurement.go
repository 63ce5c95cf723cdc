// Package model contains domain models passed between layers.
package model

import "time"

// MarkRole identifies the semantic role of a user-supplied time mark.
type MarkRole string

// Valid mark roles.
const (
	MarkTakeoff MarkRole = "takeoff"
	MarkPeak    MarkRole = "peak"
)

// TimeMark is a single user-marked timestamp on the video timeline.
// Marks are immutable once produced; a valid pair requires the peak
// mark to be strictly after the takeoff mark.
type TimeMark struct {
	Role    MarkRole
	Seconds float64 // offset from the start of the video, >= 0
}

// Landmark names following the MediaPipe pose convention. Only the
// landmarks the estimator reads are named; detectors may return more.
const (
	LandmarkNose       = "nose"
	LandmarkLeftHip    = "left_hip"
	LandmarkRightHip   = "right_hip"
	LandmarkLeftAnkle  = "left_ankle"
	LandmarkRightAnkle = "right_ankle"
)

// Keypoint is one detector observation for a single body landmark in
// image space. Y increases downward.
type Keypoint struct {
	Name       string
	X          float64
	Y          float64
	Confidence float64 // detector certainty in [0,1]
}

// HipObservation is the per-frame fused hip position used for
// displacement tracking. Sequences are append-only and ordered by Time.
type HipObservation struct {
	Time       float64 // seconds from the start of the video
	HipY       float64 // fused hip Y in image space
	Confidence float64
}

// Method identifies which estimation pipeline produced a measurement.
type Method string

// Valid measurement methods.
const (
	MethodManual Method = "manual"
	MethodVision Method = "vision"
)

// Measurement is a finished jump-height result. AirTimeSeconds is only
// meaningful for the manual pipeline; HasAirTime reports whether it was
// computed at all.
type Measurement struct {
	ID             string
	SubjectID      string
	Method         Method
	HeightCm       float64
	AirTimeSeconds float64
	HasAirTime     bool
	Category       string
	CreatedAt      time.Time
}

// AnalysisJob is a queued request for a vision-based analysis.
// RequestID doubles as the idempotency key for submissions.
type AnalysisJob struct {
	RequestID       string
	SubjectID       string
	SourceRef       string  // opaque reference resolvable by the video adapter
	SubjectHeightCm float64 // calibration input, validated upstream
	EnqueuedAt      time.Time
}
