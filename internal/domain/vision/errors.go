package vision

import (
	"context"
	"errors"
)

// Sentinel kinds for vision estimator errors. All are terminal for the
// current analysis attempt; none are retried automatically.
var (
	// ErrInsufficientPoseData reports too few raw hip observations across
	// all sampled frames.
	ErrInsufficientPoseData = errors.New("insufficient pose data")

	// ErrLowConfidence reports too few observations surviving the strict
	// confidence filter.
	ErrLowConfidence = errors.New("pose confidence too low")

	// ErrJumpTooSmall reports a computed height below the measurable
	// floor, treated as noise rather than a real result.
	ErrJumpTooSmall = errors.New("jump too small to measure")
)

// failureReason maps an analysis error to a stable metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientPoseData):
		return "insufficient_pose_data"
	case errors.Is(err, ErrLowConfidence):
		return "low_confidence"
	case errors.Is(err, ErrJumpTooSmall):
		return "jump_too_small"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "detector_or_source"
	}
}
