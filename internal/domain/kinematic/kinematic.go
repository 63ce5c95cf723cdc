// Package kinematic computes jump height from user-marked takeoff and
// peak timestamps using the constant-acceleration free-fall relation.
package kinematic

import (
	"fmt"

	"github.com/okian/leap/internal/domain/model"
)

// Physical constants for the free-fall model.
const (
	// gravity is the standard acceleration due to gravity in m/s².
	// Fixed by the model, not configurable: the formula is exact given
	// valid inputs, not a statistical fit.
	gravity = 9.81

	metersToCm = 100
)

// Result contains the computed height for a mark pair.
type Result struct {
	HeightCm       float64
	AirTimeSeconds float64
}

// Estimate converts a (takeoff, peak) mark pair into a jump height.
//
// airTime is the time to apex; under symmetric ballistic motion with an
// instantaneous takeoff impulse the apex displacement is 0.5*g*t².
// Returns ErrInvalidMarkOrder when the peak mark is not strictly after
// the takeoff mark. Pure and deterministic: identical marks always yield
// bit-identical results.
func Estimate(takeoff, peak model.TimeMark) (Result, error) {
	airTime := peak.Seconds - takeoff.Seconds
	if airTime <= 0 {
		return Result{}, fmt.Errorf("peak %.3fs not after takeoff %.3fs: %w",
			peak.Seconds, takeoff.Seconds, ErrInvalidMarkOrder)
	}

	heightMeters := 0.5 * gravity * airTime * airTime

	// No upper or lower bound is applied here: any positive airTime
	// yields a height, however large.
	return Result{
		HeightCm:       heightMeters * metersToCm,
		AirTimeSeconds: airTime,
	}, nil
}
