package simulate

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/leap/internal/domain/grade"
	"github.com/okian/leap/internal/domain/kinematic"
	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	tierDivisor        = 8
	maxTakeoffOffset   = 5.0
)

// Generated jump-height ranges in centimetres, chosen so the simulated
// population covers every classifier tier.
const (
	beginnerMin    = 6.0
	beginnerRange  = 23.0
	averageMin     = 30.0
	averageRange   = 15.0
	goodMin        = 46.0
	goodRange      = 9.0
	greatMin       = 56.0
	greatRange     = 9.0
	excellentMin   = 66.0
	excellentRange = 9.0
	eliteMin       = 76.0
	eliteRange     = 30.0
	wideMin        = 6.0
	wideRange      = 100.0
)

// Tier selector cases.
const (
	caseBeginner = iota
	caseAverage
	caseGood
	caseGreat
	caseExcellent
	caseElite
	caseWideLow
	caseWideHigh
)

// Acceleration used to back out an air time from a target height. Must
// match the estimator's kinematic model.
const gravity = 9.81

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateJumps creates the requested number of jumps with unique subject IDs.
func generateJumps(ctx context.Context, config *Config, stats *Stats) ([]Jump, error) {
	logger.Get().Info(ctx, "generating jumps with unique subject IDs", logger.Int("numJumps", config.NumJumps))

	jumps := make([]Jump, config.NumJumps)
	for i := range jumps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		jumps[i] = generateSingleJump(uuid.New().String())
	}

	stats.JumpsGenerated = len(jumps)
	logger.Get().Info(ctx, "generated jumps successfully", logger.Int("count", len(jumps)))

	return jumps, nil
}

// generateSingleJump builds one mark pair whose air time produces a
// height in a randomly selected tier, then records the values the
// service should compute for it.
func generateSingleJump(subjectID string) Jump {
	targetCm := generateTierHeight()

	// heightCm = 0.5 * g * t^2 * 100, solved for t.
	airTime := math.Sqrt(targetCm / (0.5 * gravity * 100))

	takeoff := getRandomFloat() * maxTakeoffOffset
	peak := takeoff + airTime

	takeoffMark := model.TimeMark{Role: model.MarkTakeoff, Seconds: takeoff}
	peakMark := model.TimeMark{Role: model.MarkPeak, Seconds: peak}

	jump := Jump{
		SubjectID:      subjectID,
		TakeoffSeconds: takeoff,
		PeakSeconds:    peak,
	}

	if res, err := kinematic.Estimate(takeoffMark, peakMark); err == nil {
		jump.ExpectedHeightCm = res.HeightCm
		jump.ExpectedCategory = grade.Classify(res.HeightCm).Label
	}

	return jump
}

// generateTierHeight picks a target jump height with a distribution
// that populates every classifier tier.
func generateTierHeight() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(tierDivisor))
	switch n.Int64() {
	case caseBeginner:
		return beginnerMin + getRandomFloat()*beginnerRange
	case caseAverage:
		return averageMin + getRandomFloat()*averageRange
	case caseGood:
		return goodMin + getRandomFloat()*goodRange
	case caseGreat:
		return greatMin + getRandomFloat()*greatRange
	case caseExcellent:
		return excellentMin + getRandomFloat()*excellentRange
	case caseElite:
		return eliteMin + getRandomFloat()*eliteRange
	default:
		return wideMin + getRandomFloat()*wideRange
	}
}
