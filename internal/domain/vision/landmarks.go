package vision

import (
	"math"
	"sort"

	"github.com/okian/leap/internal/domain/model"
)

// fusedHip is the confidence-weighted selection of the hip landmarks for
// one frame.
type fusedHip struct {
	Y          float64
	Confidence float64
}

// fuseHips selects the hip position from a frame's keypoints. When both
// hips clear minConfidence their position and confidence are averaged;
// with only one usable hip it is taken alone; with neither the frame is
// skipped.
func fuseHips(keypoints []model.Keypoint, minConfidence float64) (fusedHip, bool) {
	left, leftOK := findKeypoint(keypoints, model.LandmarkLeftHip)
	right, rightOK := findKeypoint(keypoints, model.LandmarkRightHip)

	leftOK = leftOK && left.Confidence > minConfidence
	rightOK = rightOK && right.Confidence > minConfidence

	switch {
	case leftOK && rightOK:
		return fusedHip{
			Y:          (left.Y + right.Y) / 2,
			Confidence: (left.Confidence + right.Confidence) / 2,
		}, true
	case leftOK:
		return fusedHip{Y: left.Y, Confidence: left.Confidence}, true
	case rightOK:
		return fusedHip{Y: right.Y, Confidence: right.Confidence}, true
	default:
		return fusedHip{}, false
	}
}

// bodySpan returns the vertical nose-to-ankle-midpoint pixel distance
// used for calibration. Both ankles and the nose must clear
// minConfidence; frames without a span remain usable for displacement.
func bodySpan(keypoints []model.Keypoint, minConfidence float64) (float64, bool) {
	nose, noseOK := findKeypoint(keypoints, model.LandmarkNose)
	leftAnkle, leftOK := findKeypoint(keypoints, model.LandmarkLeftAnkle)
	rightAnkle, rightOK := findKeypoint(keypoints, model.LandmarkRightAnkle)

	if !noseOK || nose.Confidence <= minConfidence {
		return 0, false
	}
	if !leftOK || !rightOK || leftAnkle.Confidence <= minConfidence || rightAnkle.Confidence <= minConfidence {
		return 0, false
	}

	ankleMidY := (leftAnkle.Y + rightAnkle.Y) / 2
	return math.Abs(ankleMidY - nose.Y), true
}

// findKeypoint returns the first keypoint with the given landmark name.
func findKeypoint(keypoints []model.Keypoint, name string) (model.Keypoint, bool) {
	for _, k := range keypoints {
		if k.Name == name {
			return k, true
		}
	}
	return model.Keypoint{}, false
}

// lowerMedian sorts a copy of xs ascending and picks index len/2. For
// even counts this is not a true median; the tie-break is preserved
// exactly for calibration reproducibility.
func lowerMedian(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
