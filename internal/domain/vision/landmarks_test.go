package vision

import (
	"testing"

	"github.com/okian/leap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFuseHips(t *testing.T) {
	Convey("Given per-frame hip keypoints", t, func() {
		Convey("When both hips clear the threshold", func() {
			hip, ok := fuseHips([]model.Keypoint{
				{Name: model.LandmarkLeftHip, Y: 500, Confidence: 0.8},
				{Name: model.LandmarkRightHip, Y: 520, Confidence: 0.6},
			}, 0.3)

			Convey("Then position and confidence are averaged", func() {
				So(ok, ShouldBeTrue)
				So(hip.Y, ShouldEqual, 510)
				So(hip.Confidence, ShouldAlmostEqual, 0.7)
			})
		})

		Convey("When only one hip clears the threshold", func() {
			hip, ok := fuseHips([]model.Keypoint{
				{Name: model.LandmarkLeftHip, Y: 500, Confidence: 0.1},
				{Name: model.LandmarkRightHip, Y: 520, Confidence: 0.9},
			}, 0.3)

			Convey("Then it is used alone", func() {
				So(ok, ShouldBeTrue)
				So(hip.Y, ShouldEqual, 520)
				So(hip.Confidence, ShouldEqual, 0.9)
			})
		})

		Convey("When neither hip clears the threshold", func() {
			_, ok := fuseHips([]model.Keypoint{
				{Name: model.LandmarkLeftHip, Y: 500, Confidence: 0.2},
				{Name: model.LandmarkRightHip, Y: 520, Confidence: 0.25},
			}, 0.3)

			Convey("Then the frame yields no observation", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the frame has no hip keypoints at all", func() {
			_, ok := fuseHips([]model.Keypoint{
				{Name: model.LandmarkNose, Y: 100, Confidence: 0.9},
			}, 0.3)

			Convey("Then the frame yields no observation", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestBodySpan(t *testing.T) {
	Convey("Given nose and ankle keypoints", t, func() {
		full := []model.Keypoint{
			{Name: model.LandmarkNose, Y: 100, Confidence: 0.9},
			{Name: model.LandmarkLeftAnkle, Y: 540, Confidence: 0.8},
			{Name: model.LandmarkRightAnkle, Y: 560, Confidence: 0.8},
		}

		Convey("When everything clears the threshold", func() {
			span, ok := bodySpan(full, 0.3)

			Convey("Then the span is nose to ankle midpoint", func() {
				So(ok, ShouldBeTrue)
				So(span, ShouldEqual, 450)
			})
		})

		Convey("When the nose is below threshold", func() {
			dim := []model.Keypoint{
				{Name: model.LandmarkNose, Y: 100, Confidence: 0.1},
				{Name: model.LandmarkLeftAnkle, Y: 540, Confidence: 0.8},
				{Name: model.LandmarkRightAnkle, Y: 560, Confidence: 0.8},
			}
			_, ok := bodySpan(dim, 0.3)

			Convey("Then no calibration sample is produced", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When one ankle is missing", func() {
			partial := []model.Keypoint{
				{Name: model.LandmarkNose, Y: 100, Confidence: 0.9},
				{Name: model.LandmarkLeftAnkle, Y: 540, Confidence: 0.8},
			}
			_, ok := bodySpan(partial, 0.3)

			Convey("Then no calibration sample is produced", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestLowerMedian(t *testing.T) {
	Convey("Given body-span samples", t, func() {
		Convey("When the count is odd", func() {
			Convey("Then the middle element is picked", func() {
				So(lowerMedian([]float64{430, 410, 420}), ShouldEqual, 420)
			})
		})

		Convey("When the count is even", func() {
			Convey("Then index n/2 is picked, preserved exactly for reproducibility", func() {
				So(lowerMedian([]float64{400, 430, 410, 420}), ShouldEqual, 420)
			})
		})

		Convey("When the input is unsorted", func() {
			input := []float64{5, 1, 9, 3, 7}

			Convey("Then the input slice is left untouched", func() {
				_ = lowerMedian(input)
				So(input, ShouldResemble, []float64{5, 1, 9, 3, 7})
			})
		})
	})
}
