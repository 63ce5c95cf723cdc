package kinematic_test

import (
	"testing"

	kinematic "github.com/okian/leap/internal/domain/kinematic"
	model "github.com/okian/leap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func mark(role model.MarkRole, seconds float64) model.TimeMark {
	return model.TimeMark{Role: role, Seconds: seconds}
}

func TestEstimate(t *testing.T) {
	Convey("Given the free-fall estimator", t, func() {
		Convey("When estimating from known air times", func() {
			// heightCm = 0.5 * 9.81 * t² * 100 = 490.5 * t²
			cases := []struct {
				airTime  float64
				heightCm float64
			}{
				{0.3, 44.145},
				{0.4, 78.48},
				{0.5, 122.625},
			}

			Convey("Then each height matches 490.5 * airTime²", func() {
				for _, c := range cases {
					got, err := kinematic.Estimate(
						mark(model.MarkTakeoff, 1.0),
						mark(model.MarkPeak, 1.0+c.airTime),
					)
					So(err, ShouldBeNil)
					So(got.HeightCm, ShouldAlmostEqual, c.heightCm, 1e-9)
					So(got.AirTimeSeconds, ShouldAlmostEqual, c.airTime, 1e-9)
				}
			})
		})

		Convey("When the peak mark equals the takeoff mark", func() {
			_, err := kinematic.Estimate(
				mark(model.MarkTakeoff, 2.0),
				mark(model.MarkPeak, 2.0),
			)

			Convey("Then it fails with ErrInvalidMarkOrder", func() {
				So(err, ShouldWrap, kinematic.ErrInvalidMarkOrder)
			})
		})

		Convey("When the peak mark precedes the takeoff mark", func() {
			_, err := kinematic.Estimate(
				mark(model.MarkTakeoff, 3.0),
				mark(model.MarkPeak, 1.5),
			)

			Convey("Then it fails with ErrInvalidMarkOrder", func() {
				So(err, ShouldWrap, kinematic.ErrInvalidMarkOrder)
			})
		})

		Convey("When estimating the same marks twice", func() {
			takeoff := mark(model.MarkTakeoff, 0.8)
			peak := mark(model.MarkPeak, 1.25)

			first, err1 := kinematic.Estimate(takeoff, peak)
			second, err2 := kinematic.Estimate(takeoff, peak)

			Convey("Then the results are bit-identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, second)
			})
		})

		Convey("When the air time is extreme", func() {
			got, err := kinematic.Estimate(
				mark(model.MarkTakeoff, 0),
				mark(model.MarkPeak, 10),
			)

			Convey("Then no upper bound is applied", func() {
				So(err, ShouldBeNil)
				So(got.HeightCm, ShouldAlmostEqual, 49050.0, 1e-6)
			})
		})
	})
}
