package vision_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	model "github.com/okian/leap/internal/domain/model"
	vision "github.com/okian/leap/internal/domain/vision"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeSource is a scripted frame source. Frames are identical 1x1 images;
// the scripted detector distinguishes samples by call index instead.
type fakeSource struct {
	id       string
	duration float64
	width    int
	height   int

	active  atomic.Int32
	overlap atomic.Bool
}

func (s *fakeSource) ID() string                 { return s.id }
func (s *fakeSource) Duration() float64          { return s.duration }
func (s *fakeSource) Dimensions() (int, int)     { return s.width, s.height }
func (s *fakeSource) Seek(ctx context.Context, t float64, timeout time.Duration) (image.Image, error) {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	return image.NewGray(image.Rect(0, 0, 1, 1)), nil
}

// scriptedDetector returns keypoint sets per call index, repeating the
// last entry once the script is exhausted.
type scriptedDetector struct {
	mu     sync.Mutex
	script [][]model.Keypoint
	calls  int
	err    error
}

func (d *scriptedDetector) Estimate(ctx context.Context, frame image.Image) ([]model.Keypoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	i := d.calls
	d.calls++
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	return d.script[i], nil
}

func hipsAt(y, confidence float64) []model.Keypoint {
	return []model.Keypoint{
		{Name: model.LandmarkLeftHip, Y: y, Confidence: confidence},
		{Name: model.LandmarkRightHip, Y: y, Confidence: confidence},
	}
}

// jumpScript builds a 2-second trajectory at 15 samples/s: the first
// second standing at standingY, the second around peakY.
func jumpScript(standingY, peakY, confidence float64) [][]model.Keypoint {
	script := make([][]model.Keypoint, 30)
	for i := range script {
		y := standingY
		if i >= 15 {
			y = peakY
		}
		script[i] = hipsAt(y, confidence)
	}
	return script
}

func TestAnalyze(t *testing.T) {
	Convey("Given a 2s video with a clean hip trajectory", t, func() {
		// Fallback calibration: 175 / (1250 * 0.7) = 0.2 cm per pixel.
		src := &fakeSource{id: "clip-1", duration: 2, width: 720, height: 1250}

		Convey("When the hip moves from 500 to 400 at 0.2 cm/px", func() {
			det := &scriptedDetector{script: jumpScript(500, 400, 0.9)}
			a := vision.New(det)

			result, err := a.Analyze(context.Background(), src, 175, nil)

			Convey("Then the height is displacement times scale", func() {
				So(err, ShouldBeNil)
				So(result.HeightCm, ShouldEqual, 20.0)
			})
		})

		Convey("When the raw height computes to 250cm", func() {
			// displacement 1250px * 0.2 = 250cm, above the 120cm threshold
			det := &scriptedDetector{script: jumpScript(1500, 250, 0.9)}
			a := vision.New(det)

			result, err := a.Analyze(context.Background(), src, 175, nil)

			Convey("Then it is halved exactly once, even though 125 still exceeds 120", func() {
				So(err, ShouldBeNil)
				So(result.HeightCm, ShouldEqual, 125.0)
			})
		})

		Convey("When displacement is negative", func() {
			det := &scriptedDetector{script: jumpScript(400, 500, 0.9)}
			a := vision.New(det)

			_, err := a.Analyze(context.Background(), src, 175, nil)

			Convey("Then the clamped zero height fails as too small", func() {
				So(err, ShouldWrap, vision.ErrJumpTooSmall)
			})
		})
	})

	Convey("Given sparse or low-confidence detections", t, func() {
		src := &fakeSource{id: "clip-2", duration: 2, width: 720, height: 1250}

		Convey("When no keypoints clear the raw threshold", func() {
			det := &scriptedDetector{script: jumpScript(500, 400, 0.2)}
			a := vision.New(det)

			_, err := a.Analyze(context.Background(), src, 175, nil)

			Convey("Then it fails with insufficient pose data", func() {
				So(err, ShouldWrap, vision.ErrInsufficientPoseData)
			})
		})

		Convey("When detections clear the raw threshold but not the strict one", func() {
			det := &scriptedDetector{script: jumpScript(500, 400, 0.35)}
			a := vision.New(det)

			_, err := a.Analyze(context.Background(), src, 175, nil)

			Convey("Then it fails with low confidence", func() {
				So(err, ShouldWrap, vision.ErrLowConfidence)
			})
		})
	})

	Convey("Given a detector that fails during inference", t, func() {
		src := &fakeSource{id: "clip-3", duration: 2, width: 720, height: 1250}
		detErr := errors.New("model not loaded")
		det := &scriptedDetector{err: detErr}
		a := vision.New(det)

		_, err := a.Analyze(context.Background(), src, 175, nil)

		Convey("Then the failure is propagated, not swallowed", func() {
			So(err, ShouldWrap, detErr)
		})
	})

	Convey("Given a cancelled context", t, func() {
		src := &fakeSource{id: "clip-4", duration: 2, width: 720, height: 1250}
		det := &scriptedDetector{script: jumpScript(500, 400, 0.9)}
		a := vision.New(det)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := a.Analyze(ctx, src, 175, nil)

		Convey("Then the analysis aborts between frames", func() {
			So(err, ShouldWrap, context.Canceled)
		})
	})
}

func TestAnalyzeProgress(t *testing.T) {
	Convey("Given a progress callback", t, func() {
		src := &fakeSource{id: "clip-5", duration: 2, width: 720, height: 1250}
		det := &scriptedDetector{script: jumpScript(500, 400, 0.9)}
		a := vision.New(det)

		var reported []int
		_, err := a.Analyze(context.Background(), src, 175, func(percent int) {
			reported = append(reported, percent)
		})

		Convey("Then it fires once per sampled frame", func() {
			So(err, ShouldBeNil)
			So(len(reported), ShouldEqual, 30)
		})

		Convey("And values are monotonically non-decreasing up to 100", func() {
			for i := 1; i < len(reported); i++ {
				So(reported[i], ShouldBeGreaterThanOrEqualTo, reported[i-1])
			}
			So(reported[len(reported)-1], ShouldEqual, 100)
		})
	})
}

func TestAnalyzeCalibration(t *testing.T) {
	Convey("Given frames carrying nose and ankle landmarks", t, func() {
		src := &fakeSource{id: "clip-6", duration: 2, width: 720, height: 2000}

		// Body span 450px -> full height 450/0.9 = 500px,
		// scale = 100cm / 500px = 0.2 cm/px.
		withBody := func(hipY float64) []model.Keypoint {
			kps := hipsAt(hipY, 0.9)
			return append(kps,
				model.Keypoint{Name: model.LandmarkNose, Y: 100, Confidence: 0.9},
				model.Keypoint{Name: model.LandmarkLeftAnkle, Y: 550, Confidence: 0.9},
				model.Keypoint{Name: model.LandmarkRightAnkle, Y: 550, Confidence: 0.9},
			)
		}
		script := make([][]model.Keypoint, 30)
		for i := range script {
			y := 500.0
			if i >= 15 {
				y = 400.0
			}
			script[i] = withBody(y)
		}
		det := &scriptedDetector{script: script}
		a := vision.New(det)

		result, err := a.Analyze(context.Background(), src, 100, nil)

		Convey("Then the median body span drives the pixel scale", func() {
			So(err, ShouldBeNil)
			// 100px displacement * 0.2 cm/px, not frame-fallback scaled.
			So(result.HeightCm, ShouldEqual, 20.0)
		})
	})
}

func TestAnalyzeSingleFlight(t *testing.T) {
	Convey("Given two concurrent analyses of the same source", t, func() {
		src := &fakeSource{id: "clip-7", duration: 2, width: 720, height: 1250}
		det := &scriptedDetector{script: jumpScript(500, 400, 0.9)}
		a := vision.New(det)

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = a.Analyze(context.Background(), src, 175, nil)
			}()
		}
		wg.Wait()

		Convey("Then their frame accesses never overlap", func() {
			So(src.overlap.Load(), ShouldBeFalse)
		})
	})
}
