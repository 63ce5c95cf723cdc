// Package vision estimates jump height from per-frame pose keypoints.
//
// The analyzer samples frames at a fixed rate, asks an external keypoint
// detector for landmarks, tracks the fused hip position over time, and
// converts the standing-to-apex pixel displacement into centimeters using
// an anthropometric calibration derived from the subject's known height.
package vision

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/leap/internal/domain/model"
	"github.com/okian/leap/pkg/logger"
	"github.com/okian/leap/pkg/metrics"
)

// Default analysis parameters. Every one of them can be overridden with
// an Option so tests can tighten or relax thresholds without touching the
// algorithm.
const (
	// defaultSampleRate is the fixed analysis rate in samples per second,
	// independent of the source video's native frame rate.
	defaultSampleRate = 15.0

	// defaultSeekTimeout bounds how long a single seek may settle before
	// the source's current frame is used as-is.
	defaultSeekTimeout = 500 * time.Millisecond

	// defaultMinConfidence gates raw landmark selection.
	defaultMinConfidence = 0.3

	// defaultStrictConfidence gates observations entering aggregation.
	defaultStrictConfidence = 0.4

	// defaultMinObservations is required both of raw and of filtered
	// hip observations.
	defaultMinObservations = 5

	// defaultMinBodySamples is the number of nose-to-ankle spans needed
	// before the median-based calibration is trusted.
	defaultMinBodySamples = 3

	// defaultBodyRatio assumes the nose-to-ankle span covers this share
	// of total standing height (empirical anthropometric ratio).
	defaultBodyRatio = 0.9

	// defaultFrameFillRatio is the calibration fallback: a standing
	// person is assumed to occupy this share of the frame's pixel height.
	defaultFrameFillRatio = 0.7

	// defaultBaselineWindow is how long the subject is assumed to stand
	// still at the start of the video.
	defaultBaselineWindow = 1.0

	// defaultMinBaselineObs is the number of early observations needed
	// for the averaged standing baseline.
	defaultMinBaselineObs = 2

	// defaultMaxPlausibleCm is the artifact-correction threshold; results
	// above it are halved exactly once.
	defaultMaxPlausibleCm = 120.0

	// defaultMinJumpCm is the floor below which a result is treated as
	// immeasurable noise.
	defaultMinJumpCm = 5.0

	percentScale = 100
)

// FrameSource is a seekable source of video frames. It is exclusively
// owned by one in-flight analysis at a time.
type FrameSource interface {
	// ID identifies the underlying video resource for single-flight
	// serialization.
	ID() string

	// Duration returns the video length in seconds.
	Duration() float64

	// Dimensions returns the pixel width and height of the video.
	Dimensions() (width, height int)

	// Seek positions the source at the frame nearest to t and returns it.
	// When the seek does not settle within timeout, the source must
	// return its current frame as-is rather than block.
	Seek(ctx context.Context, t float64, timeout time.Duration) (image.Image, error)
}

// Detector is the external pose-keypoint capability, invoked once per
// sampled frame. Calls are assumed non-reentrant on a single instance.
type Detector interface {
	Estimate(ctx context.Context, frame image.Image) ([]model.Keypoint, error)
}

// ProgressFunc receives the completion percentage after each sampled
// frame. Values are monotonically non-decreasing and purely
// observational: they must not affect the computed result.
type ProgressFunc func(percent int)

// Result contains the computed jump height. The vision pipeline has no
// takeoff/peak time model, so there is no air time.
type Result struct {
	HeightCm float64
}

// Analyzer runs the vision estimation pipeline. Safe for concurrent use;
// analyses on the same FrameSource ID are serialized.
type Analyzer struct {
	detector Detector

	sampleRate       float64
	seekTimeout      time.Duration
	minConfidence    float64
	strictConfidence float64
	minObservations  int
	minBodySamples   int
	bodyRatio        float64
	frameFillRatio   float64
	baselineWindow   float64
	minBaselineObs   int
	maxPlausibleCm   float64
	minJumpCm        float64

	mu       sync.Mutex
	inflight map[string]*sync.Mutex

	logger logger.Logger
}

// New creates an Analyzer around the given detector with configuration
// options.
func New(detector Detector, opts ...Option) *Analyzer {
	a := &Analyzer{
		detector:         detector,
		sampleRate:       defaultSampleRate,
		seekTimeout:      defaultSeekTimeout,
		minConfidence:    defaultMinConfidence,
		strictConfidence: defaultStrictConfidence,
		minObservations:  defaultMinObservations,
		minBodySamples:   defaultMinBodySamples,
		bodyRatio:        defaultBodyRatio,
		frameFillRatio:   defaultFrameFillRatio,
		baselineWindow:   defaultBaselineWindow,
		minBaselineObs:   defaultMinBaselineObs,
		maxPlausibleCm:   defaultMaxPlausibleCm,
		minJumpCm:        defaultMinJumpCm,
		inflight:         make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze runs the full pipeline on one video. subjectHeightCm is the
// calibration input (validated upstream to lie within a plausible human
// range). progress may be nil.
//
// Cancellation is cooperative: ctx is checked between frame iterations,
// so a cancelled analysis stops within one sample interval.
func (a *Analyzer) Analyze(ctx context.Context, src FrameSource, subjectHeightCm float64, progress ProgressFunc) (Result, error) {
	// Serialize analyses per video resource. The frame source seeks are
	// stateful, so two analyses on the same source would corrupt each
	// other's sampling order.
	lock := a.sourceLock(src.ID())
	lock.Lock()
	defer lock.Unlock()

	metrics.RecordAnalysisStarted()
	start := time.Now()

	obs, bodySamples, err := a.collect(ctx, src, progress)
	if err != nil {
		metrics.RecordAnalysisFailed(failureReason(err))
		return Result{}, err
	}

	result, err := a.aggregate(ctx, src, obs, bodySamples, subjectHeightCm)
	if err != nil {
		metrics.RecordAnalysisFailed(failureReason(err))
		return Result{}, err
	}

	metrics.RecordAnalysisCompleted(time.Since(start).Seconds())
	if a.logger != nil {
		a.logger.Info(ctx, "analysis complete",
			logger.String("source", src.ID()),
			logger.Float64("heightCm", result.HeightCm),
			logger.Int("observations", len(obs)),
		)
	}
	return result, nil
}

// collect performs frame sampling and landmark extraction (pipeline
// steps 1 and 2). Frames yielding no usable hip landmark are skipped;
// missing frames are expected and tolerated.
func (a *Analyzer) collect(ctx context.Context, src FrameSource, progress ProgressFunc) ([]model.HipObservation, []float64, error) {
	totalSamples := int(math.Floor(src.Duration() * a.sampleRate))

	var (
		obs         []model.HipObservation
		bodySamples []float64
	)

	for i := 0; i < totalSamples; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("analysis cancelled at sample %d/%d: %w", i, totalSamples, err)
		}

		t := float64(i) / a.sampleRate
		frame, err := src.Seek(ctx, t, a.seekTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("seek to %.3fs failed: %w", t, err)
		}

		detectStart := time.Now()
		keypoints, err := a.detector.Estimate(ctx, frame)
		metrics.RecordDetectorLatency(float64(time.Since(detectStart).Milliseconds()))
		if err != nil {
			// Detector failures are propagated, never swallowed.
			return nil, nil, fmt.Errorf("detector inference at %.3fs: %w", t, err)
		}
		metrics.RecordFrameSampled()

		if hip, ok := fuseHips(keypoints, a.minConfidence); ok {
			obs = append(obs, model.HipObservation{
				Time:       t,
				HipY:       hip.Y,
				Confidence: hip.Confidence,
			})
		}
		if span, ok := bodySpan(keypoints, a.minConfidence); ok {
			bodySamples = append(bodySamples, span)
		}

		if progress != nil {
			progress(int(math.Round(float64(i+1) / float64(totalSamples) * percentScale)))
		}
	}

	return obs, bodySamples, nil
}

// aggregate applies confidence filtering, calibration, baseline and peak
// selection, displacement conversion, and sanity adjustment (pipeline
// steps 3 through 9).
func (a *Analyzer) aggregate(ctx context.Context, src FrameSource, obs []model.HipObservation, bodySamples []float64, subjectHeightCm float64) (Result, error) {
	if len(obs) < a.minObservations {
		return Result{}, fmt.Errorf("%d hip observations, need %d: %w",
			len(obs), a.minObservations, ErrInsufficientPoseData)
	}

	filtered := make([]model.HipObservation, 0, len(obs))
	for _, o := range obs {
		if o.Confidence > a.strictConfidence {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) < a.minObservations {
		return Result{}, fmt.Errorf("%d of %d observations above confidence %.2f, need %d: %w",
			len(filtered), len(obs), a.strictConfidence, a.minObservations, ErrLowConfidence)
	}

	_, videoHeight := src.Dimensions()
	scale := a.pixelScale(bodySamples, subjectHeightCm, videoHeight)

	standing := a.standingBaseline(filtered)

	hipYs := make([]float64, len(filtered))
	for i, o := range filtered {
		hipYs[i] = o.HipY
	}
	peak := floats.Min(hipYs)

	heightCm := (standing - peak) * scale

	// Negative displacement is detection noise, not a real negative jump.
	if heightCm < 0 {
		heightCm = 0
	}

	// Above the known world-record range the result is more likely a
	// detection artifact (e.g. a keypoint jumping to a face or hand) than
	// a real jump. Halve it exactly once; do not re-apply even if the
	// halved value still exceeds the threshold.
	if heightCm > a.maxPlausibleCm {
		if a.logger != nil {
			a.logger.Debug(ctx, "implausible height halved",
				logger.String("source", src.ID()),
				logger.Float64("rawHeightCm", heightCm),
			)
		}
		metrics.RecordArtifactCorrection()
		heightCm *= 0.5
	}

	if heightCm < a.minJumpCm {
		return Result{}, fmt.Errorf("height %.1fcm below %.1fcm floor: %w",
			heightCm, a.minJumpCm, ErrJumpTooSmall)
	}

	return Result{HeightCm: math.Round(heightCm*10) / 10}, nil
}

// pixelScale derives the cm-per-pixel conversion factor. With enough
// body-span samples the lower-middle median span is taken to represent
// bodyRatio of full standing height; otherwise the subject is assumed to
// fill frameFillRatio of the frame. The index-n/2 median selection for
// even counts is deliberate: changing it would change calibration output
// for existing recorded videos.
func (a *Analyzer) pixelScale(bodySamples []float64, subjectHeightCm float64, videoHeight int) float64 {
	if len(bodySamples) >= a.minBodySamples {
		median := lowerMedian(bodySamples)
		fullHeightPixels := median / a.bodyRatio
		return subjectHeightCm / fullHeightPixels
	}
	return subjectHeightCm / (float64(videoHeight) * a.frameFillRatio)
}

// standingBaseline estimates the standing hip position. Observations in
// the opening baseline window are averaged when enough exist (the
// subject is assumed still during setup); otherwise the lowest on-screen
// point is used, since image Y grows downward.
func (a *Analyzer) standingBaseline(filtered []model.HipObservation) float64 {
	var early []float64
	for _, o := range filtered {
		if o.Time < a.baselineWindow {
			early = append(early, o.HipY)
		}
	}
	if len(early) >= a.minBaselineObs {
		return stat.Mean(early, nil)
	}

	hipYs := make([]float64, len(filtered))
	for i, o := range filtered {
		hipYs[i] = o.HipY
	}
	return floats.Max(hipYs)
}

// sourceLock returns the per-resource mutex, creating it on first use.
func (a *Analyzer) sourceLock(id string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.inflight[id]
	if !ok {
		lock = &sync.Mutex{}
		a.inflight[id] = lock
	}
	return lock
}
