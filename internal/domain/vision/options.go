package vision

import (
	"time"

	"github.com/okian/leap/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithSampleRate sets the analysis rate in samples per second.
func WithSampleRate(rate float64) Option {
	return func(a *Analyzer) {
		if rate > 0 {
			a.sampleRate = rate
		}
	}
}

// WithSeekTimeout bounds how long a single seek may settle.
func WithSeekTimeout(timeout time.Duration) Option {
	return func(a *Analyzer) {
		if timeout > 0 {
			a.seekTimeout = timeout
		}
	}
}

// WithMinConfidence sets the raw landmark selection threshold.
func WithMinConfidence(c float64) Option {
	return func(a *Analyzer) {
		if c >= 0 && c <= 1 {
			a.minConfidence = c
		}
	}
}

// WithStrictConfidence sets the aggregation confidence threshold.
func WithStrictConfidence(c float64) Option {
	return func(a *Analyzer) {
		if c >= 0 && c <= 1 {
			a.strictConfidence = c
		}
	}
}

// WithMinObservations sets the minimum hip observation count required
// both before and after the strict confidence filter.
func WithMinObservations(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minObservations = n
		}
	}
}

// WithMinBodySamples sets how many nose-to-ankle spans the median-based
// calibration requires.
func WithMinBodySamples(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.minBodySamples = n
		}
	}
}

// WithBodyRatio sets the assumed nose-to-ankle share of standing height.
func WithBodyRatio(r float64) Option {
	return func(a *Analyzer) {
		if r > 0 && r <= 1 {
			a.bodyRatio = r
		}
	}
}

// WithFrameFillRatio sets the calibration fallback frame-fill ratio.
func WithFrameFillRatio(r float64) Option {
	return func(a *Analyzer) {
		if r > 0 && r <= 1 {
			a.frameFillRatio = r
		}
	}
}

// WithBaselineWindow sets the opening still-standing window in seconds.
func WithBaselineWindow(seconds float64) Option {
	return func(a *Analyzer) {
		if seconds > 0 {
			a.baselineWindow = seconds
		}
	}
}

// WithMaxPlausibleCm sets the artifact-correction threshold.
func WithMaxPlausibleCm(cm float64) Option {
	return func(a *Analyzer) {
		if cm > 0 {
			a.maxPlausibleCm = cm
		}
	}
}

// WithMinJumpCm sets the measurable floor.
func WithMinJumpCm(cm float64) Option {
	return func(a *Analyzer) {
		if cm > 0 {
			a.minJumpCm = cm
		}
	}
}

// WithLogger sets a custom logger for the analyzer.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}
