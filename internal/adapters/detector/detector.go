// Package detector adapts an external pose-keypoint service to the
// analyzer's detector port.
//
// The detector is a shared capability: one instance is loaded lazily on
// first use and reused across analyses for the lifetime of the process.
// Calls are stateless between frames.
package detector

import (
	"context"
	"image"
	"sync"

	"github.com/okian/leap/internal/domain/model"
)

// Detector is the per-frame inference capability consumed by the
// analyzer. Implementations must treat each call independently.
type Detector interface {
	// Load prepares the detector for inference. Idempotent; called once
	// before first use.
	Load(ctx context.Context) error

	// Estimate returns the keypoints detected in one frame.
	Estimate(ctx context.Context, frame image.Image) ([]model.Keypoint, error)
}

// Cached wraps a Detector with lazy load-once semantics so callers can
// hand it straight to the analyzer without managing lifecycle.
type Cached struct {
	inner Detector

	once    sync.Once
	loadErr error
}

// NewCached wraps inner with a lazy-load-once handle.
func NewCached(inner Detector) *Cached {
	return &Cached{inner: inner}
}

// Estimate loads the underlying detector on first use, then delegates.
// A load failure is sticky: every subsequent call reports it without
// retrying, since the analysis that hit it is terminal anyway.
func (c *Cached) Estimate(ctx context.Context, frame image.Image) ([]model.Keypoint, error) {
	c.once.Do(func() {
		c.loadErr = c.inner.Load(ctx)
	})
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.inner.Estimate(ctx, frame)
}
