package video

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // frame decoders
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Frame file and manifest conventions.
const (
	manifestName = "manifest.json"
	framePrefix  = "frame_"

	// maxFrameDim caps the longer frame edge handed to the detector.
	// Pose models run on small inputs; shipping full-resolution stills
	// through the detector transport wastes most of the latency budget.
	maxFrameDim = 512

	millisecondsPerSecond = 1000
)

// manifest describes the clip the frames were extracted from.
type manifest struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

// frameEntry is one still frame on disk, keyed by its clip timestamp.
type frameEntry struct {
	time float64
	path string
}

// DirSource is a seekable frame source over a directory of extracted
// still frames. It is stateful: a seek that does not settle within its
// timeout falls back to the most recently decoded frame, exactly like a
// decoder that has not caught up yet.
type DirSource struct {
	dir    string
	meta   manifest
	frames []frameEntry

	// Analysis resolution. Frames are scaled to exactly these dims so
	// detector keypoints and the reported Dimensions share one
	// coordinate space.
	outW, outH int

	mu      sync.Mutex
	current image.Image
}

// OpenDirSource reads the manifest and indexes the frame files.
func OpenDirSource(dir string) (*DirSource, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var meta manifest
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadManifest, err)
	}
	if meta.DurationSeconds <= 0 || meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%w: non-positive duration or dimensions", ErrBadManifest)
	}

	frames, err := indexFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoFrames)
	}

	outW, outH := fitDimensions(meta.Width, meta.Height, maxFrameDim)
	return &DirSource{dir: dir, meta: meta, frames: frames, outW: outW, outH: outH}, nil
}

// fitDimensions shrinks (w,h) so the longer edge is at most maxDim,
// keeping aspect ratio. Small clips pass through untouched.
func fitDimensions(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	return int(float64(w) * scale), int(float64(h) * scale)
}

// indexFrames collects frame_<ms>.<ext> entries sorted by timestamp.
func indexFrames(dir string) ([]frameEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var frames []frameEntry
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, framePrefix) {
			continue
		}
		stamp := strings.TrimPrefix(name, framePrefix)
		if i := strings.LastIndexByte(stamp, '.'); i >= 0 {
			stamp = stamp[:i]
		}
		ms, err := strconv.Atoi(stamp)
		if err != nil {
			continue // not a frame file
		}
		frames = append(frames, frameEntry{
			time: float64(ms) / millisecondsPerSecond,
			path: filepath.Join(dir, name),
		})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].time < frames[j].time })
	return frames, nil
}

// ID identifies the underlying clip for single-flight serialization.
func (s *DirSource) ID() string {
	return s.dir
}

// Duration returns the clip length in seconds.
func (s *DirSource) Duration() float64 {
	return s.meta.DurationSeconds
}

// Dimensions returns the analysis-resolution width and height.
func (s *DirSource) Dimensions() (int, int) {
	return s.outW, s.outH
}

// Seek returns the frame nearest to t. Decoding runs concurrently; when
// it does not settle within timeout the previously decoded frame is
// returned as-is so the pipeline never stalls. The late decode still
// updates the current frame for subsequent seeks.
func (s *DirSource) Seek(ctx context.Context, t float64, timeout time.Duration) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("seek to %.3fs: %w", t, err)
	}
	entry := s.nearest(t)

	type decoded struct {
		img image.Image
		err error
	}
	ch := make(chan decoded, 1)
	go func() {
		img, err := decodeFrame(entry.path, s.outW, s.outH)
		if err == nil {
			s.mu.Lock()
			s.current = img
			s.mu.Unlock()
		}
		ch <- decoded{img: img, err: err}
	}()

	select {
	case d := <-ch:
		if d.err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.path, d.err)
		}
		return d.img, nil
	case <-time.After(timeout):
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()
		if cur == nil {
			// Nothing decoded yet; wait for the first frame regardless.
			d := <-ch
			if d.err != nil {
				return nil, fmt.Errorf("decode %s: %w", entry.path, d.err)
			}
			return d.img, nil
		}
		return cur, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("seek to %.3fs: %w", t, ctx.Err())
	}
}

// nearest returns the indexed frame closest in time to t.
func (s *DirSource) nearest(t float64) frameEntry {
	i := sort.Search(len(s.frames), func(i int) bool { return s.frames[i].time >= t })
	if i == 0 {
		return s.frames[0]
	}
	if i == len(s.frames) {
		return s.frames[len(s.frames)-1]
	}
	if s.frames[i].time-t < t-s.frames[i-1].time {
		return s.frames[i]
	}
	return s.frames[i-1]
}

// decodeFrame reads one still and scales it to the analysis resolution.
func decodeFrame(path string, outW, outH int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() == outW && b.Dy() == outH {
		return img, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst, nil
}
