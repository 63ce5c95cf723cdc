package video

import "errors"

// Sentinel kinds for frame source errors.
var (
	ErrBadManifest  = errors.New("invalid clip manifest")
	ErrNoFrames     = errors.New("clip contains no frames")
	ErrBadSourceRef = errors.New("invalid source ref")
)
