package detector

import "errors"

// Sentinel kinds for detector errors.
var (
	// ErrUnavailable reports that the external detector failed to load
	// or threw during inference. Propagated to the caller, never
	// swallowed.
	ErrUnavailable = errors.New("pose detector unavailable")
)
