package kinematic

import "errors"

// Sentinel kinds for kinematic estimator errors.
var (
	// ErrInvalidMarkOrder reports a mark pair whose peak time is not
	// strictly after its takeoff time.
	ErrInvalidMarkOrder = errors.New("invalid mark order")
)
