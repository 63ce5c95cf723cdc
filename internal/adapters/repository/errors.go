package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound            = errors.New("subject not found")
	ErrMeasurementNotFound = errors.New("measurement not found")
	ErrInvalidLimit        = errors.New("invalid leaderboard limit")
)
