package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("rating not found")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)
