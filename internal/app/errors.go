package service

import "errors"

// Sentinel errors.
var (
	// ErrNoData means the team has no played match in the year.
	ErrNoData = errors.New("no data")
	// ErrRunInProgress rejects a batch run for a year that is already running.
	ErrRunInProgress = errors.New("recalculation already running")
	// ErrShuttingDown rejects or ends a batch run once Shutdown was called.
	ErrShuttingDown = errors.New("service shutting down")
	// ErrInvalidRequest reports a malformed prediction request.
	ErrInvalidRequest = errors.New("invalid request")
)
