package rating

import "errors"

// Sentinel errors for the rating package.
var (
	ErrInvalidWeights = errors.New("invalid confidence weights")
	ErrUnknownMode    = errors.New("unknown predictor mode")
)
