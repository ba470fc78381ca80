package simulation

import "errors"

// Engine errors. Detail is attached with fmt.Errorf("%w: ...").
var (
	// ErrInvalidInput is returned for a malformed or wrong-shaped price table,
	// or a non-positive trial/horizon/worker count.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidWeights is returned when portfolio weights do not sum to ~1.
	ErrInvalidWeights = errors.New("invalid portfolio weights: sum must be at least 0.99")

	// ErrInsufficientHistory is returned when the price history is too short
	// to estimate a mean and sample standard deviation of daily returns.
	ErrInsufficientHistory = errors.New("insufficient price history")
)
