package storage

import "errors"

// Store errors. Price bars, runs and trajectories are written once.
var (
	// ErrNotFound is returned when a run, trajectory set or asset is not stored.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a price bar, run or trajectory set
	// with the same key is already stored.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput is returned for records missing a key field.
	ErrInvalidInput = errors.New("invalid input")
)
