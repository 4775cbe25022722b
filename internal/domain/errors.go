package domain

import "errors"

var (
	// ErrInsufficientHistory is returned when a price series has fewer
	// observations than a computation's window requires.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrDataUnavailable is returned when a history provider cannot supply a
	// requested series. It is propagated unchanged; retrying is the
	// provider's concern, never the engine's.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrNotFound is returned by caches and stores on a miss.
	ErrNotFound = errors.New("not found")

	ErrInvalidSeries = errors.New("invalid price series")
)
