// Package provider defines the price-history source abstraction consumed by
// the engine and the application wiring.
package provider

import (
	"context"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

// HistoryProvider supplies daily price history for an instrument over a date
// range, inclusive on both ends. Implementations must return
// domain.ErrDataUnavailable (wrapped) when the source cannot be reached or
// returns no usable data; callers do not retry.
type HistoryProvider interface {
	History(ctx context.Context, ticker string, from, to time.Time) (domain.PriceSeries, error)
}
