// Package engine implements the signal computation core: volatility
// estimation, dynamic thresholds, backtesting, signal grading, and result
// composition. Every component is a pure function of (price history,
// configuration); nothing here performs I/O or retains state between calls,
// so independent instruments may be evaluated concurrently without locks.
package engine

import (
	"fmt"
	"math"

	"github.com/shuweilin/twsignal/internal/domain"
)

// VolatilityEstimator computes a rolling dispersion measure over the
// trailing window of day-over-day percentage returns.
//
// Dispersion formula: population standard deviation. The population form
// (divide by n, not n-1) keeps a constant-price series at exactly zero and
// matches how the rest of the pipeline was calibrated.
type VolatilityEstimator struct {
	window int
}

// NewVolatilityEstimator creates an estimator with the given window length
// (number of returns, minimum 2).
func NewVolatilityEstimator(window int) (*VolatilityEstimator, error) {
	if window < 2 {
		return nil, fmt.Errorf("engine: volatility window must be >= 2, got %d", window)
	}
	return &VolatilityEstimator{window: window}, nil
}

// Window returns the configured window length.
func (e *VolatilityEstimator) Window() int { return e.window }

// Estimate returns the dispersion of the trailing window of returns as of
// the series' last date. A window of N returns needs N+1 price points;
// shorter series fail with ErrInsufficientHistory rather than a silently
// zero-filled estimate.
func (e *VolatilityEstimator) Estimate(series domain.PriceSeries) (domain.VolatilityEstimate, error) {
	if series.Len() < e.window+1 {
		return domain.VolatilityEstimate{}, fmt.Errorf(
			"engine: %s: %d points, need %d for window %d: %w",
			series.Ticker, series.Len(), e.window+1, e.window, domain.ErrInsufficientHistory)
	}

	rets := series.Returns()
	tail := rets[len(rets)-e.window:]

	var sum float64
	for _, r := range tail {
		sum += r.Pct
	}
	mean := sum / float64(len(tail))

	var variance float64
	for _, r := range tail {
		d := r.Pct - mean
		variance += d * d
	}
	variance /= float64(len(tail))

	return domain.VolatilityEstimate{
		Ticker: series.Ticker,
		AsOf:   series.Last().Date,
		Window: e.window,
		Value:  math.Sqrt(variance),
	}, nil
}
