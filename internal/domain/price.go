// Package domain defines the value objects shared by the signal engine and
// its collaborators. Everything here is immutable once constructed and safe
// to share across goroutines; the engine recomputes all derived values per
// invocation and keeps no cross-call state.
package domain

import (
	"fmt"
	"time"
)

// PricePoint is one daily observation for an instrument. Close is always
// present; Open, High, and Low are zero when the source did not report them
// (real prices are never zero, so zero doubles as "absent").
type PricePoint struct {
	Date  time.Time
	Close float64
	Open  float64
	High  float64
	Low   float64
}

// HasOHL reports whether the point carries open/high/low data in addition to
// the close.
func (p PricePoint) HasOHL() bool {
	return p.Open != 0 && p.High != 0 && p.Low != 0
}

// DailyReturn is a day-over-day percentage return, attributed to the later of
// the two trading days it spans. Gaps between trading days are a single
// return, never several.
type DailyReturn struct {
	Date time.Time
	Pct  float64
}

// PriceSeries is the chronological price history for one instrument.
// Invariant: dates strictly increase. Calendar gaps (non-trading days) are
// permitted and carry no return of their own.
type PriceSeries struct {
	Ticker string
	Points []PricePoint
}

// NewPriceSeries validates points (strictly increasing dates, at least one
// point) and returns the series. Dates are normalized to UTC midnight so
// that series from sources in different zones align by trading day.
func NewPriceSeries(ticker string, points []PricePoint) (PriceSeries, error) {
	if len(points) == 0 {
		return PriceSeries{}, fmt.Errorf("%w: %s: empty series", ErrInvalidSeries, ticker)
	}
	normalized := make([]PricePoint, len(points))
	for i, p := range points {
		p.Date = Day(p.Date)
		if i > 0 && !normalized[i-1].Date.Before(p.Date) {
			return PriceSeries{}, fmt.Errorf("%w: %s: dates not strictly increasing at %s",
				ErrInvalidSeries, ticker, p.Date.Format("2006-01-02"))
		}
		normalized[i] = p
	}
	return PriceSeries{Ticker: ticker, Points: normalized}, nil
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Last returns the most recent observation. It panics on an empty series;
// construct through NewPriceSeries to rule that out.
func (s PriceSeries) Last() PricePoint { return s.Points[len(s.Points)-1] }

// Returns computes the day-over-day percentage returns for the whole series.
// A series of n points yields n-1 returns.
func (s PriceSeries) Returns() []DailyReturn {
	if len(s.Points) < 2 {
		return nil
	}
	out := make([]DailyReturn, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Close
		out = append(out, DailyReturn{
			Date: s.Points[i].Date,
			Pct:  (s.Points[i].Close/prev - 1) * 100,
		})
	}
	return out
}

// LastReturn returns the most recent day-over-day return, or false when the
// series is too short to have one.
func (s PriceSeries) LastReturn() (DailyReturn, bool) {
	rets := s.Returns()
	if len(rets) == 0 {
		return DailyReturn{}, false
	}
	return rets[len(rets)-1], true
}

// At returns the observation on the given trading day, if any.
func (s PriceSeries) At(date time.Time) (PricePoint, bool) {
	date = Day(date)
	for _, p := range s.Points {
		if p.Date.Equal(date) {
			return p, true
		}
		if p.Date.After(date) {
			break
		}
	}
	return PricePoint{}, false
}

// CommonDates returns the sorted trading days present in both series.
func CommonDates(a, b PriceSeries) []time.Time {
	inB := make(map[time.Time]struct{}, len(b.Points))
	for _, p := range b.Points {
		inB[p.Date] = struct{}{}
	}
	var out []time.Time
	for _, p := range a.Points {
		if _, ok := inB[p.Date]; ok {
			out = append(out, p.Date)
		}
	}
	return out
}
