package domain

import "time"

// Direction classifies a trigger-day move against a ThresholdRule.
type Direction string

const (
	DirectionUp   Direction = "up"   // return >= up threshold (surge)
	DirectionDown Direction = "down" // return <= -down threshold (crash)
	DirectionFlat Direction = "flat" // inside the band
)

// VolatilityEstimate is a rolling dispersion measure as of a series' last
// date, expressed in percentage points of daily return.
type VolatilityEstimate struct {
	Ticker string
	AsOf   time.Time
	Window int
	Value  float64
}

// ThresholdRule is the decision boundary for "a significant move", in
// percentage points. Up and Down are both non-negative and may differ:
// markets react differently to rallies and selloffs, so the two sides scale
// independently.
type ThresholdRule struct {
	Up        float64
	Down      float64
	BasisVol  float64
	BasisDate time.Time
}

// Classify buckets a trigger-day percentage return under the rule.
func (r ThresholdRule) Classify(retPct float64) Direction {
	switch {
	case retPct >= r.Up:
		return DirectionUp
	case retPct <= -r.Down:
		return DirectionDown
	default:
		return DirectionFlat
	}
}
