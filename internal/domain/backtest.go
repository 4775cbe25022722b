package domain

import "time"

// BacktestEvent is one historical day on which a threshold rule fired (or,
// for the flat bucket, did not), paired with the outcome instrument's
// subsequent reaction. Entry is the outcome instrument's open on the next
// shared trading day after the trigger; the outcome return is measured at
// the close of the final holding day.
type BacktestEvent struct {
	TriggerDate   time.Time
	TriggerReturn float64 // pct
	Direction     Direction
	EntryDate     time.Time
	EntryPrice    float64
	OutcomeDate   time.Time
	OutcomeReturn float64 // pct, entry open → final close
	Win           bool
}

// BacktestStatistics aggregates the events of one direction bucket.
// When Insufficient is set the WinRate and AvgReturn fields carry no meaning
// and must not be presented as valid statistics; zero trades is a common,
// legitimate outcome, not an error.
type BacktestStatistics struct {
	Ticker       string
	Direction    Direction
	Rule         ThresholdRule
	WindowStart  time.Time
	WindowEnd    time.Time
	SampleSize   int
	WinCount     int
	WinRate      float64 // fraction in [0,1]
	AvgReturn    float64 // pct
	Insufficient bool
}

// BacktestResult holds the per-bucket statistics of one trigger/outcome
// pair, plus the raw events for callers that want the detail.
type BacktestResult struct {
	Up     BacktestStatistics
	Down   BacktestStatistics
	Flat   BacktestStatistics
	Events []BacktestEvent
}

// ByDirection returns the bucket statistics matching dir.
func (r BacktestResult) ByDirection(dir Direction) BacktestStatistics {
	switch dir {
	case DirectionUp:
		return r.Up
	case DirectionDown:
		return r.Down
	default:
		return r.Flat
	}
}
