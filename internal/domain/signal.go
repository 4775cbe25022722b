package domain

import "time"

// Grade is the categorical recommendation for one instrument on one day.
type Grade string

const (
	GradeStrongBuy   Grade = "strong-buy"
	GradeBuy         Grade = "buy"
	GradeHold        Grade = "hold"
	GradeAvoid       Grade = "avoid"
	GradeStrongAvoid Grade = "strong-avoid"
)

// Severity orders grades for ranking: strong variants before plain variants,
// hold last. Buy and avoid variants of the same strength tie; confidence and
// the instrument identifier break those ties deterministically.
func (g Grade) Severity() int {
	switch g {
	case GradeStrongBuy, GradeStrongAvoid:
		return 2
	case GradeBuy, GradeAvoid:
		return 1
	default:
		return 0
	}
}

// Signal is one day's graded evaluation of an outcome instrument against the
// trigger instrument's observed move. Ephemeral; owned by the caller.
type Signal struct {
	Ticker        string
	Date          time.Time
	TriggerReturn float64 // pct, trigger instrument's move being evaluated
	Rule          ThresholdRule
	Direction     Direction
	Stats         BacktestStatistics // the bucket the decision was based on
	Grade         Grade
	Confidence    float64 // [0,1), saturating in win rate and sample size
	Insufficient  bool    // matched bucket lacked the minimum sample
}

// Recommendation pairs a signal with its full backtest context for
// composition into the daily report.
type Recommendation struct {
	Ticker   string
	Name     string
	Signal   Signal
	Backtest BacktestResult
}
