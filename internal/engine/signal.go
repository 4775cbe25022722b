package engine

import (
	"fmt"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

// SignalPolicy holds the grading thresholds.
type SignalPolicy struct {
	// MinSample is the minimum backtest sample size before the statistics
	// are trusted; below it the grade is always hold.
	MinSample int
	// StrongWinRate promotes buy→strong-buy and avoid→strong-avoid when the
	// matched bucket's historical win rate reaches it.
	StrongWinRate float64
}

// SignalGenerator turns today's observed trigger move, the active threshold
// rule, and the matching backtest statistics into a graded signal. The
// decision function is total: every input maps to exactly one grade, and a
// strictly larger positive return never grades less bullish under the same
// rule and statistics.
type SignalGenerator struct {
	policy SignalPolicy
}

// NewSignalGenerator creates a generator with the given policy.
func NewSignalGenerator(policy SignalPolicy) (*SignalGenerator, error) {
	if policy.MinSample < 1 {
		return nil, fmt.Errorf("engine: min sample must be >= 1, got %d", policy.MinSample)
	}
	if policy.StrongWinRate <= 0 || policy.StrongWinRate > 1 {
		return nil, fmt.Errorf("engine: strong win rate must be in (0,1], got %.2f", policy.StrongWinRate)
	}
	return &SignalGenerator{policy: policy}, nil
}

// Generate grades one instrument for one day. backtest supplies the bucket
// statistics; the bucket matching the classified direction of triggerReturn
// is the evidence the grade rests on. Insufficient evidence overrides any
// price move, however large: the grade degrades to hold with low confidence.
func (g *SignalGenerator) Generate(ticker string, date time.Time, triggerReturn float64, rule domain.ThresholdRule, backtest domain.BacktestResult) domain.Signal {
	dir := rule.Classify(triggerReturn)
	stats := backtest.ByDirection(dir)

	sig := domain.Signal{
		Ticker:        ticker,
		Date:          date,
		TriggerReturn: triggerReturn,
		Rule:          rule,
		Direction:     dir,
		Stats:         stats,
	}

	if dir == domain.DirectionFlat {
		sig.Grade = domain.GradeHold
		sig.Confidence = 0
		return sig
	}

	if stats.SampleSize < g.policy.MinSample {
		sig.Grade = domain.GradeHold
		sig.Insufficient = true
		sig.Confidence = g.confidence(stats)
		return sig
	}

	strong := stats.WinRate >= g.policy.StrongWinRate
	switch dir {
	case domain.DirectionUp:
		if strong {
			sig.Grade = domain.GradeStrongBuy
		} else {
			sig.Grade = domain.GradeBuy
		}
	case domain.DirectionDown:
		if strong {
			sig.Grade = domain.GradeStrongAvoid
		} else {
			sig.Grade = domain.GradeAvoid
		}
	}
	sig.Confidence = g.confidence(stats)
	return sig
}

// confidence is winRate × n/(n+minSample): strictly increasing in both the
// win rate and the sample size, saturating below the win rate instead of
// diverging as the sample grows.
func (g *SignalGenerator) confidence(stats domain.BacktestStatistics) float64 {
	n := float64(stats.SampleSize)
	if n == 0 {
		return 0
	}
	return stats.WinRate * n / (n + float64(g.policy.MinSample))
}
