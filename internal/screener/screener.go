// Package screener ranks a universe of outcome instruments by how well the
// trigger-reaction strategy backtests on each of them.
package screener

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shuweilin/twsignal/internal/domain"
	"github.com/shuweilin/twsignal/internal/engine"
)

// Score weights. The average holding return dominates the win rate; the
// scale factor puts a percentage-point return on the same footing as a
// percent win rate.
const (
	winRateWeight = 0.4
	returnWeight  = 0.6
	returnScale   = 10
)

// Config holds the screening parameters.
type Config struct {
	// TopN is how many candidates the ranking keeps.
	TopN int
	// MinEvents is the smallest bucket a candidate may be scored on.
	MinEvents int
	// MinReturn filters shortlist entries whose average holding return, in
	// percentage points, falls below it.
	MinReturn float64
	// BothMargin is the bucket-return gap below which a candidate is
	// shortlisted for both directions.
	BothMargin float64
	// Workers bounds fetch-and-backtest concurrency.
	Workers int
}

// Candidate is one scored instrument. Direction names the better-performing
// bucket: down means "buy after a trigger crash", up means "buy after a
// trigger surge".
type Candidate struct {
	Ticker     string
	Name       string
	Direction  domain.Direction
	Score      float64
	WinRate    float64
	AvgReturn  float64
	SampleSize int
	Down       domain.BacktestStatistics
	Up         domain.BacktestStatistics
}

// Screener backtests every instrument in a universe against a fixed rule and
// keeps the top performers.
type Screener struct {
	backtest *engine.BacktestEngine
	cfg      Config
	logger   *slog.Logger
}

// New creates a Screener. The backtest engine decides the holding period and
// win predicate; the screener only aggregates and ranks.
func New(backtest *engine.BacktestEngine, cfg Config, logger *slog.Logger) *Screener {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Screener{
		backtest: backtest,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "screener")),
	}
}

// Run scores every instrument and returns the top candidates, best first.
// Instruments whose history cannot be fetched, or whose buckets are all
// below the event minimum, are dropped silently; a screen is a ranking, not
// a census.
func (s *Screener) Run(ctx context.Context, trigger domain.PriceSeries, universe []engine.Instrument, source engine.SeriesSource, rule domain.ThresholdRule, from, to time.Time) []Candidate {
	var (
		mu         sync.Mutex
		candidates []Candidate
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, inst := range universe {
		inst := inst
		g.Go(func() error {
			outcome, err := source(ctx, inst.Ticker)
			if err != nil {
				s.logger.Debug("candidate skipped",
					slog.String("ticker", inst.Ticker),
					slog.String("error", err.Error()),
				)
				return nil
			}

			result := s.backtest.Run(trigger, outcome, rule, from, to)
			cand, ok := s.score(inst, result)
			if !ok {
				return nil
			}

			mu.Lock()
			candidates = append(candidates, cand)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})
	if len(candidates) > s.cfg.TopN {
		candidates = candidates[:s.cfg.TopN]
	}
	return candidates
}

// score picks the better of the crash and surge buckets by average return.
// Both buckets must clear the event minimum to compete; a candidate with
// neither bucket above it is unscorable.
func (s *Screener) score(inst engine.Instrument, result domain.BacktestResult) (Candidate, bool) {
	down, up := result.Down, result.Up
	downOK := down.SampleSize >= s.cfg.MinEvents
	upOK := up.SampleSize >= s.cfg.MinEvents

	var best domain.BacktestStatistics
	switch {
	case downOK && upOK:
		if down.AvgReturn > up.AvgReturn {
			best = down
		} else {
			best = up
		}
	case downOK:
		best = down
	case upOK:
		best = up
	default:
		return Candidate{}, false
	}

	return Candidate{
		Ticker:     inst.Ticker,
		Name:       inst.Name,
		Direction:  best.Direction,
		Score:      best.WinRate*100*winRateWeight + best.AvgReturn*returnScale*returnWeight,
		WinRate:    best.WinRate,
		AvgReturn:  best.AvgReturn,
		SampleSize: best.SampleSize,
		Down:       down,
		Up:         up,
	}, true
}

// Shortlist splits ranked candidates into crash-buy and surge-buy lists.
// Only candidates whose bucket's average return clears MinReturn qualify;
// when both buckets clear it and their returns sit within BothMargin of each
// other, the candidate appears on both lists.
func (s *Screener) Shortlist(candidates []Candidate) (crashBuy, surgeBuy []Candidate) {
	for _, c := range candidates {
		downOK := c.Down.SampleSize >= s.cfg.MinEvents && c.Down.AvgReturn >= s.cfg.MinReturn
		upOK := c.Up.SampleSize >= s.cfg.MinEvents && c.Up.AvgReturn >= s.cfg.MinReturn
		if !downOK && !upOK {
			continue
		}

		diff := c.Down.AvgReturn - c.Up.AvgReturn
		if diff < 0 {
			diff = -diff
		}
		switch {
		case downOK && upOK && diff < s.cfg.BothMargin:
			crashBuy = append(crashBuy, c)
			surgeBuy = append(surgeBuy, c)
		case c.Direction == domain.DirectionDown && downOK:
			crashBuy = append(crashBuy, c)
		case upOK:
			surgeBuy = append(surgeBuy, c)
		}
	}
	return crashBuy, surgeBuy
}
