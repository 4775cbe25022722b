package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shuweilin/twsignal/internal/domain"
)

// Instrument identifies one tracked outcome instrument.
type Instrument struct {
	Ticker string
	Name   string
}

// SeriesSource supplies the price history for an instrument. Implementations
// live outside the engine (providers, caches, in-memory fixtures); failures
// surface as domain.ErrDataUnavailable and are not retried here.
type SeriesSource func(ctx context.Context, ticker string) (domain.PriceSeries, error)

// BatchResult is the outcome of evaluating many instruments against one
// trigger series. Failures are isolated per instrument: one bad series never
// aborts the rest of the batch.
type BatchResult struct {
	Recommendations []domain.Recommendation
	Failures        map[string]error
}

// Evaluator runs the full pipeline, from volatility estimate through graded
// signal, for one or many outcome instruments against a trigger instrument. All
// components are pure, so batch evaluation fans out across a bounded worker
// pool with no coordination beyond collecting results.
type Evaluator struct {
	volatility *VolatilityEstimator
	thresholds ThresholdConfig
	backtest   *BacktestEngine
	signals    *SignalGenerator
	workers    int
	logger     *slog.Logger
}

// NewEvaluator wires the pipeline. workers bounds batch concurrency; values
// below 1 are treated as 1.
func NewEvaluator(
	volatility *VolatilityEstimator,
	thresholds ThresholdConfig,
	backtest *BacktestEngine,
	signals *SignalGenerator,
	workers int,
	logger *slog.Logger,
) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	return &Evaluator{
		volatility: volatility,
		thresholds: thresholds,
		backtest:   backtest,
		signals:    signals,
		workers:    workers,
		logger:     logger.With(slog.String("component", "evaluator")),
	}
}

// Rule derives today's threshold rule from the trigger series.
func (e *Evaluator) Rule(trigger domain.PriceSeries) (domain.ThresholdRule, error) {
	vol, err := e.volatility.Estimate(trigger)
	if err != nil {
		return domain.ThresholdRule{}, err
	}
	return e.thresholds.Rule(vol), nil
}

// EvaluateOne runs the pipeline for a single outcome instrument. The signal
// is graded on the trigger series' most recent day-over-day return against
// statistics backtested over [from, to].
func (e *Evaluator) EvaluateOne(trigger, outcome domain.PriceSeries, name string, from, to time.Time) (domain.Recommendation, error) {
	rule, err := e.Rule(trigger)
	if err != nil {
		return domain.Recommendation{}, err
	}

	last, ok := trigger.LastReturn()
	if !ok {
		return domain.Recommendation{}, fmt.Errorf("engine: %s: no trigger return: %w",
			trigger.Ticker, domain.ErrInsufficientHistory)
	}

	result := e.backtest.Run(trigger, outcome, rule, from, to)
	sig := e.signals.Generate(outcome.Ticker, last.Date, last.Pct, rule, result)

	return domain.Recommendation{
		Ticker:   outcome.Ticker,
		Name:     name,
		Signal:   sig,
		Backtest: result,
	}, nil
}

// EvaluateBatch evaluates every instrument against the shared trigger series
// using a bounded worker pool. Recommendations come back ranked by
// ComposeRanked; instruments whose history could not be supplied or
// evaluated are recorded in Failures and skipped.
func (e *Evaluator) EvaluateBatch(ctx context.Context, trigger domain.PriceSeries, instruments []Instrument, source SeriesSource, from, to time.Time) BatchResult {
	var (
		mu   sync.Mutex
		recs []domain.Recommendation
	)
	failures := make(map[string]error)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, inst := range instruments {
		inst := inst
		g.Go(func() error {
			outcome, err := source(ctx, inst.Ticker)
			if err != nil {
				e.logger.Warn("instrument skipped",
					slog.String("ticker", inst.Ticker),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failures[inst.Ticker] = err
				mu.Unlock()
				return nil
			}

			rec, err := e.EvaluateOne(trigger, outcome, inst.Name, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[inst.Ticker] = err
				return nil
			}
			recs = append(recs, rec)
			return nil
		})
	}

	// Workers only return nil; Wait is for pool drainage.
	_ = g.Wait()

	return BatchResult{
		Recommendations: ComposeRanked(recs),
		Failures:        failures,
	}
}
