package engine

import (
	"fmt"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
)

// WinPredicate decides whether a recorded event counts as a win. The hold
// slice contains the outcome instrument's observations from the entry day
// through the final holding day, in order.
type WinPredicate func(dir domain.Direction, ev domain.BacktestEvent, hold []domain.PricePoint) bool

// SameSign is the default predicate: the outcome return has the same sign as
// the expected reaction direction (up trigger → positive outcome, down
// trigger → negative outcome). Flat days win on any positive outcome.
func SameSign(dir domain.Direction, ev domain.BacktestEvent, _ []domain.PricePoint) bool {
	switch dir {
	case domain.DirectionDown:
		return ev.OutcomeReturn < 0
	default:
		return ev.OutcomeReturn > 0
	}
}

// HighAboveEntry wins when the outcome instrument's intraday high at any
// point in the holding window exceeds the entry price, regardless of trigger
// direction: the long position can be closed at a profit. Falls back to the
// close on days without high data.
func HighAboveEntry(_ domain.Direction, ev domain.BacktestEvent, hold []domain.PricePoint) bool {
	for _, p := range hold {
		h := p.High
		if h == 0 {
			h = p.Close
		}
		if h > ev.EntryPrice {
			return true
		}
	}
	return false
}

// BacktestEngine replays a trigger/outcome series pair against a threshold
// rule and aggregates per-bucket win statistics. Replays are deterministic:
// identical inputs always produce identical statistics.
type BacktestEngine struct {
	holdDays  int
	minSample int
	predicate WinPredicate
}

// NewBacktestEngine creates an engine that holds positions for holdDays
// shared trading days (entry day inclusive) and marks any bucket with fewer
// than minSample events as insufficient. A nil predicate means SameSign.
func NewBacktestEngine(holdDays, minSample int, predicate WinPredicate) (*BacktestEngine, error) {
	if holdDays < 1 {
		return nil, fmt.Errorf("engine: hold days must be >= 1, got %d", holdDays)
	}
	if minSample < 1 {
		return nil, fmt.Errorf("engine: min sample must be >= 1, got %d", minSample)
	}
	if predicate == nil {
		predicate = SameSign
	}
	return &BacktestEngine{holdDays: holdDays, minSample: minSample, predicate: predicate}, nil
}

// Run replays every trading day shared by both series. For each shared day
// where the trigger instrument's previous-day return fired the rule (or fell
// inside the band, for the flat bucket), it enters the outcome instrument at
// that day's open and measures the return at the close holdDays shared days
// later. Trigger days outside [from, to] are ignored (zero times disable the
// bound); days with no matching outcome observation are skipped, never
// counted as losses. A rule that never fires yields an explicit
// insufficient-data bucket, not a zero win rate.
func (b *BacktestEngine) Run(trigger, outcome domain.PriceSeries, rule domain.ThresholdRule, from, to time.Time) domain.BacktestResult {
	triggerRets := make(map[time.Time]float64)
	for _, r := range trigger.Returns() {
		triggerRets[r.Date] = r.Pct
	}

	outcomeAt := make(map[time.Time]domain.PricePoint, outcome.Len())
	for _, p := range outcome.Points {
		outcomeAt[p.Date] = p
	}

	common := domain.CommonDates(trigger, outcome)

	buckets := map[domain.Direction][]domain.BacktestEvent{}
	for i := 1; i+b.holdDays-1 < len(common); i++ {
		triggerDate := common[i-1]
		tret, ok := triggerRets[triggerDate]
		if !ok {
			continue
		}
		if !from.IsZero() && triggerDate.Before(domain.Day(from)) {
			continue
		}
		if !to.IsZero() && triggerDate.After(domain.Day(to)) {
			continue
		}

		hold := make([]domain.PricePoint, 0, b.holdDays)
		for j := 0; j < b.holdDays; j++ {
			p, ok := outcomeAt[common[i+j]]
			if !ok {
				break
			}
			hold = append(hold, p)
		}
		if len(hold) < b.holdDays {
			continue
		}

		entry := hold[0].Open
		if entry == 0 {
			entry = hold[0].Close
		}
		if entry == 0 {
			continue
		}

		dir := rule.Classify(tret)
		ev := domain.BacktestEvent{
			TriggerDate:   triggerDate,
			TriggerReturn: tret,
			Direction:     dir,
			EntryDate:     hold[0].Date,
			EntryPrice:    entry,
			OutcomeDate:   hold[len(hold)-1].Date,
			OutcomeReturn: (hold[len(hold)-1].Close/entry - 1) * 100,
		}
		ev.Win = b.predicate(dir, ev, hold)
		buckets[dir] = append(buckets[dir], ev)
	}

	var events []domain.BacktestEvent
	for _, dir := range []domain.Direction{domain.DirectionUp, domain.DirectionDown, domain.DirectionFlat} {
		events = append(events, buckets[dir]...)
	}

	return domain.BacktestResult{
		Up:     b.aggregate(outcome.Ticker, domain.DirectionUp, rule, from, to, buckets[domain.DirectionUp]),
		Down:   b.aggregate(outcome.Ticker, domain.DirectionDown, rule, from, to, buckets[domain.DirectionDown]),
		Flat:   b.aggregate(outcome.Ticker, domain.DirectionFlat, rule, from, to, buckets[domain.DirectionFlat]),
		Events: events,
	}
}

func (b *BacktestEngine) aggregate(ticker string, dir domain.Direction, rule domain.ThresholdRule, from, to time.Time, events []domain.BacktestEvent) domain.BacktestStatistics {
	stats := domain.BacktestStatistics{
		Ticker:      ticker,
		Direction:   dir,
		Rule:        rule,
		WindowStart: from,
		WindowEnd:   to,
		SampleSize:  len(events),
	}
	if len(events) == 0 {
		stats.Insufficient = true
		return stats
	}

	var retSum float64
	for _, ev := range events {
		if ev.Win {
			stats.WinCount++
		}
		retSum += ev.OutcomeReturn
	}
	stats.WinRate = float64(stats.WinCount) / float64(len(events))
	stats.AvgReturn = retSum / float64(len(events))
	stats.Insufficient = len(events) < b.minSample
	return stats
}
