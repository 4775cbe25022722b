package screener

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shuweilin/twsignal/internal/domain"
	"github.com/shuweilin/twsignal/internal/engine"
)

func day(n int) time.Time {
	return time.Date(2026, time.April, 1+n, 0, 0, 0, 0, time.UTC)
}

func closesSeries(t *testing.T, ticker string, closes ...float64) domain.PriceSeries {
	t.Helper()
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: day(i), Close: c}
	}
	s, err := domain.NewPriceSeries(ticker, points)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}
	return s
}

func statsWith(dir domain.Direction, n int, winRate, avgRet float64) domain.BacktestStatistics {
	return domain.BacktestStatistics{
		Direction:  dir,
		SampleSize: n,
		WinRate:    winRate,
		AvgReturn:  avgRet,
	}
}

func testScreener(t *testing.T, cfg Config) *Screener {
	t.Helper()
	bt, err := engine.NewBacktestEngine(2, 1, engine.HighAboveEntry)
	if err != nil {
		t.Fatalf("backtest engine: %v", err)
	}
	return New(bt, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScorePicksBetterBucket(t *testing.T) {
	s := testScreener(t, Config{TopN: 20, MinEvents: 3})
	result := domain.BacktestResult{
		Down: statsWith(domain.DirectionDown, 5, 0.8, 3.0),
		Up:   statsWith(domain.DirectionUp, 5, 0.9, 1.0),
	}
	cand, ok := s.score(engine.Instrument{Ticker: "2330.TW", Name: "TSMC"}, result)
	if !ok {
		t.Fatalf("scorable candidate rejected")
	}
	if cand.Direction != domain.DirectionDown {
		t.Fatalf("direction = %s, want down (higher return beats higher win rate)", cand.Direction)
	}
	// 80*0.4 + 3.0*10*0.6 = 50
	if cand.Score != 50 {
		t.Fatalf("score = %v, want 50", cand.Score)
	}
}

func TestScoreRequiresMinEvents(t *testing.T) {
	s := testScreener(t, Config{TopN: 20, MinEvents: 3})
	result := domain.BacktestResult{
		Down: statsWith(domain.DirectionDown, 2, 1.0, 9.0),
		Up:   statsWith(domain.DirectionUp, 2, 1.0, 9.0),
	}
	if _, ok := s.score(engine.Instrument{Ticker: "X"}, result); ok {
		t.Fatalf("thin buckets produced a candidate")
	}

	// One qualifying bucket is enough.
	result.Up = statsWith(domain.DirectionUp, 3, 0.5, 1.0)
	cand, ok := s.score(engine.Instrument{Ticker: "X"}, result)
	if !ok || cand.Direction != domain.DirectionUp {
		t.Fatalf("single qualifying bucket not used: %+v ok=%v", cand, ok)
	}
}

func TestRunRanksAndTruncates(t *testing.T) {
	s := testScreener(t, Config{TopN: 1, MinEvents: 1, Workers: 4})

	// Alternating ±2% trigger moves so a 1.5/1.5 rule fires on most days.
	trigger := closesSeries(t, "QQQ",
		100, 102, 99.9, 101.9, 99.8, 101.8, 99.7, 101.7, 99.6, 101.6, 99.5, 101.5)
	rising := closesSeries(t, "up",
		50, 50.5, 51, 51.5, 52, 52.5, 53, 53.5, 54, 54.5, 55, 55.5)
	falling := closesSeries(t, "down",
		50, 49.5, 49, 48.5, 48, 47.5, 47, 46.5, 46, 45.5, 45, 44.5)

	source := func(ctx context.Context, ticker string) (domain.PriceSeries, error) {
		switch ticker {
		case "WIN.TW":
			s := rising
			s.Ticker = ticker
			return s, nil
		case "LOSE.TW":
			s := falling
			s.Ticker = ticker
			return s, nil
		default:
			return domain.PriceSeries{}, domain.ErrDataUnavailable
		}
	}
	universe := []engine.Instrument{
		{Ticker: "LOSE.TW", Name: "Falling"},
		{Ticker: "WIN.TW", Name: "Rising"},
		{Ticker: "GONE.TW", Name: "Unfetchable"},
	}
	rule := domain.ThresholdRule{Up: 1.5, Down: 1.5}

	got := s.Run(context.Background(), trigger, universe, source, rule, time.Time{}, time.Time{})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 after truncation", len(got))
	}
	if got[0].Ticker != "WIN.TW" {
		t.Fatalf("top candidate = %s, want WIN.TW", got[0].Ticker)
	}
	if got[0].WinRate != 1 {
		t.Fatalf("rising instrument win rate = %v, want 1", got[0].WinRate)
	}
}

func TestShortlistSplitsAndDoubles(t *testing.T) {
	s := testScreener(t, Config{TopN: 20, MinEvents: 3, MinReturn: 4.0, BothMargin: 0.5})

	crashOnly := Candidate{
		Ticker: "A", Direction: domain.DirectionDown,
		Down: statsWith(domain.DirectionDown, 5, 0.7, 5.0),
		Up:   statsWith(domain.DirectionUp, 5, 0.6, 1.0),
	}
	both := Candidate{
		Ticker: "B", Direction: domain.DirectionDown,
		Down: statsWith(domain.DirectionDown, 5, 0.7, 5.2),
		Up:   statsWith(domain.DirectionUp, 5, 0.6, 5.0),
	}
	neither := Candidate{
		Ticker: "C", Direction: domain.DirectionUp,
		Down: statsWith(domain.DirectionDown, 5, 0.7, 1.0),
		Up:   statsWith(domain.DirectionUp, 5, 0.6, 2.0),
	}

	crash, surge := s.Shortlist([]Candidate{crashOnly, both, neither})
	if len(crash) != 2 || crash[0].Ticker != "A" || crash[1].Ticker != "B" {
		t.Fatalf("crash list = %v", tickersOf(crash))
	}
	if len(surge) != 1 || surge[0].Ticker != "B" {
		t.Fatalf("surge list = %v", tickersOf(surge))
	}
}

func tickersOf(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Ticker
	}
	return out
}
