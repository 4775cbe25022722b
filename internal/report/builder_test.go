package report

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shuweilin/twsignal/internal/domain"
)

func sampleData() Data {
	d := NewData(time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC))
	d.TriggerTicker = "QQQ"
	d.TriggerClose = 512.34
	d.TriggerReturn = -2.1
	d.TriggerDirection = domain.DirectionDown
	d.Volatility = domain.VolatilityEstimate{Ticker: "QQQ", Window: 20, Value: 1.12}
	d.Rule = domain.ThresholdRule{Up: 1.40, Down: 1.40}
	d.Short = Window{
		Label:    "3-month backtest",
		HoldDays: 3,
		Recs: []domain.Recommendation{
			{
				Ticker: "2330.TW",
				Name:   "TSMC",
				Signal: domain.Signal{
					Ticker:        "2330.TW",
					TriggerReturn: -2.1,
					Direction:     domain.DirectionDown,
					Grade:         domain.GradeStrongAvoid,
					Confidence:    0.61,
					Stats: domain.BacktestStatistics{
						SampleSize: 12, WinCount: 9, WinRate: 0.75, AvgReturn: -1.8,
					},
				},
			},
			{
				Ticker: "0050.TW",
				Name:   "Yuanta Taiwan 50 ETF",
				Signal: domain.Signal{
					Ticker:       "0050.TW",
					Grade:        domain.GradeHold,
					Insufficient: true,
					Stats:        domain.BacktestStatistics{SampleSize: 2, Insufficient: true},
				},
			},
		},
	}
	d.Failures = map[string]error{"9999.TW": errors.New("history unavailable")}
	return d
}

func TestRenderSections(t *testing.T) {
	out := Render(sampleData())

	for _, want := range []string{
		"Taiwan market signal report — 2026-08-31",
		"QQQ overnight move",
		"Day-over-day:     -2.10% (down)",
		"Volatility (20d): 1.12%",
		"Surge threshold:  +1.40%",
		"Crash threshold:  -1.40%",
		"3-month backtest (hold 3 trading days)",
		"2330.TW",
		"strong-avoid",
		"hold*",
		"Skipped instruments",
		"9999.TW",
		"not investment advice",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	d := sampleData()
	first := Render(d)
	for i := 0; i < 3; i++ {
		if again := Render(d); again != first {
			t.Fatalf("render %d differs from first render", i)
		}
	}
}

func TestRenderScreenRanking(t *testing.T) {
	d := sampleData()
	d.Screens = []ScreenSection{
		{
			Label: "hold 3d, 95d window",
			Rows: []ScreenRow{
				{Ticker: "2317.TW", Name: "Hon Hai", Direction: domain.DirectionDown, Score: 0.41, WinRate: 0.6, AvgReturn: 2.1, SampleSize: 7},
				{Ticker: "2454.TW", Name: "MediaTek", Direction: domain.DirectionDown, Score: 0.58, WinRate: 0.7, AvgReturn: 3.3, SampleSize: 9},
			},
		},
		{
			Label: "hold 10d, 185d window",
			Rows: []ScreenRow{
				{Ticker: "2303.TW", Name: "UMC", Direction: domain.DirectionUp, Score: 0.44, WinRate: 0.55, AvgReturn: 4.4, SampleSize: 6},
			},
		},
	}
	out := Render(d)
	if !strings.Contains(out, "Universe screen (hold 3d, 95d window) — top 2") {
		t.Fatalf("short screen section missing:\n%s", out)
	}
	if !strings.Contains(out, "Universe screen (hold 10d, 185d window) — top 1") {
		t.Fatalf("long screen section missing:\n%s", out)
	}
	if strings.Index(out, "2454.TW") > strings.Index(out, "2317.TW") {
		t.Fatalf("screen rows not ranked by score:\n%s", out)
	}
	if strings.Index(out, "2303.TW") < strings.Index(out, "2317.TW") {
		t.Fatalf("long screen rendered before short screen:\n%s", out)
	}
}

func TestRenderConsensusSection(t *testing.T) {
	d := sampleData()
	d.Consensus = []domain.Recommendation{
		{
			Ticker: "2330.TW",
			Name:   "TSMC",
			Signal: domain.Signal{Grade: domain.GradeStrongAvoid, Confidence: 0.61},
		},
	}
	out := Render(d)
	if !strings.Contains(out, "Both-window consensus") {
		t.Fatalf("consensus section missing:\n%s", out)
	}
	if !strings.Contains(out, "conf  61%") {
		t.Fatalf("consensus confidence missing:\n%s", out)
	}

	d.Consensus = nil
	if strings.Contains(Render(d), "Both-window consensus") {
		t.Fatalf("empty consensus rendered a section")
	}
}

func TestRenderHistorySection(t *testing.T) {
	d := sampleData()
	d.History = []HistoryRow{
		{
			Ticker: "2330.TW",
			Past: []PastGrade{
				{TradeDate: time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC), Horizon: "95d", Grade: "buy"},
				{TradeDate: time.Date(2026, time.August, 27, 0, 0, 0, 0, time.UTC), Horizon: "95d", Grade: "hold"},
			},
		},
	}
	out := Render(d)
	if !strings.Contains(out, "Recent grades") {
		t.Fatalf("history section missing:\n%s", out)
	}
	if !strings.Contains(out, "08-28/95d buy, 08-27/95d hold") {
		t.Fatalf("history entries missing:\n%s", out)
	}
}

func TestRenderTriggerLineSurvivesAllFailures(t *testing.T) {
	d := sampleData()
	d.Short.Recs = nil
	d.Failures = map[string]error{
		"2330.TW": errors.New("history unavailable"),
		"0050.TW": errors.New("history unavailable"),
	}
	out := Render(d)
	if !strings.Contains(out, "Day-over-day:     -2.10% (down)") {
		t.Fatalf("trigger move lost when no instrument produced a row:\n%s", out)
	}
}

func TestClipCutsOnRuneBoundary(t *testing.T) {
	name := strings.Repeat("台", 30)
	got := clip(name, 22)
	if !utf8.ValidString(got) {
		t.Fatalf("clip produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("台", 21) + "…"; got != want {
		t.Fatalf("clip = %q, want %q", got, want)
	}
	if ascii := clip("Wan Hai Lines", 22); ascii != "Wan Hai Lines" {
		t.Fatalf("clip changed a short name: %q", ascii)
	}
}

func TestSubject(t *testing.T) {
	d := sampleData()
	if got := d.Subject(); got != "[twsignal] 2026-08-31 daily report" {
		t.Fatalf("subject = %q", got)
	}
}
