// Package report renders the daily signal report as plain text for mail and
// archival.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shuweilin/twsignal/internal/domain"
)

// Window is one backtest horizon's worth of ranked recommendations.
type Window struct {
	Label    string
	HoldDays int
	Recs     []domain.Recommendation
}

// ScreenRow is one screened candidate in the universe ranking.
type ScreenRow struct {
	Ticker     string
	Name       string
	Direction  domain.Direction
	Score      float64
	WinRate    float64
	AvgReturn  float64
	SampleSize int
}

// ScreenSection is one screening horizon's worth of ranked candidates.
type ScreenSection struct {
	Label string
	Rows  []ScreenRow
}

// PastGrade is one stored grade from an earlier run.
type PastGrade struct {
	TradeDate time.Time
	Horizon   string
	Grade     string
}

// HistoryRow is the recent stored grades for one tracked instrument, newest
// first.
type HistoryRow struct {
	Ticker string
	Past   []PastGrade
}

// Data is everything the daily report renders. RunID ties the rendered text
// to the rows persisted for the same run.
type Data struct {
	RunID            uuid.UUID
	GeneratedAt      time.Time
	TradeDate        time.Time
	TriggerTicker    string
	TriggerClose     float64
	TriggerReturn    float64
	TriggerDirection domain.Direction
	Volatility       domain.VolatilityEstimate
	Rule             domain.ThresholdRule
	Short            Window
	Long             Window
	Consensus        []domain.Recommendation
	Screens          []ScreenSection
	History          []HistoryRow
	Failures         map[string]error
}

// NewData stamps a fresh run ID and generation time onto a report.
func NewData(tradeDate time.Time) Data {
	return Data{
		RunID:       uuid.New(),
		GeneratedAt: time.Now().UTC(),
		TradeDate:   tradeDate,
	}
}

// SubjectFor returns the mail subject line for a report on the given trade
// date.
func SubjectFor(tradeDate time.Time) string {
	return fmt.Sprintf("[twsignal] %s daily report", tradeDate.Format("2006-01-02"))
}

// Subject returns the mail subject line for the report.
func (d Data) Subject() string {
	return SubjectFor(d.TradeDate)
}

const disclaimer = "This report is generated from historical statistics and is not investment advice.\nPast win rates do not guarantee future results."

// Render produces the full plain-text report.
func Render(d Data) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Taiwan market signal report — %s\n", d.TradeDate.Format("2006-01-02 (Mon)"))
	fmt.Fprintf(&b, "Run %s, generated %s UTC\n", d.RunID, d.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(rule('='))

	renderTrigger(&b, d)
	renderWindow(&b, d.Short)
	renderWindow(&b, d.Long)
	renderConsensus(&b, d.Consensus)
	for _, sec := range d.Screens {
		renderScreen(&b, sec)
	}
	renderHistory(&b, d.History)
	renderFailures(&b, d.Failures)

	b.WriteString(rule('='))
	b.WriteString(disclaimer)
	b.WriteString("\n")
	return b.String()
}

func renderTrigger(b *strings.Builder, d Data) {
	fmt.Fprintf(b, "\n%s overnight move\n", d.TriggerTicker)
	b.WriteString(rule('-'))
	fmt.Fprintf(b, "Close:            %.2f\n", d.TriggerClose)
	fmt.Fprintf(b, "Day-over-day:     %+.2f%% (%s)\n", d.TriggerReturn, d.TriggerDirection)
	fmt.Fprintf(b, "Volatility (%dd): %.2f%%\n", d.Volatility.Window, d.Volatility.Value)
	fmt.Fprintf(b, "Surge threshold:  +%.2f%%\n", d.Rule.Up)
	fmt.Fprintf(b, "Crash threshold:  -%.2f%%\n", d.Rule.Down)
}

func renderWindow(b *strings.Builder, w Window) {
	if len(w.Recs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (hold %d trading days)\n", w.Label, w.HoldDays)
	b.WriteString(rule('-'))
	fmt.Fprintf(b, "%-10s %-22s %-12s %6s %8s %8s %6s\n",
		"TICKER", "NAME", "GRADE", "CONF", "WINRATE", "AVGRET", "N")
	for _, r := range w.Recs {
		stats := r.Signal.Stats
		winRate := "-"
		avgRet := "-"
		if !stats.Insufficient || stats.SampleSize > 0 {
			winRate = fmt.Sprintf("%.0f%%", stats.WinRate*100)
			avgRet = fmt.Sprintf("%+.2f%%", stats.AvgReturn)
		}
		grade := string(r.Signal.Grade)
		if r.Signal.Insufficient {
			grade += "*"
		}
		fmt.Fprintf(b, "%-10s %-22s %-12s %5.0f%% %8s %8s %6d\n",
			r.Ticker, clip(r.Name, 22), grade,
			r.Signal.Confidence*100, winRate, avgRet, stats.SampleSize)
	}
	if hasInsufficient(w.Recs) {
		b.WriteString("* graded hold: backtest sample below the trust threshold\n")
	}
}

func hasInsufficient(recs []domain.Recommendation) bool {
	for _, r := range recs {
		if r.Signal.Insufficient {
			return true
		}
	}
	return false
}

// renderConsensus lists the instruments whose grade agrees across both
// backtest windows.
func renderConsensus(b *strings.Builder, recs []domain.Recommendation) {
	if len(recs) == 0 {
		return
	}
	b.WriteString("\nBoth-window consensus\n")
	b.WriteString(rule('-'))
	for _, r := range recs {
		fmt.Fprintf(b, "%-10s %-22s %-12s conf %3.0f%%\n",
			r.Ticker, clip(r.Name, 22), r.Signal.Grade, r.Signal.Confidence*100)
	}
}

func renderScreen(b *strings.Builder, sec ScreenSection) {
	if len(sec.Rows) == 0 {
		return
	}
	sorted := make([]ScreenRow, len(sec.Rows))
	copy(sorted, sec.Rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Ticker < sorted[j].Ticker
	})

	fmt.Fprintf(b, "\nUniverse screen (%s) — top %d\n", sec.Label, len(sorted))
	b.WriteString(rule('-'))
	fmt.Fprintf(b, "%4s %-10s %-22s %-6s %7s %8s %8s %6s\n",
		"RANK", "TICKER", "NAME", "SIDE", "SCORE", "WINRATE", "AVGRET", "N")
	for i, row := range sorted {
		fmt.Fprintf(b, "%4d %-10s %-22s %-6s %7.3f %7.0f%% %+7.2f%% %6d\n",
			i+1, row.Ticker, clip(row.Name, 22), row.Direction,
			row.Score, row.WinRate*100, row.AvgReturn, row.SampleSize)
	}
}

// renderHistory shows the stored grades from recent runs, newest first.
func renderHistory(b *strings.Builder, rows []HistoryRow) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("\nRecent grades\n")
	b.WriteString(rule('-'))
	for _, row := range rows {
		if len(row.Past) == 0 {
			continue
		}
		entries := make([]string, 0, len(row.Past))
		for _, p := range row.Past {
			entries = append(entries, fmt.Sprintf("%s/%s %s",
				p.TradeDate.Format("01-02"), p.Horizon, p.Grade))
		}
		fmt.Fprintf(b, "%-10s %s\n", row.Ticker, strings.Join(entries, ", "))
	}
}

func renderFailures(b *strings.Builder, failures map[string]error) {
	if len(failures) == 0 {
		return
	}
	tickers := make([]string, 0, len(failures))
	for t := range failures {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	b.WriteString("\nSkipped instruments\n")
	b.WriteString(rule('-'))
	for _, t := range tickers {
		fmt.Fprintf(b, "%-10s %s\n", t, failures[t])
	}
}

func rule(ch byte) string {
	return strings.Repeat(string(ch), 72) + "\n"
}

// clip shortens s to at most n runes. Cutting on a rune boundary keeps
// multibyte instrument names valid UTF-8.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
