package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shuweilin/twsignal/internal/config"
	"github.com/shuweilin/twsignal/internal/domain"
	"github.com/shuweilin/twsignal/internal/engine"
	"github.com/shuweilin/twsignal/internal/report"
	"github.com/shuweilin/twsignal/internal/scheduler"
	"github.com/shuweilin/twsignal/internal/screener"
)

// fetchWindow returns the history range to request from the provider: the
// long backtest window plus enough extra calendar days to warm up the
// volatility estimate before the window opens.
func fetchWindow(cfg *config.Config, asOf time.Time) (from, to time.Time) {
	to = domain.Day(asOf)
	warmup := cfg.Engine.VolatilityWindow*2 + 7
	from = to.AddDate(0, 0, -(cfg.Backtest.LongWindowDays + warmup))
	return from, to
}

// memoSource wraps a fetch function so that evaluating the same instrument
// across several backtest windows hits the provider once.
func memoSource(fetch engine.SeriesSource) engine.SeriesSource {
	var mu sync.Mutex
	type entry struct {
		series domain.PriceSeries
		err    error
	}
	seen := make(map[string]entry)

	return func(ctx context.Context, ticker string) (domain.PriceSeries, error) {
		mu.Lock()
		e, ok := seen[ticker]
		mu.Unlock()
		if ok {
			return e.series, e.err
		}

		series, err := fetch(ctx, ticker)
		mu.Lock()
		seen[ticker] = entry{series: series, err: err}
		mu.Unlock()
		return series, err
	}
}

// ReportMode runs one evaluation cycle and exits. With a replay date set it
// re-delivers a stored past report instead of evaluating.
func (a *App) ReportMode(ctx context.Context, deps *Dependencies) error {
	if a.cfg.ReplayDate != "" {
		date, err := time.Parse("2006-01-02", a.cfg.ReplayDate)
		if err != nil {
			return fmt.Errorf("app: parse replay date %q: %w", a.cfg.ReplayDate, err)
		}
		return a.replayReport(ctx, deps, domain.Day(date))
	}
	return a.runReport(ctx, deps)
}

// replayReport prints and re-delivers the stored report for a past trade
// date, preferring the run store and falling back to the object archive.
func (a *App) replayReport(ctx context.Context, deps *Dependencies, tradeDate time.Time) error {
	rendered, err := a.storedReport(ctx, deps, tradeDate)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, rendered)

	if err := deps.Notifier.Send(ctx, report.SubjectFor(tradeDate), rendered); err != nil {
		a.logger.ErrorContext(ctx, "replay delivery failed", slog.String("error", err.Error()))
	}
	return nil
}

func (a *App) storedReport(ctx context.Context, deps *Dependencies, tradeDate time.Time) (string, error) {
	if deps.RunStore == nil && deps.Archive == nil {
		return "", fmt.Errorf("app: replay needs postgres or s3 enabled")
	}

	if deps.RunStore != nil {
		rendered, err := deps.RunStore.ReportByDate(ctx, tradeDate)
		if err == nil {
			return rendered, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("app: stored report for %s: %w", tradeDate.Format("2006-01-02"), err)
		}
	}

	if deps.Archive != nil {
		key, err := deps.Archive.FindByDate(ctx, tradeDate)
		if err != nil {
			return "", fmt.Errorf("app: archived report for %s: %w", tradeDate.Format("2006-01-02"), err)
		}
		return deps.Archive.Fetch(ctx, key)
	}
	return "", fmt.Errorf("app: report for %s: %w", tradeDate.Format("2006-01-02"), domain.ErrNotFound)
}

// runReport is the daily cycle: fetch histories, evaluate every tracked
// instrument over both backtest horizons, render the report, deliver it, and
// archive it. It is shared by report mode and the daemon scheduler.
func (a *App) runReport(ctx context.Context, deps *Dependencies) error {
	start := time.Now()
	fetchFrom, today := fetchWindow(a.cfg, start)

	trigger, err := deps.Provider.History(ctx, a.cfg.Trigger.Ticker, fetchFrom, today)
	if err != nil {
		return fmt.Errorf("app: fetch trigger %s: %w", a.cfg.Trigger.Ticker, err)
	}
	tradeDate := domain.Day(trigger.Last().Date)

	estimate, err := deps.Volatility.Estimate(trigger)
	if err != nil {
		return fmt.Errorf("app: estimate volatility: %w", err)
	}
	rule := deps.Thresholds.Rule(estimate)
	lastRet, ok := trigger.LastReturn()
	if !ok {
		return fmt.Errorf("app: trigger %s: %w", trigger.Ticker, domain.ErrInsufficientHistory)
	}

	instruments := make([]engine.Instrument, 0, len(a.cfg.Instruments))
	for _, inst := range a.cfg.Instruments {
		instruments = append(instruments, engine.Instrument{Ticker: inst.Ticker, Name: inst.Name})
	}
	source := memoSource(func(ctx context.Context, ticker string) (domain.PriceSeries, error) {
		return deps.Provider.History(ctx, ticker, fetchFrom, today)
	})

	shortFrom := tradeDate.AddDate(0, 0, -a.cfg.Backtest.ShortWindowDays)
	longFrom := tradeDate.AddDate(0, 0, -a.cfg.Backtest.LongWindowDays)

	shortBatch := deps.Evaluator.EvaluateBatch(ctx, trigger, instruments, source, shortFrom, tradeDate)
	longBatch := deps.Evaluator.EvaluateBatch(ctx, trigger, instruments, source, longFrom, tradeDate)

	data := report.NewData(tradeDate)
	data.TriggerTicker = trigger.Ticker
	data.TriggerClose = trigger.Last().Close
	data.TriggerReturn = lastRet.Pct
	data.TriggerDirection = rule.Classify(lastRet.Pct)
	data.Volatility = estimate
	data.Rule = rule
	data.Short = report.Window{
		Label:    fmt.Sprintf("%dd", a.cfg.Backtest.ShortWindowDays),
		HoldDays: a.cfg.Backtest.HoldDays,
		Recs:     shortBatch.Recommendations,
	}
	data.Long = report.Window{
		Label:    fmt.Sprintf("%dd", a.cfg.Backtest.LongWindowDays),
		HoldDays: a.cfg.Backtest.HoldDays,
		Recs:     longBatch.Recommendations,
	}

	data.Consensus = engine.Consensus(shortBatch.Recommendations, longBatch.Recommendations)

	data.Failures = make(map[string]error, len(shortBatch.Failures)+len(longBatch.Failures))
	for ticker, ferr := range shortBatch.Failures {
		data.Failures[ticker] = ferr
	}
	for ticker, ferr := range longBatch.Failures {
		data.Failures[ticker] = ferr
	}

	if deps.ScreenerShort != nil {
		universe := screener.DefaultUniverse()
		data.Screens = []report.ScreenSection{
			{
				Label: fmt.Sprintf("hold %dd, %dd window", a.cfg.Backtest.HoldDays, a.cfg.Backtest.ShortWindowDays),
				Rows:  screenRows(deps.ScreenerShort.Run(ctx, trigger, universe, source, rule, shortFrom, tradeDate)),
			},
			{
				Label: fmt.Sprintf("hold %dd, %dd window", a.cfg.Screener.HoldDays, a.cfg.Backtest.LongWindowDays),
				Rows:  screenRows(deps.ScreenerLong.Run(ctx, trigger, universe, source, rule, longFrom, tradeDate)),
			},
		}
	}

	if deps.RunStore != nil {
		data.History = a.gradeHistory(ctx, deps, instruments)
	}

	rendered := report.Render(data)
	fmt.Fprintln(os.Stdout, rendered)

	// One delivery per trade date: a rerun (daemon restart, weekend run with
	// no new trigger bar) must not mail the same report again.
	if deps.RunStore != nil {
		if _, err := deps.RunStore.ReportByDate(ctx, tradeDate); err == nil {
			a.logger.InfoContext(ctx, "trade date already reported, skipping delivery",
				slog.String("trade_date", tradeDate.Format("2006-01-02")),
			)
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			a.logger.WarnContext(ctx, "run store lookup failed, delivering anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	if err := deps.Notifier.Send(ctx, data.Subject(), rendered); err != nil {
		a.logger.ErrorContext(ctx, "report delivery failed", slog.String("error", err.Error()))
	}

	if deps.RunStore != nil {
		if err := deps.RunStore.SaveRun(ctx, data, rendered); err != nil {
			return fmt.Errorf("app: persist run %s: %w", data.RunID, err)
		}
	}
	if deps.Archive != nil {
		if err := deps.Archive.Store(ctx, data.TradeDate, data.RunID, rendered); err != nil {
			return fmt.Errorf("app: archive run %s: %w", data.RunID, err)
		}
	}

	a.logger.InfoContext(ctx, "report cycle complete",
		slog.String("trade_date", tradeDate.Format("2006-01-02")),
		slog.String("run_id", data.RunID.String()),
		slog.Int("recommendations", len(shortBatch.Recommendations)+len(longBatch.Recommendations)),
		slog.Int("failures", len(data.Failures)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// BacktestMode replays the rule over the long window for every tracked
// instrument and prints the per-bucket statistics.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	fetchFrom, today := fetchWindow(a.cfg, time.Now())

	trigger, err := deps.Provider.History(ctx, a.cfg.Trigger.Ticker, fetchFrom, today)
	if err != nil {
		return fmt.Errorf("app: fetch trigger %s: %w", a.cfg.Trigger.Ticker, err)
	}
	rule, err := deps.Evaluator.Rule(trigger)
	if err != nil {
		return fmt.Errorf("app: derive rule: %w", err)
	}
	tradeDate := domain.Day(trigger.Last().Date)
	from := tradeDate.AddDate(0, 0, -a.cfg.Backtest.LongWindowDays)

	fmt.Printf("trigger %s  surge >= +%.2f%%  crash <= -%.2f%%  window %s to %s  hold %dd\n\n",
		trigger.Ticker, rule.Up, rule.Down,
		from.Format("2006-01-02"), tradeDate.Format("2006-01-02"),
		a.cfg.Backtest.HoldDays,
	)

	for _, inst := range a.cfg.Instruments {
		outcome, err := deps.Provider.History(ctx, inst.Ticker, fetchFrom, today)
		if err != nil {
			a.logger.WarnContext(ctx, "instrument skipped",
				slog.String("ticker", inst.Ticker),
				slog.String("error", err.Error()),
			)
			continue
		}
		result := deps.Backtest.Run(trigger, outcome, rule, from, tradeDate)

		fmt.Printf("%s (%s)\n", inst.Ticker, inst.Name)
		printBucket("  after surge", result.Up)
		printBucket("  after crash", result.Down)
		printBucket("  flat days  ", result.Flat)
		fmt.Println()
	}
	return nil
}

func printBucket(label string, stats domain.BacktestStatistics) {
	if stats.Insufficient {
		fmt.Printf("%s  n=%d (insufficient)\n", label, stats.SampleSize)
		return
	}
	fmt.Printf("%s  n=%d  win %.0f%%  avg %+.2f%%\n",
		label, stats.SampleSize, stats.WinRate*100, stats.AvgReturn)
}

// ScreenMode ranks the full candidate universe and prints the shortlists.
func (a *App) ScreenMode(ctx context.Context, deps *Dependencies) error {
	fetchFrom, today := fetchWindow(a.cfg, time.Now())

	trigger, err := deps.Provider.History(ctx, a.cfg.Trigger.Ticker, fetchFrom, today)
	if err != nil {
		return fmt.Errorf("app: fetch trigger %s: %w", a.cfg.Trigger.Ticker, err)
	}
	rule, err := deps.Evaluator.Rule(trigger)
	if err != nil {
		return fmt.Errorf("app: derive rule: %w", err)
	}

	tradeDate := domain.Day(trigger.Last().Date)
	shortFrom := tradeDate.AddDate(0, 0, -a.cfg.Backtest.ShortWindowDays)
	longFrom := tradeDate.AddDate(0, 0, -a.cfg.Backtest.LongWindowDays)
	source := memoSource(func(ctx context.Context, ticker string) (domain.PriceSeries, error) {
		return deps.Provider.History(ctx, ticker, fetchFrom, today)
	})
	universe := screener.DefaultUniverse()

	shortList := deps.ScreenerShort.Run(ctx, trigger, universe, source, rule, shortFrom, tradeDate)
	printScreen(fmt.Sprintf("hold %dd, window %s to %s", a.cfg.Backtest.HoldDays,
		shortFrom.Format("2006-01-02"), tradeDate.Format("2006-01-02")), shortList)

	longList := deps.ScreenerLong.Run(ctx, trigger, universe, source, rule, longFrom, tradeDate)
	printScreen(fmt.Sprintf("hold %dd, window %s to %s", a.cfg.Screener.HoldDays,
		longFrom.Format("2006-01-02"), tradeDate.Format("2006-01-02")), longList)

	crashBuy, surgeBuy := deps.ScreenerLong.Shortlist(longList)
	printShortlist("buy after a crash", crashBuy)
	printShortlist("buy after a surge", surgeBuy)
	return nil
}

func printScreen(label string, candidates []screener.Candidate) {
	if len(candidates) == 0 {
		fmt.Printf("\nno candidates cleared the screen (%s)\n", label)
		return
	}
	fmt.Printf("\ntop %d of universe, %s\n\n", len(candidates), label)
	for i, c := range candidates {
		fmt.Printf("%2d. %-10s %-24s %-4s score %6.2f  win %.0f%%  avg %+.2f%%  n=%d\n",
			i+1, c.Ticker, c.Name, c.Direction, c.Score, c.WinRate*100, c.AvgReturn, c.SampleSize)
	}
}

func printShortlist(label string, list []screener.Candidate) {
	fmt.Printf("\n%s:\n", label)
	if len(list) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, c := range list {
		fmt.Printf("  %-10s %s\n", c.Ticker, c.Name)
	}
}

// DaemonMode runs the report cycle on the configured cron schedule until the
// context is cancelled.
func (a *App) DaemonMode(ctx context.Context, deps *Dependencies) error {
	loc := time.Local
	if a.cfg.Scheduler.Location != "" {
		var err error
		loc, err = time.LoadLocation(a.cfg.Scheduler.Location)
		if err != nil {
			return fmt.Errorf("app: load location %q: %w", a.cfg.Scheduler.Location, err)
		}
	}

	sched, err := scheduler.New(
		a.cfg.Scheduler.Cron,
		loc,
		a.cfg.Scheduler.BootDelay.Duration,
		func(ctx context.Context) error { return a.runReport(ctx, deps) },
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("app: scheduler: %w", err)
	}

	a.logger.InfoContext(ctx, "daemon started",
		slog.String("cron", a.cfg.Scheduler.Cron),
		slog.String("location", loc.String()),
	)
	return sched.Run(ctx)
}

// gradeHistory pulls each tracked instrument's recent stored grades for the
// report appendix. Lookup failures drop the row, never the report.
func (a *App) gradeHistory(ctx context.Context, deps *Dependencies, instruments []engine.Instrument) []report.HistoryRow {
	rows := make([]report.HistoryRow, 0, len(instruments))
	for _, inst := range instruments {
		past, err := deps.RunStore.GradeHistory(ctx, inst.Ticker, 6)
		if err != nil {
			a.logger.WarnContext(ctx, "grade history lookup failed",
				slog.String("ticker", inst.Ticker),
				slog.String("error", err.Error()),
			)
			continue
		}
		if len(past) == 0 {
			continue
		}
		row := report.HistoryRow{Ticker: inst.Ticker}
		for _, p := range past {
			row.Past = append(row.Past, report.PastGrade{
				TradeDate: p.TradeDate,
				Horizon:   p.Horizon,
				Grade:     p.Grade,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// screenRows converts screener candidates into report rows.
func screenRows(candidates []screener.Candidate) []report.ScreenRow {
	rows := make([]report.ScreenRow, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, report.ScreenRow{
			Ticker:     c.Ticker,
			Name:       c.Name,
			Direction:  c.Direction,
			Score:      c.Score,
			WinRate:    c.WinRate,
			AvgReturn:  c.AvgReturn,
			SampleSize: c.SampleSize,
		})
	}
	return rows
}
