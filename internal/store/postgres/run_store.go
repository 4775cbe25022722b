package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shuweilin/twsignal/internal/domain"
	"github.com/shuweilin/twsignal/internal/report"
)

// RunStore persists daily signal runs and their graded rows.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a RunStore backed by the given Client.
func NewRunStore(c *Client) *RunStore {
	return &RunStore{pool: c.Pool()}
}

// SaveRun inserts the run header, the rendered report text, and one row per
// graded signal across both horizons, in a single transaction.
func (s *RunStore) SaveRun(ctx context.Context, d report.Data, rendered string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin run tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO signal_runs
			(id, trade_date, trigger_ticker, trigger_close, volatility,
			 threshold_up, threshold_down, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.RunID, d.TradeDate, d.TriggerTicker, d.TriggerClose,
		d.Volatility.Value, d.Rule.Up, d.Rule.Down, rendered,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run %s: %w", d.RunID, err)
	}

	for _, w := range []report.Window{d.Short, d.Long} {
		for _, rec := range w.Recs {
			if err := insertSignal(ctx, tx, d.RunID, w.Label, rec); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit run %s: %w", d.RunID, err)
	}
	return nil
}

func insertSignal(ctx context.Context, tx pgx.Tx, runID uuid.UUID, horizon string, rec domain.Recommendation) error {
	stats := rec.Signal.Stats
	_, err := tx.Exec(ctx, `
		INSERT INTO signals
			(run_id, horizon, ticker, name, grade, direction,
			 confidence, win_rate, avg_return, sample_size, insufficient)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		runID, horizon, rec.Ticker, rec.Name,
		string(rec.Signal.Grade), string(rec.Signal.Direction),
		rec.Signal.Confidence, stats.WinRate, stats.AvgReturn,
		stats.SampleSize, rec.Signal.Insufficient,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s/%s: %w", runID, rec.Ticker, err)
	}
	return nil
}

// ReportByDate returns the rendered report text for the most recent run on
// the given trade date. It returns domain.ErrNotFound when no run exists.
func (s *RunStore) ReportByDate(ctx context.Context, tradeDate time.Time) (string, error) {
	var rendered string
	err := s.pool.QueryRow(ctx, `
		SELECT report FROM signal_runs
		WHERE trade_date = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		tradeDate,
	).Scan(&rendered)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: report for %s: %w", tradeDate.Format("2006-01-02"), err)
	}
	return rendered, nil
}

// GradeHistory returns the stored grades for one ticker, newest first, up to
// limit rows. It backs the "how has this signal done lately" query.
func (s *RunStore) GradeHistory(ctx context.Context, ticker string, limit int) ([]StoredSignal, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT r.trade_date, g.horizon, g.grade, g.direction,
		       g.confidence, g.win_rate, g.sample_size, g.insufficient
		FROM signals g
		JOIN signal_runs r ON r.id = g.run_id
		WHERE g.ticker = $1
		ORDER BY r.trade_date DESC, g.horizon
		LIMIT $2`,
		ticker, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: grade history %s: %w", ticker, err)
	}
	defer rows.Close()

	var out []StoredSignal
	for rows.Next() {
		var sig StoredSignal
		if err := rows.Scan(
			&sig.TradeDate, &sig.Horizon, &sig.Grade, &sig.Direction,
			&sig.Confidence, &sig.WinRate, &sig.SampleSize, &sig.Insufficient,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan grade history %s: %w", ticker, err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: grade history %s: %w", ticker, err)
	}
	return out, nil
}

// StoredSignal is one persisted grade row joined with its run date.
type StoredSignal struct {
	TradeDate    time.Time
	Horizon      string
	Grade        string
	Direction    string
	Confidence   float64
	WinRate      float64
	SampleSize   int
	Insufficient bool
}
