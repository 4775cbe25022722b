package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	s3blob "github.com/shuweilin/twsignal/internal/blob/s3"
	"github.com/shuweilin/twsignal/internal/cache/redis"
	"github.com/shuweilin/twsignal/internal/config"
	"github.com/shuweilin/twsignal/internal/engine"
	"github.com/shuweilin/twsignal/internal/notify"
	"github.com/shuweilin/twsignal/internal/provider"
	"github.com/shuweilin/twsignal/internal/provider/yahoo"
	"github.com/shuweilin/twsignal/internal/report"
	"github.com/shuweilin/twsignal/internal/screener"
	"github.com/shuweilin/twsignal/internal/store/postgres"
)

// RunStore is the persisted-run surface the modes consume; implemented by
// postgres.RunStore.
type RunStore interface {
	SaveRun(ctx context.Context, d report.Data, rendered string) error
	ReportByDate(ctx context.Context, tradeDate time.Time) (string, error)
	GradeHistory(ctx context.Context, ticker string, limit int) ([]postgres.StoredSignal, error)
}

// ReportArchive is the object-storage surface the modes consume; implemented
// by s3blob.Archive.
type ReportArchive interface {
	Store(ctx context.Context, tradeDate time.Time, runID uuid.UUID, rendered string) error
	FindByDate(ctx context.Context, tradeDate time.Time) (string, error)
	Fetch(ctx context.Context, key string) (string, error)
}

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Price history
	Provider provider.HistoryProvider

	// Evaluation pipeline
	Volatility *engine.VolatilityEstimator
	Thresholds engine.ThresholdConfig
	Backtest   *engine.BacktestEngine
	Evaluator  *engine.Evaluator

	// Universe screening, one per horizon (nil unless enabled or running in
	// screen mode)
	ScreenerShort *screener.Screener
	ScreenerLong  *screener.Screener

	// Persistence (nil unless enabled)
	RunStore RunStore
	Archive  ReportArchive

	// Notifications
	Notifier *notify.Notifier
}

// wantScreener returns true when the screener should be constructed: either
// the daily report includes a universe screen, or the process runs in screen
// mode outright.
func wantScreener(cfg *config.Config) bool {
	return cfg.Screener.Enabled || cfg.Mode == "screen"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Price history provider ---
	var source provider.HistoryProvider = yahoo.NewClient(
		cfg.Yahoo.BaseURL,
		cfg.Yahoo.UserAgent,
		cfg.Yahoo.Timeout.Duration,
	)

	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		cache := redis.NewHistoryCache(redisClient, cfg.Redis.HistoryTTL.Duration)
		source = provider.NewCached(source, cache, logger)
	}
	deps.Provider = source

	// --- Evaluation pipeline ---
	volatility, err := engine.NewVolatilityEstimator(cfg.Engine.VolatilityWindow)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: volatility: %w", err)
	}
	deps.Volatility = volatility

	deps.Thresholds = engine.ThresholdConfig{
		UpMultiplier:   cfg.Engine.UpMultiplier,
		DownMultiplier: cfg.Engine.DownMultiplier,
		Floor:          cfg.Engine.ThresholdFloor,
		Ceiling:        cfg.Engine.ThresholdCeiling,
	}
	if err := deps.Thresholds.Validate(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: thresholds: %w", err)
	}

	backtest, err := engine.NewBacktestEngine(cfg.Backtest.HoldDays, cfg.Engine.MinSampleSize, engine.HighAboveEntry)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: backtest: %w", err)
	}
	deps.Backtest = backtest

	signals, err := engine.NewSignalGenerator(engine.SignalPolicy{
		MinSample:     cfg.Engine.MinSampleSize,
		StrongWinRate: cfg.Engine.StrongWinRate,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signals: %w", err)
	}

	deps.Evaluator = engine.NewEvaluator(volatility, deps.Thresholds, backtest, signals, cfg.Engine.Workers, logger)

	// --- Screeners, one per horizon. The short pass reuses the daily hold
	// over the short window; the long pass holds longer and additionally
	// demands the minimum average return. ---
	if wantScreener(cfg) {
		shortBacktest, err := engine.NewBacktestEngine(cfg.Backtest.HoldDays, cfg.Screener.MinEvents, engine.HighAboveEntry)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: short screener backtest: %w", err)
		}
		deps.ScreenerShort = screener.New(shortBacktest, screener.Config{
			TopN:       cfg.Screener.TopN,
			MinEvents:  cfg.Screener.MinEvents,
			BothMargin: cfg.Screener.BothMargin,
			Workers:    cfg.Engine.Workers,
		}, logger)

		longBacktest, err := engine.NewBacktestEngine(cfg.Screener.HoldDays, cfg.Screener.MinEvents, engine.HighAboveEntry)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: long screener backtest: %w", err)
		}
		deps.ScreenerLong = screener.New(longBacktest, screener.Config{
			TopN:       cfg.Screener.TopN,
			MinEvents:  cfg.Screener.MinEvents,
			MinReturn:  cfg.Screener.MinReturn,
			BothMargin: cfg.Screener.BothMargin,
			Workers:    cfg.Engine.Workers,
		}, logger)
	}

	// --- PostgreSQL run store ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
		deps.RunStore = postgres.NewRunStore(pgClient)
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Archive = s3blob.NewArchive(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.From != "" && len(cfg.Notify.To) > 0 {
		senders = append(senders, notify.NewSMTPSender(
			cfg.Notify.SMTPHost,
			cfg.Notify.SMTPPort,
			cfg.Notify.SMTPUser,
			cfg.Notify.SMTPPassword,
			cfg.Notify.From,
			cfg.Notify.To,
		))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
