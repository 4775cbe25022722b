// Package config defines the top-level configuration for the signal service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TWSIG_* environment variables.
type Config struct {
	Engine      EngineConfig       `toml:"engine"`
	Backtest    BacktestConfig     `toml:"backtest"`
	Trigger     TriggerConfig      `toml:"trigger"`
	Instruments []InstrumentConfig `toml:"instruments"`
	Screener    ScreenerConfig     `toml:"screener"`
	Yahoo       YahooConfig        `toml:"yahoo"`
	Redis       RedisConfig        `toml:"redis"`
	Postgres    PostgresConfig     `toml:"postgres"`
	S3          S3Config           `toml:"s3"`
	Notify      NotifyConfig       `toml:"notify"`
	Scheduler   SchedulerConfig    `toml:"scheduler"`
	Mode        string             `toml:"mode"`
	// ReplayDate re-delivers the stored report for one past trade date
	// (YYYY-MM-DD) instead of evaluating; report mode only.
	ReplayDate string `toml:"replay_date"`
	LogLevel   string `toml:"log_level"`
}

// EngineConfig holds the core signal-engine parameters.
type EngineConfig struct {
	// VolatilityWindow is the number of daily returns in the rolling
	// dispersion estimate.
	VolatilityWindow int `toml:"volatility_window"`
	// UpMultiplier and DownMultiplier scale the volatility estimate into the
	// surge and crash thresholds. They are independent so the two sides can
	// be tuned asymmetrically.
	UpMultiplier   float64 `toml:"up_multiplier"`
	DownMultiplier float64 `toml:"down_multiplier"`
	// ThresholdFloor and ThresholdCeiling clamp both thresholds, in
	// percentage points.
	ThresholdFloor   float64 `toml:"threshold_floor"`
	ThresholdCeiling float64 `toml:"threshold_ceiling"`
	// MinSampleSize is the smallest backtest bucket the grader will trust.
	MinSampleSize int `toml:"min_sample_size"`
	// StrongWinRate promotes buy/avoid to their strong variants.
	StrongWinRate float64 `toml:"strong_win_rate"`
	// Workers bounds batch-evaluation concurrency.
	Workers int `toml:"workers"`
}

// BacktestConfig holds the replay horizons.
type BacktestConfig struct {
	// HoldDays is the holding period in shared trading days, entry day
	// inclusive.
	HoldDays int `toml:"hold_days"`
	// ShortWindowDays and LongWindowDays are the two lookback horizons the
	// daily report compares (roughly three and six months of calendar days).
	ShortWindowDays int `toml:"short_window_days"`
	LongWindowDays  int `toml:"long_window_days"`
}

// TriggerConfig identifies the instrument whose daily move drives every
// signal.
type TriggerConfig struct {
	Ticker string `toml:"ticker"`
}

// InstrumentConfig is one tracked outcome instrument.
type InstrumentConfig struct {
	Ticker string `toml:"ticker"`
	Name   string `toml:"name"`
}

// ScreenerConfig holds the universe-screening parameters.
type ScreenerConfig struct {
	Enabled bool `toml:"enabled"`
	// TopN is how many instruments the screener keeps.
	TopN int `toml:"top_n"`
	// MinEvents is the smallest bucket a candidate may be scored on.
	MinEvents int `toml:"min_events"`
	// HoldDays is the screener's longer holding period.
	HoldDays int `toml:"hold_days"`
	// MinReturn filters candidates whose average outcome return, in
	// percentage points, falls below it.
	MinReturn float64 `toml:"min_return"`
	// BothMargin is the win-rate gap, in percentage points of return, below
	// which both the crash and surge buckets are reported.
	BothMargin float64 `toml:"both_margin"`
}

// YahooConfig holds the price-history source parameters.
type YahooConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	HistoryTTL duration `toml:"history_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters for the report
// archive.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for archived
// reports.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	SMTPHost       string   `toml:"smtp_host"`
	SMTPPort       int      `toml:"smtp_port"`
	SMTPUser       string   `toml:"smtp_user"`
	SMTPPassword   string   `toml:"smtp_password"`
	From           string   `toml:"from"`
	To             []string `toml:"to"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
}

// SchedulerConfig holds the daemon-mode schedule.
type SchedulerConfig struct {
	// Cron is a standard five-field cron expression in the configured
	// location.
	Cron     string `toml:"cron"`
	Location string `toml:"location"`
	// BootDelay postpones the first run after process start so that network
	// and DNS are up on slow boots.
	BootDelay duration `toml:"boot_delay"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			VolatilityWindow: 20,
			UpMultiplier:     1.25,
			DownMultiplier:   1.25,
			ThresholdFloor:   0.7,
			ThresholdCeiling: 1.8,
			MinSampleSize:    5,
			StrongWinRate:    0.65,
			Workers:          8,
		},
		Backtest: BacktestConfig{
			HoldDays:        3,
			ShortWindowDays: 95,
			LongWindowDays:  185,
		},
		Trigger: TriggerConfig{Ticker: "QQQ"},
		Instruments: []InstrumentConfig{
			{Ticker: "2330.TW", Name: "TSMC"},
			{Ticker: "0050.TW", Name: "Yuanta Taiwan 50 ETF"},
			{Ticker: "006208.TW", Name: "Fubon Taiwan 50 ETF"},
		},
		Screener: ScreenerConfig{
			Enabled:    false,
			TopN:       20,
			MinEvents:  3,
			HoldDays:   10,
			MinReturn:  4.0,
			BothMargin: 0.5,
		},
		Yahoo: YahooConfig{
			BaseURL:   "https://query1.finance.yahoo.com",
			Timeout:   duration{15 * time.Second},
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) twsignal/1.0",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
			HistoryTTL: duration{6 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "twsignal",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "twsignal-reports",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Scheduler: SchedulerConfig{
			Cron:      "30 7 * * 1-5",
			Location:  "Asia/Taipei",
			BootDelay: duration{20 * time.Second},
		},
		Mode:     "report",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"report":   true,
	"backtest": true,
	"screen":   true,
	"daemon":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: report, backtest, screen, daemon)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.ReplayDate != "" {
		if _, err := time.Parse("2006-01-02", c.ReplayDate); err != nil {
			errs = append(errs, fmt.Sprintf("replay_date %q is not a YYYY-MM-DD date", c.ReplayDate))
		}
		if strings.ToLower(c.Mode) != "report" {
			errs = append(errs, "replay_date is only valid in report mode")
		}
	}

	// Engine
	if c.Engine.VolatilityWindow < 2 {
		errs = append(errs, "engine: volatility_window must be >= 2")
	}
	if c.Engine.UpMultiplier <= 0 || c.Engine.DownMultiplier <= 0 {
		errs = append(errs, "engine: up_multiplier and down_multiplier must be > 0")
	}
	if c.Engine.ThresholdFloor < 0 {
		errs = append(errs, "engine: threshold_floor must be >= 0")
	}
	if c.Engine.ThresholdCeiling < c.Engine.ThresholdFloor {
		errs = append(errs, fmt.Sprintf("engine: threshold_ceiling %.2f below threshold_floor %.2f",
			c.Engine.ThresholdCeiling, c.Engine.ThresholdFloor))
	}
	if c.Engine.MinSampleSize < 1 {
		errs = append(errs, "engine: min_sample_size must be >= 1")
	}
	if c.Engine.StrongWinRate <= 0 || c.Engine.StrongWinRate > 1 {
		errs = append(errs, fmt.Sprintf("engine: strong_win_rate must be in (0,1], got %.2f", c.Engine.StrongWinRate))
	}
	if c.Engine.Workers < 1 {
		errs = append(errs, "engine: workers must be >= 1")
	}

	// Backtest
	if c.Backtest.HoldDays < 1 {
		errs = append(errs, "backtest: hold_days must be >= 1")
	}
	if c.Backtest.ShortWindowDays < c.Engine.VolatilityWindow {
		errs = append(errs, "backtest: short_window_days must cover at least the volatility window")
	}
	if c.Backtest.LongWindowDays < c.Backtest.ShortWindowDays {
		errs = append(errs, "backtest: long_window_days must be >= short_window_days")
	}

	// Trigger and instruments
	if c.Trigger.Ticker == "" {
		errs = append(errs, "trigger: ticker must not be empty")
	}
	if len(c.Instruments) == 0 {
		errs = append(errs, "instruments: at least one instrument is required")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Ticker == "" {
			errs = append(errs, fmt.Sprintf("instruments[%d]: ticker must not be empty", i))
			continue
		}
		if seen[inst.Ticker] {
			errs = append(errs, fmt.Sprintf("instruments: duplicate ticker %s", inst.Ticker))
		}
		seen[inst.Ticker] = true
	}

	// Screener
	if c.Screener.Enabled || c.Mode == "screen" {
		if c.Screener.TopN < 1 {
			errs = append(errs, "screener: top_n must be >= 1")
		}
		if c.Screener.MinEvents < 1 {
			errs = append(errs, "screener: min_events must be >= 1")
		}
		if c.Screener.HoldDays < 1 {
			errs = append(errs, "screener: hold_days must be >= 1")
		}
	}

	// Yahoo
	if c.Yahoo.BaseURL == "" {
		errs = append(errs, "yahoo: base_url must not be empty")
	}
	if c.Yahoo.Timeout.Duration <= 0 {
		errs = append(errs, "yahoo: timeout must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.HistoryTTL.Duration <= 0 {
			errs = append(errs, "redis: history_ttl must be > 0")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Notify: mail fields must be set together, or all empty.
	mailOn := c.Notify.SMTPUser != "" || c.Notify.From != "" || len(c.Notify.To) > 0
	if mailOn {
		if c.Notify.SMTPHost == "" {
			errs = append(errs, "notify: smtp_host must not be empty when mail is configured")
		}
		if c.Notify.SMTPPort <= 0 || c.Notify.SMTPPort > 65535 {
			errs = append(errs, fmt.Sprintf("notify: smtp_port must be 1-65535, got %d", c.Notify.SMTPPort))
		}
		if c.Notify.From == "" {
			errs = append(errs, "notify: from must be set when mail is configured")
		}
		if len(c.Notify.To) == 0 {
			errs = append(errs, "notify: at least one recipient is required when mail is configured")
		}
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	// Scheduler settings only matter in daemon mode.
	if c.Mode == "daemon" {
		if c.Scheduler.Cron == "" {
			errs = append(errs, "scheduler: cron must not be empty in daemon mode")
		}
		if c.Scheduler.Location != "" {
			if _, err := time.LoadLocation(c.Scheduler.Location); err != nil {
				errs = append(errs, fmt.Sprintf("scheduler: unknown location %q", c.Scheduler.Location))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
