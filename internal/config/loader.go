package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TWSIG_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TWSIG_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setInt(&cfg.Engine.VolatilityWindow, "TWSIG_ENGINE_VOLATILITY_WINDOW")
	setFloat64(&cfg.Engine.UpMultiplier, "TWSIG_ENGINE_UP_MULTIPLIER")
	setFloat64(&cfg.Engine.DownMultiplier, "TWSIG_ENGINE_DOWN_MULTIPLIER")
	setFloat64(&cfg.Engine.ThresholdFloor, "TWSIG_ENGINE_THRESHOLD_FLOOR")
	setFloat64(&cfg.Engine.ThresholdCeiling, "TWSIG_ENGINE_THRESHOLD_CEILING")
	setInt(&cfg.Engine.MinSampleSize, "TWSIG_ENGINE_MIN_SAMPLE_SIZE")
	setFloat64(&cfg.Engine.StrongWinRate, "TWSIG_ENGINE_STRONG_WIN_RATE")
	setInt(&cfg.Engine.Workers, "TWSIG_ENGINE_WORKERS")

	// ── Backtest ──
	setInt(&cfg.Backtest.HoldDays, "TWSIG_BACKTEST_HOLD_DAYS")
	setInt(&cfg.Backtest.ShortWindowDays, "TWSIG_BACKTEST_SHORT_WINDOW_DAYS")
	setInt(&cfg.Backtest.LongWindowDays, "TWSIG_BACKTEST_LONG_WINDOW_DAYS")

	// ── Trigger ──
	setStr(&cfg.Trigger.Ticker, "TWSIG_TRIGGER_TICKER")

	// ── Screener ──
	setBool(&cfg.Screener.Enabled, "TWSIG_SCREENER_ENABLED")
	setInt(&cfg.Screener.TopN, "TWSIG_SCREENER_TOP_N")
	setInt(&cfg.Screener.MinEvents, "TWSIG_SCREENER_MIN_EVENTS")
	setInt(&cfg.Screener.HoldDays, "TWSIG_SCREENER_HOLD_DAYS")
	setFloat64(&cfg.Screener.MinReturn, "TWSIG_SCREENER_MIN_RETURN")
	setFloat64(&cfg.Screener.BothMargin, "TWSIG_SCREENER_BOTH_MARGIN")

	// ── Yahoo ──
	setStr(&cfg.Yahoo.BaseURL, "TWSIG_YAHOO_BASE_URL")
	setDuration(&cfg.Yahoo.Timeout, "TWSIG_YAHOO_TIMEOUT")
	setStr(&cfg.Yahoo.UserAgent, "TWSIG_YAHOO_USER_AGENT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TWSIG_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TWSIG_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TWSIG_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TWSIG_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TWSIG_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TWSIG_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TWSIG_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.HistoryTTL, "TWSIG_REDIS_HISTORY_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TWSIG_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TWSIG_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TWSIG_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TWSIG_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TWSIG_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TWSIG_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TWSIG_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TWSIG_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TWSIG_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TWSIG_POSTGRES_POOL_MIN_CONNS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TWSIG_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TWSIG_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TWSIG_S3_REGION")
	setStr(&cfg.S3.Bucket, "TWSIG_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TWSIG_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TWSIG_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TWSIG_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TWSIG_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.SMTPHost, "TWSIG_NOTIFY_SMTP_HOST")
	setInt(&cfg.Notify.SMTPPort, "TWSIG_NOTIFY_SMTP_PORT")
	setStr(&cfg.Notify.SMTPUser, "TWSIG_NOTIFY_SMTP_USER")
	setStr(&cfg.Notify.SMTPPassword, "TWSIG_NOTIFY_SMTP_PASSWORD")
	setStr(&cfg.Notify.From, "TWSIG_NOTIFY_FROM")
	setStringSlice(&cfg.Notify.To, "TWSIG_NOTIFY_TO")
	setStr(&cfg.Notify.TelegramToken, "TWSIG_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TWSIG_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Scheduler ──
	setStr(&cfg.Scheduler.Cron, "TWSIG_SCHEDULER_CRON")
	setStr(&cfg.Scheduler.Location, "TWSIG_SCHEDULER_LOCATION")
	setDuration(&cfg.Scheduler.BootDelay, "TWSIG_SCHEDULER_BOOT_DELAY")

	// ── Top-level ──
	setStr(&cfg.Mode, "TWSIG_MODE")
	setStr(&cfg.ReplayDate, "TWSIG_REPLAY_DATE")
	setStr(&cfg.LogLevel, "TWSIG_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
