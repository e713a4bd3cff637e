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
// built-in defaults, applies POLYPILOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYPILOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setStringSlice(&cfg.Trading.Markets, "POLYPILOT_TRADING_MARKETS")
	setDuration(&cfg.Trading.ScanInterval, "POLYPILOT_TRADING_SCAN_INTERVAL")
	setBool(&cfg.Trading.Unsupervised, "POLYPILOT_TRADING_UNSUPERVISED")
	setFloat64(&cfg.Trading.MaxPositionSize, "POLYPILOT_TRADING_MAX_POSITION_SIZE")
	setFloat64(&cfg.Trading.MinConfidenceThreshold, "POLYPILOT_TRADING_MIN_CONFIDENCE_THRESHOLD")
	setInt(&cfg.Trading.MaxDailyTrades, "POLYPILOT_TRADING_MAX_DAILY_TRADES")
	setInt(&cfg.Trading.MaxOpenPositions, "POLYPILOT_TRADING_MAX_OPEN_POSITIONS")
	setFloat64(&cfg.Trading.RiskLimitPerTrade, "POLYPILOT_TRADING_RISK_LIMIT_PER_TRADE")
	setFloat64(&cfg.Trading.MinExpectedValue, "POLYPILOT_TRADING_MIN_EXPECTED_VALUE")
	setFloat64(&cfg.Trading.BuyThreshold, "POLYPILOT_TRADING_BUY_THRESHOLD")
	setFloat64(&cfg.Trading.SellThreshold, "POLYPILOT_TRADING_SELL_THRESHOLD")
	setFloat64(&cfg.Trading.MinEdge, "POLYPILOT_TRADING_MIN_EDGE")
	setFloat64(&cfg.Trading.FixedSize, "POLYPILOT_TRADING_FIXED_SIZE")
	setBool(&cfg.Trading.SimpleGates, "POLYPILOT_TRADING_SIMPLE_GATES")
	setInt(&cfg.Trading.StartHour, "POLYPILOT_TRADING_START_HOUR")
	setInt(&cfg.Trading.EndHour, "POLYPILOT_TRADING_END_HOUR")
	setInt(&cfg.Trading.FetchWorkers, "POLYPILOT_TRADING_FETCH_WORKERS")

	// ── Gamma ──
	setStr(&cfg.Gamma.Host, "POLYPILOT_GAMMA_HOST")
	setDuration(&cfg.Gamma.RequestTimeout, "POLYPILOT_GAMMA_REQUEST_TIMEOUT")
	setFloat64(&cfg.Gamma.RateLimitRPS, "POLYPILOT_GAMMA_RATE_LIMIT_RPS")
	setInt(&cfg.Gamma.MaxRetries, "POLYPILOT_GAMMA_MAX_RETRIES")

	// ── Exchange ──
	setStr(&cfg.Exchange.Host, "POLYPILOT_EXCHANGE_HOST")
	setStr(&cfg.Exchange.ApiKey, "POLYPILOT_EXCHANGE_API_KEY")
	setDuration(&cfg.Exchange.RequestTimeout, "POLYPILOT_EXCHANGE_REQUEST_TIMEOUT")
	setDuration(&cfg.Exchange.SettleDelay, "POLYPILOT_EXCHANGE_SETTLE_DELAY")
	setFloat64(&cfg.Exchange.DepositBuffer, "POLYPILOT_EXCHANGE_DEPOSIT_BUFFER")

	// ── Signals ──
	setBool(&cfg.Signals.Enabled, "POLYPILOT_SIGNALS_ENABLED")
	setStr(&cfg.Signals.FeedURL, "POLYPILOT_SIGNALS_FEED_URL")
	setDuration(&cfg.Signals.ReconnectBackoff, "POLYPILOT_SIGNALS_RECONNECT_BACKOFF")
	setDuration(&cfg.Signals.MaxAge, "POLYPILOT_SIGNALS_MAX_AGE")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POLYPILOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYPILOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYPILOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYPILOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYPILOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYPILOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYPILOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYPILOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYPILOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYPILOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYPILOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYPILOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYPILOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYPILOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYPILOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYPILOT_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYPILOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYPILOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYPILOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYPILOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYPILOT_MODE")
	setStr(&cfg.LogLevel, "POLYPILOT_LOG_LEVEL")
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
