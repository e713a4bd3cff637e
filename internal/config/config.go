// Package config defines the top-level configuration for polypilot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYPILOT_* environment variables.
type Config struct {
	Trading  TradingConfig  `toml:"trading"`
	Gamma    GammaConfig    `toml:"gamma"`
	Exchange ExchangeConfig `toml:"exchange"`
	Signals  SignalsConfig  `toml:"signals"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TradingConfig holds the risk limits and strategy thresholds. It is loaded
// once at startup and never mutated while the scheduler runs.
type TradingConfig struct {
	// Markets is the universe of condition ids scanned every tick, in the
	// order trades are evaluated.
	Markets []string `toml:"markets"`

	ScanInterval duration `toml:"scan_interval"`

	// Unsupervised gates real execution. When false the bot logs the trades
	// it would have made and takes no action.
	Unsupervised bool `toml:"unsupervised"`

	MaxPositionSize        float64 `toml:"max_position_size"`
	MinConfidenceThreshold float64 `toml:"min_confidence_threshold"`
	MaxDailyTrades         int     `toml:"max_daily_trades"`
	MaxOpenPositions       int     `toml:"max_open_positions"`
	RiskLimitPerTrade      float64 `toml:"risk_limit_per_trade"`
	MinExpectedValue       float64 `toml:"min_expected_value"`

	BuyThreshold  float64 `toml:"buy_threshold"`
	SellThreshold float64 `toml:"sell_threshold"`
	MinEdge       float64 `toml:"min_edge"`

	// FixedSize, when positive, bypasses Kelly sizing and stakes this
	// amount on every trade. Intended for small-stakes shakeout runs.
	FixedSize float64 `toml:"fixed_size"`

	// SimpleGates switches the evaluator to the relaxed test gate
	// (size > 0 and confidence >= 0.7) instead of the full gate set.
	SimpleGates bool `toml:"simple_gates"`

	// StartHour/EndHour bound trading to a UTC window. Both zero means
	// around-the-clock trading.
	StartHour int `toml:"start_hour"`
	EndHour   int `toml:"end_hour"`

	// FetchWorkers bounds concurrent market-data fetches within one scan.
	FetchWorkers int `toml:"fetch_workers"`
}

// GammaConfig holds market-data API parameters.
type GammaConfig struct {
	Host           string   `toml:"host"`
	RequestTimeout duration `toml:"request_timeout"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	MaxRetries     int      `toml:"max_retries"`
}

// ExchangeConfig holds the order-placement collaborator parameters.
type ExchangeConfig struct {
	Host           string   `toml:"host"`
	ApiKey         string   `toml:"api_key"`
	RequestTimeout duration `toml:"request_timeout"`

	// SettleDelay is how long to wait after a successful deposit before
	// retrying an order. A heuristic, not a settlement guarantee.
	SettleDelay duration `toml:"settle_delay"`

	// DepositBuffer is added on top of the required amount when topping up.
	DepositBuffer float64 `toml:"deposit_buffer"`
}

// SignalsConfig holds the optional sentiment feed parameters.
type SignalsConfig struct {
	Enabled          bool     `toml:"enabled"`
	FeedURL          string   `toml:"feed_url"`
	ReconnectBackoff duration `toml:"reconnect_backoff"`
	MaxAge           duration `toml:"max_age"`
}

// PostgresConfig holds journal database connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
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
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Markets:                []string{},
			ScanInterval:           duration{60 * time.Second},
			Unsupervised:           false,
			MaxPositionSize:        100,
			MinConfidenceThreshold: 0.7,
			MaxDailyTrades:         10,
			MaxOpenPositions:       5,
			RiskLimitPerTrade:      25,
			MinExpectedValue:       5,
			BuyThreshold:           0.05,
			SellThreshold:          0.95,
			MinEdge:                0.01,
			FixedSize:              0,
			SimpleGates:            false,
			StartHour:              0,
			EndHour:                0,
			FetchWorkers:           5,
		},
		Gamma: GammaConfig{
			Host:           "https://gamma-api.polymarket.com",
			RequestTimeout: duration{15 * time.Second},
			RateLimitRPS:   4,
			MaxRetries:     2,
		},
		Exchange: ExchangeConfig{
			Host:           "https://clob.polymarket.com",
			RequestTimeout: duration{30 * time.Second},
			SettleDelay:    duration{5 * time.Second},
			DepositBuffer:  2,
		},
		Signals: SignalsConfig{
			Enabled:          false,
			ReconnectBackoff: duration{5 * time.Second},
			MaxAge:           duration{30 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "polypilot",
			User:          "polypilot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Notify: NotifyConfig{
			Events: []string{"trade.executed", "trade.failed", "deposit"},
		},
		Mode:     "dry-run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":    true,
	"dry-run": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, dry-run)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	t := &c.Trading
	if strings.ToLower(c.Mode) == "live" && len(t.Markets) == 0 {
		errs = append(errs, "trading: markets must not be empty in live mode")
	}
	if t.ScanInterval.Duration <= 0 {
		errs = append(errs, "trading: scan_interval must be positive")
	}
	if t.MaxPositionSize <= 0 {
		errs = append(errs, "trading: max_position_size must be > 0")
	}
	if t.MinConfidenceThreshold <= 0 || t.MinConfidenceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("trading: min_confidence_threshold must be in (0,1], got %v", t.MinConfidenceThreshold))
	}
	if t.MaxDailyTrades < 1 {
		errs = append(errs, "trading: max_daily_trades must be >= 1")
	}
	if t.MaxOpenPositions < 1 {
		errs = append(errs, "trading: max_open_positions must be >= 1")
	}
	if t.RiskLimitPerTrade <= 0 {
		errs = append(errs, "trading: risk_limit_per_trade must be > 0")
	}
	if t.BuyThreshold <= 0 || t.BuyThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("trading: buy_threshold must be in (0,1), got %v", t.BuyThreshold))
	}
	if t.SellThreshold <= 0 || t.SellThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("trading: sell_threshold must be in (0,1), got %v", t.SellThreshold))
	}
	if t.BuyThreshold >= t.SellThreshold {
		errs = append(errs, "trading: buy_threshold must be below sell_threshold")
	}
	if t.MinEdge < 0 || t.MinEdge >= 1 {
		errs = append(errs, fmt.Sprintf("trading: min_edge must be in [0,1), got %v", t.MinEdge))
	}
	if t.FixedSize < 0 {
		errs = append(errs, "trading: fixed_size must be >= 0")
	}
	if t.StartHour < 0 || t.StartHour > 23 || t.EndHour < 0 || t.EndHour > 23 {
		errs = append(errs, "trading: start_hour and end_hour must be 0-23")
	}
	if t.FetchWorkers < 1 {
		errs = append(errs, "trading: fetch_workers must be >= 1")
	}

	// Gamma
	if c.Gamma.Host == "" {
		errs = append(errs, "gamma: host must not be empty")
	}
	if c.Gamma.RequestTimeout.Duration <= 0 {
		errs = append(errs, "gamma: request_timeout must be positive")
	}
	if c.Gamma.RateLimitRPS <= 0 {
		errs = append(errs, "gamma: rate_limit_rps must be > 0")
	}
	if c.Gamma.MaxRetries < 0 {
		errs = append(errs, "gamma: max_retries must be >= 0")
	}

	// Exchange
	if c.Exchange.Host == "" {
		errs = append(errs, "exchange: host must not be empty")
	}
	if strings.ToLower(c.Mode) == "live" && c.Exchange.ApiKey == "" {
		errs = append(errs, "exchange: api_key is required in live mode")
	}
	if c.Exchange.SettleDelay.Duration < 0 {
		errs = append(errs, "exchange: settle_delay must be >= 0")
	}
	if c.Exchange.DepositBuffer < 0 {
		errs = append(errs, "exchange: deposit_buffer must be >= 0")
	}

	// Signals
	if c.Signals.Enabled && c.Signals.FeedURL == "" {
		errs = append(errs, "signals: feed_url is required when signals are enabled")
	}

	// Postgres
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
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Live reports whether real execution is enabled: the process must run in
// live mode AND the trading config must opt in to unsupervised execution.
func (c *Config) Live() bool {
	return strings.ToLower(c.Mode) == "live" && c.Trading.Unsupervised
}
