package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() should validate, got: %v", err)
	}
	if cfg.Live() {
		t.Error("defaults must not enable live execution")
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Trading.BuyThreshold = 0.95
	cfg.Trading.SellThreshold = 0.05
	cfg.Trading.MaxDailyTrades = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	msg := err.Error()
	for _, want := range []string{
		"unknown mode",
		"buy_threshold must be below sell_threshold",
		"max_daily_trades",
		"redis: addr",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateLiveModeRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "live"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("live mode without markets and api key must fail validation")
	}
	msg := err.Error()
	if !strings.Contains(msg, "markets must not be empty") {
		t.Errorf("error missing markets requirement:\n%s", msg)
	}
	if !strings.Contains(msg, "api_key is required") {
		t.Errorf("error missing api_key requirement:\n%s", msg)
	}

	cfg.Trading.Markets = []string{"0xabc"}
	cfg.Exchange.ApiKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestLiveRequiresUnsupervised(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "live"

	if cfg.Live() {
		t.Error("live mode alone must not enable execution")
	}
	cfg.Trading.Unsupervised = true
	if !cfg.Live() {
		t.Error("live mode with unsupervised must enable execution")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode = "live"

[trading]
markets = ["0xabc", "0xdef"]
scan_interval = "30s"
max_position_size = 50.0

[exchange]
api_key = "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != "live" {
		t.Errorf("Mode = %q, want live", cfg.Mode)
	}
	if len(cfg.Trading.Markets) != 2 {
		t.Errorf("Markets = %v, want 2 entries", cfg.Trading.Markets)
	}
	if cfg.Trading.ScanInterval.Duration != 30*time.Second {
		t.Errorf("ScanInterval = %v, want 30s", cfg.Trading.ScanInterval.Duration)
	}
	if cfg.Trading.MaxPositionSize != 50 {
		t.Errorf("MaxPositionSize = %v, want 50", cfg.Trading.MaxPositionSize)
	}
	// Untouched fields keep their defaults.
	if cfg.Trading.BuyThreshold != 0.05 {
		t.Errorf("BuyThreshold = %v, want default 0.05", cfg.Trading.BuyThreshold)
	}
	if cfg.Gamma.Host == "" {
		t.Error("Gamma.Host default missing after load")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[trading]
max_daily_trades = 3
`)

	t.Setenv("POLYPILOT_TRADING_MAX_DAILY_TRADES", "7")
	t.Setenv("POLYPILOT_TRADING_MARKETS", "0xaa, 0xbb")
	t.Setenv("POLYPILOT_EXCHANGE_API_KEY", "env-secret")
	t.Setenv("POLYPILOT_TRADING_SCAN_INTERVAL", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Trading.MaxDailyTrades != 7 {
		t.Errorf("MaxDailyTrades = %d, want env override 7", cfg.Trading.MaxDailyTrades)
	}
	if len(cfg.Trading.Markets) != 2 || cfg.Trading.Markets[1] != "0xbb" {
		t.Errorf("Markets = %v, want [0xaa 0xbb]", cfg.Trading.Markets)
	}
	if cfg.Exchange.ApiKey != "env-secret" {
		t.Errorf("ApiKey = %q, want env-secret", cfg.Exchange.ApiKey)
	}
	if cfg.Trading.ScanInterval.Duration != 90*time.Second {
		t.Errorf("ScanInterval = %v, want 90s", cfg.Trading.ScanInterval.Duration)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load() on missing file = nil, want error")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Exchange.ApiKey = "api-secret"
	cfg.Postgres.Password = "pg-secret"
	cfg.Postgres.DSN = "postgres://u:p@host/db"
	cfg.Redis.Password = "redis-secret"
	cfg.Notify.TelegramToken = "tg-secret"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"exchange api key":  red.Exchange.ApiKey,
		"postgres password": red.Postgres.Password,
		"postgres dsn":      red.Postgres.DSN,
		"redis password":    red.Redis.Password,
		"telegram token":    red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// Original is untouched.
	if cfg.Exchange.ApiKey != "api-secret" {
		t.Error("redaction mutated the source config")
	}
}
