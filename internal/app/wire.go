package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quantfold/polypilot/internal/cache/redis"
	"github.com/quantfold/polypilot/internal/config"
	"github.com/quantfold/polypilot/internal/domain"
	"github.com/quantfold/polypilot/internal/notify"
	"github.com/quantfold/polypilot/internal/platform/exchange"
	"github.com/quantfold/polypilot/internal/platform/gamma"
	"github.com/quantfold/polypilot/internal/signal"
	"github.com/quantfold/polypilot/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the trading loop needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Gamma    *gamma.Client
	Exchange *exchange.Client

	DecisionStore domain.DecisionStore
	TradeStore    domain.TradeStore
	PriceCache    domain.PriceCache
	EventBus      domain.EventBus

	Signals signal.Source
	// SignalFeed is non-nil when the websocket sentiment feed is enabled;
	// the app owns its Run goroutine.
	SignalFeed *signal.FeedSource

	Notifier *notify.Notifier
}

// Wire constructs all concrete implementations from the configuration. The
// returned cleanup releases connections in reverse construction order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

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

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.DecisionStore = postgres.NewDecisionStore(pgClient.Pool())
	deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())

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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)

	deps.Gamma = gamma.NewClient(gamma.ClientConfig{
		Host:           cfg.Gamma.Host,
		RequestTimeout: cfg.Gamma.RequestTimeout.Duration,
		RateLimitRPS:   cfg.Gamma.RateLimitRPS,
		MaxRetries:     cfg.Gamma.MaxRetries,
	})
	deps.Exchange = exchange.NewClient(exchange.ClientConfig{
		Host:           cfg.Exchange.Host,
		ApiKey:         cfg.Exchange.ApiKey,
		RequestTimeout: cfg.Exchange.RequestTimeout.Duration,
	})

	if cfg.Signals.Enabled {
		feed := signal.NewFeedSource(signal.FeedConfig{
			URL:              cfg.Signals.FeedURL,
			ReconnectBackoff: cfg.Signals.ReconnectBackoff.Duration,
			MaxAge:           cfg.Signals.MaxAge.Duration,
		}, logger)
		deps.Signals = feed
		deps.SignalFeed = feed
	} else {
		deps.Signals = signal.NoopSource{}
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
