// Package app owns the application lifecycle: it wires dependencies, starts
// the sentiment feed and the trading scheduler, and tears everything down in
// reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfold/polypilot/internal/config"
	"github.com/quantfold/polypilot/internal/notify"
	"github.com/quantfold/polypilot/internal/trader"
)

// App is the root application object.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies, starts the control loop, and blocks until the
// context is cancelled. The scheduler is stopped and resources released
// before Run returns.
func (a *App) Run(ctx context.Context) error {
	live := a.cfg.Live()
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", a.cfg.Mode),
		slog.Bool("live", live),
		slog.Int("markets", len(a.cfg.Trading.Markets)))

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	defer cleanup()

	if deps.SignalFeed != nil {
		feedCtx, cancelFeed := context.WithCancel(ctx)
		defer cancelFeed()
		go func() {
			if err := deps.SignalFeed.Run(feedCtx); err != nil && feedCtx.Err() == nil {
				a.logger.Error("sentiment feed terminated", slog.String("error", err.Error()))
			}
		}()
	}

	tcfg := traderConfig(a.cfg, live)
	state := trader.NewTradingState(time.Now())
	scanner := trader.NewScanner(tcfg, deps.Gamma, deps.Signals, state, deps.PriceCache, a.logger)
	evaluator := trader.NewEvaluator(tcfg, a.logger)
	executor := trader.NewExecutor(trader.ExecutorConfig{
		SettleDelay:   a.cfg.Exchange.SettleDelay.Duration,
		DepositBuffer: a.cfg.Exchange.DepositBuffer,
	}, deps.Exchange, deps.Exchange, deps.Exchange, deps.Exchange, state, deps.TradeStore, deps.EventBus, deps.Notifier, a.logger)
	scheduler := trader.NewScheduler(tcfg, scanner, evaluator, executor, state, deps.DecisionStore, a.logger)

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("app: start scheduler: %w", err)
	}

	if err := deps.Notifier.Notify(ctx, notify.EventStartup, "polypilot started",
		fmt.Sprintf("mode=%s markets=%d", a.cfg.Mode, len(a.cfg.Trading.Markets))); err != nil {
		a.logger.Warn("startup notification failed", slog.String("error", err.Error()))
	}

	<-ctx.Done()
	scheduler.Stop()
	return ctx.Err()
}

// traderConfig maps the file configuration onto the trading-loop parameters.
func traderConfig(cfg *config.Config, live bool) trader.Config {
	t := cfg.Trading
	return trader.Config{
		Markets:                t.Markets,
		ScanInterval:           t.ScanInterval.Duration,
		Unsupervised:           live,
		MaxPositionSize:        t.MaxPositionSize,
		MinConfidenceThreshold: t.MinConfidenceThreshold,
		MaxDailyTrades:         t.MaxDailyTrades,
		MaxOpenPositions:       t.MaxOpenPositions,
		RiskLimitPerTrade:      t.RiskLimitPerTrade,
		MinExpectedValue:       t.MinExpectedValue,
		BuyThreshold:           t.BuyThreshold,
		SellThreshold:          t.SellThreshold,
		MinEdge:                t.MinEdge,
		FixedSize:              t.FixedSize,
		SimpleGates:            t.SimpleGates,
		StartHour:              t.StartHour,
		EndHour:                t.EndHour,
		FetchWorkers:           t.FetchWorkers,
	}
}
