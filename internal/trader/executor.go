package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantfold/polypilot/internal/domain"
	"github.com/quantfold/polypilot/internal/notify"
	"github.com/quantfold/polypilot/internal/platform/exchange"
)

// OrderPlacer submits orders to the trading gateway.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error)
}

// BalanceSource reports whether the settlement balance covers an amount.
type BalanceSource interface {
	CheckBalance(ctx context.Context, required float64) (exchange.BalanceResult, error)
}

// Depositor tops up the settlement balance.
type Depositor interface {
	Deposit(ctx context.Context, amount float64) (exchange.DepositResult, error)
}

// PositionSource lists the open positions held at the exchange.
type PositionSource interface {
	OpenPositions(ctx context.Context) ([]domain.Position, error)
}

// ExecStatus is the terminal state of one execution attempt.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	// ExecFailed means the order failed for a reason the deposit path does
	// not address.
	ExecFailed ExecStatus = "failed"
	// ExecFailedFinal means the one-shot deposit-and-retry path was used and
	// still did not produce an order; the decision is abandoned.
	ExecFailedFinal ExecStatus = "failed_final"
	ExecSkipped     ExecStatus = "skipped"
)

// ExecutionResult summarizes one Execute call.
type ExecutionResult struct {
	Status    ExecStatus
	OrderID   string
	Shares    float64
	Deposited bool
	Retried   bool
}

// ExecutorConfig holds the deposit-path tuning knobs.
type ExecutorConfig struct {
	// SettleDelay is how long to wait after a deposit before touching the
	// balance again.
	SettleDelay time.Duration
	// DepositBuffer is added on top of the rounded-up shortfall.
	DepositBuffer float64
}

// Executor turns an approved decision into an exchange order. Its invariant
// is that the deposit path runs at most once per decision: a balance check
// can trigger it, or an insufficient-balance rejection can, but never both,
// and a retried order is final whatever the outcome.
type Executor struct {
	cfg       ExecutorConfig
	orders    OrderPlacer
	balances  BalanceSource
	deposits  Depositor
	positions PositionSource
	state     *TradingState
	trades    domain.TradeStore // optional
	events    domain.EventBus   // optional
	notifier  *notify.Notifier  // optional
	logger    *slog.Logger
}

// NewExecutor creates an Executor. trades, events, and notifier may be nil.
func NewExecutor(cfg ExecutorConfig, orders OrderPlacer, balances BalanceSource, deposits Depositor, positions PositionSource, state *TradingState, trades domain.TradeStore, events domain.EventBus, notifier *notify.Notifier, logger *slog.Logger) *Executor {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 5 * time.Second
	}
	if cfg.DepositBuffer <= 0 {
		cfg.DepositBuffer = 2
	}
	return &Executor{
		cfg:       cfg,
		orders:    orders,
		balances:  balances,
		deposits:  deposits,
		positions: positions,
		state:     state,
		trades:    trades,
		events:    events,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "executor")),
	}
}

// Execute places the order described by the decision against the given market
// record. On success it bumps the daily counter, reconciles the position book,
// and journals the trade. Failures are published to the event bus and
// notifier before the error is returned.
func (e *Executor) Execute(ctx context.Context, decision domain.TradingDecision, rec domain.MarketRecord) (ExecutionResult, error) {
	result, err := e.execute(ctx, decision, rec)
	if err != nil {
		e.reportFailure(ctx, decision, result.Status, err)
	}
	return result, err
}

func (e *Executor) execute(ctx context.Context, decision domain.TradingDecision, rec domain.MarketRecord) (ExecutionResult, error) {
	if !decision.ShouldTrade || decision.Size <= 0 {
		return ExecutionResult{Status: ExecSkipped}, nil
	}
	if decision.Price <= 0 {
		return ExecutionResult{Status: ExecFailed},
			fmt.Errorf("executor: decision %s has non-positive price %.4f: %w",
				decision.ID, decision.Price, domain.ErrMalformedMarketData)
	}

	tokenID := rec.TokenIDFor(decision.Outcome)
	if tokenID == "" {
		return ExecutionResult{Status: ExecFailed},
			fmt.Errorf("executor: market %s outcome %s: %w",
				decision.MarketID, decision.Outcome, domain.ErrInstrumentNotFound)
	}

	// Notional USDC to instrument units, truncated to two decimals.
	shares := decimal.NewFromFloat(decision.Size).
		Div(decimal.NewFromFloat(decision.Price)).
		RoundDown(2).
		InexactFloat64()
	if shares <= 0 {
		return ExecutionResult{Status: ExecSkipped}, nil
	}

	result := ExecutionResult{Shares: shares}

	// Pre-flight balance check. An unreachable balance endpoint fails the
	// decision closed rather than risking a blind order.
	bal, err := e.balances.CheckBalance(ctx, decision.Size)
	if err != nil {
		return ExecutionResult{Status: ExecFailed}, fmt.Errorf("executor: balance check: %w", err)
	}
	if !bal.Sufficient {
		e.logger.Info("balance short of required size",
			slog.String("decision_id", decision.ID),
			slog.Float64("available", bal.Available),
			slog.Float64("required", decision.Size))
		if err := e.depositAndSettle(ctx, decision); err != nil {
			return ExecutionResult{Status: ExecFailedFinal}, err
		}
		result.Deposited = true
	}

	req := exchange.OrderRequest{
		TokenID:   tokenID,
		Side:      "BUY",
		Price:     decision.Price,
		Size:      shares,
		OrderType: "GTC",
	}

	order, err := e.orders.PlaceOrder(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			result.Status = ExecFailed
			return result, fmt.Errorf("executor: place order: %w", err)
		}
		if result.Deposited {
			// The deposit path already ran for this decision.
			result.Status = ExecFailedFinal
			return result, fmt.Errorf("executor: still insufficient after deposit: %w", err)
		}
		if err := e.depositAndSettle(ctx, decision); err != nil {
			result.Status = ExecFailedFinal
			return result, err
		}
		result.Deposited = true
		result.Retried = true

		order, err = e.orders.PlaceOrder(ctx, req)
		if err != nil {
			result.Status = ExecFailedFinal
			return result, fmt.Errorf("executor: retry after deposit: %w", err)
		}
	}

	result.Status = ExecSuccess
	result.OrderID = order.OrderID
	e.state.RecordTrade()

	e.logger.Info("order placed",
		slog.String("decision_id", decision.ID),
		slog.String("market_id", decision.MarketID),
		slog.String("order_id", order.OrderID),
		slog.Float64("shares", shares),
		slog.Float64("price", decision.Price),
		slog.Bool("retried", result.Retried))

	if err := e.ReloadPositions(ctx); err != nil {
		e.logger.Warn("position reload after trade failed", slog.String("error", err.Error()))
	}
	e.journalTrade(ctx, decision, tokenID, order.OrderID, shares, result.Retried)

	if e.notifier != nil {
		msg := fmt.Sprintf("market %s %s: %.2f shares at %.3f (order %s)",
			decision.MarketID, decision.Outcome, shares, decision.Price, order.OrderID)
		if err := e.notifier.Notify(ctx, notify.EventTradeExecuted, "Trade executed", msg); err != nil {
			e.logger.Warn("trade notification failed", slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// reportFailure publishes a failed execution to the event bus and notifier.
// Both are best-effort.
func (e *Executor) reportFailure(ctx context.Context, decision domain.TradingDecision, status ExecStatus, execErr error) {
	if e.events != nil {
		payload, err := json.Marshal(map[string]string{
			"decision_id": decision.ID,
			"market_id":   decision.MarketID,
			"status":      string(status),
			"error":       execErr.Error(),
		})
		if err == nil {
			err = e.events.Publish(ctx, "trade.failed", payload)
		}
		if err != nil {
			e.logger.Warn("failure event publish failed", slog.String("error", err.Error()))
		}
	}
	if e.notifier != nil {
		msg := fmt.Sprintf("decision %s on market %s: %v", decision.ID, decision.MarketID, execErr)
		if err := e.notifier.Notify(ctx, notify.EventTradeFailed, "Trade failed", msg); err != nil {
			e.logger.Warn("failure notification failed", slog.String("error", err.Error()))
		}
	}
}

// depositAndSettle runs the one-shot top-up: deposit the rounded-up shortfall
// plus buffer, then wait out the settlement delay.
func (e *Executor) depositAndSettle(ctx context.Context, decision domain.TradingDecision) error {
	amount := math.Ceil(decision.Size) + e.cfg.DepositBuffer

	e.logger.Info("depositing funds",
		slog.String("decision_id", decision.ID),
		slog.Float64("amount", amount))

	dep, err := e.deposits.Deposit(ctx, amount)
	if err != nil {
		return fmt.Errorf("executor: deposit: %w", err)
	}
	e.logger.Info("deposit submitted",
		slog.String("decision_id", decision.ID),
		slog.String("tx", dep.TransactionHash))
	if e.notifier != nil {
		msg := fmt.Sprintf("topped up %.2f USDC for decision %s (tx %s)", amount, decision.ID, dep.TransactionHash)
		if err := e.notifier.Notify(ctx, notify.EventDeposit, "Deposit submitted", msg); err != nil {
			e.logger.Warn("deposit notification failed", slog.String("error", err.Error()))
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.SettleDelay):
	}
	return nil
}

// ReloadPositions replaces the local position book with the exchange's view.
func (e *Executor) ReloadPositions(ctx context.Context) error {
	positions, err := e.positions.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("executor: reload positions: %w", err)
	}
	e.state.ReplacePositions(positions)
	e.logger.Debug("position book reloaded", slog.Int("open", len(positions)))
	return nil
}

// journalTrade persists and publishes the executed trade; both sinks are
// best-effort.
func (e *Executor) journalTrade(ctx context.Context, decision domain.TradingDecision, tokenID, orderID string, shares float64, retried bool) {
	rec := domain.TradeRecord{
		ID:         uuid.New().String(),
		DecisionID: decision.ID,
		MarketID:   decision.MarketID,
		TokenID:    tokenID,
		Outcome:    decision.Outcome,
		OrderID:    orderID,
		Notional:   decision.Size,
		Shares:     shares,
		Price:      decision.Price,
		Retried:    retried,
		CreatedAt:  time.Now().UTC(),
	}

	if e.trades != nil {
		if err := e.trades.Insert(ctx, rec); err != nil {
			e.logger.Warn("trade journal insert failed", slog.String("error", err.Error()))
		}
	}
	if e.events != nil {
		payload, err := json.Marshal(rec)
		if err == nil {
			err = e.events.Publish(ctx, "trade.executed", payload)
		}
		if err != nil {
			e.logger.Warn("trade event publish failed", slog.String("error", err.Error()))
		}
	}
}
