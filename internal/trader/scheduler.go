package trader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
)

// Scheduler drives the control loop: one tick per scan interval, each tick
// running scan, evaluate, and execute for the whole market universe. Ticks
// never overlap; a tick that outlives its interval causes the next one to be
// skipped with a warning.
type Scheduler struct {
	cfg       Config
	scanner   *Scanner
	evaluator *Evaluator
	executor  *Executor
	state     *TradingState
	decisions domain.DecisionStore // optional
	logger    *slog.Logger

	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	inTick  atomic.Bool
}

// NewScheduler creates a Scheduler. decisions may be nil when no journal is
// configured.
func NewScheduler(cfg Config, scanner *Scanner, evaluator *Evaluator, executor *Executor, state *TradingState, decisions domain.DecisionStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		scanner:   scanner,
		evaluator: evaluator,
		executor:  executor,
		state:     state,
		decisions: decisions,
		logger:    logger.With(slog.String("component", "scheduler")),
		now:       time.Now,
	}
}

// Start reconciles the position book with the exchange and launches the tick
// loop. A failed reconciliation aborts startup: trading against an unknown
// position book is worse than not starting. Starting an already-running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("start called while already running")
		return nil
	}

	if err := s.executor.ReloadPositions(ctx); err != nil {
		return fmt.Errorf("scheduler: startup reconciliation: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(runCtx)

	s.logger.Info("scheduler started",
		slog.Duration("interval", s.cfg.ScanInterval),
		slog.Bool("unsupervised", s.cfg.Unsupervised),
		slog.Int("markets", len(s.cfg.Markets)))
	return nil
}

// Stop cancels the tick timer and waits for any in-flight tick to finish on
// its own; it never aborts an execution mid-order. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	<-s.done
	s.running = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.inTick.CompareAndSwap(false, true) {
				s.logger.Warn("previous tick still running, skipping")
				continue
			}
			// The tick gets its own deadline instead of the run context so
			// shutdown lets it complete rather than cancelling mid-order.
			tickCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanInterval)
			s.tick(tickCtx)
			cancel()
			s.inTick.Store(false)
		}
	}
}

// tick runs one full scan-evaluate-execute pass.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()

	if s.state.ResetIfNewDay(now) {
		s.logger.Info("daily trade counter reset", slog.String("date", now.Format("2006-01-02")))
	}

	if s.state.TradesToday() >= s.cfg.MaxDailyTrades {
		s.logger.Debug("daily trade cap reached", slog.Int("trades", s.state.TradesToday()))
		return
	}
	if s.state.OpenPositionCount() >= s.cfg.MaxOpenPositions {
		s.logger.Debug("open position cap reached", slog.Int("open", s.state.OpenPositionCount()))
		return
	}
	if !s.withinTradingHours(now) {
		s.logger.Debug("outside trading hours", slog.Int("hour", now.Hour()))
		return
	}

	scan := s.scanner.FindOpportunities(ctx)
	for _, opp := range scan.Opportunities {
		if s.state.TradesToday() >= s.cfg.MaxDailyTrades {
			s.logger.Info("daily trade cap reached mid-tick")
			break
		}
		if s.state.OpenPositionCount() >= s.cfg.MaxOpenPositions {
			s.logger.Info("open position cap reached mid-tick")
			break
		}

		decision := s.evaluator.Evaluate(opp)
		executed := false

		switch {
		case !decision.ShouldTrade:
			s.logger.Debug("decision rejected",
				slog.String("market_id", decision.MarketID),
				slog.String("reasoning", decision.Reasoning))

		case !s.cfg.Unsupervised:
			s.logger.Info("would place order",
				slog.String("decision_id", decision.ID),
				slog.String("market_id", decision.MarketID),
				slog.String("outcome", string(decision.Outcome)),
				slog.Float64("size", decision.Size),
				slog.Float64("price", decision.Price))

		default:
			rec, ok := scan.Records[opp.MarketID]
			if !ok {
				s.logger.Warn("market record missing for decision", slog.String("market_id", opp.MarketID))
				break
			}
			res, err := s.executor.Execute(ctx, decision, rec)
			if err != nil {
				s.logger.Error("execution failed",
					slog.String("decision_id", decision.ID),
					slog.String("status", string(res.Status)),
					slog.String("error", err.Error()))
			}
			executed = res.Status == ExecSuccess
		}

		s.journalDecision(ctx, decision, executed)
	}
}

// withinTradingHours checks the optional UTC trading window. Both bounds at
// zero disables the window; a window wrapping midnight is supported.
func (s *Scheduler) withinTradingHours(now time.Time) bool {
	if s.cfg.StartHour == 0 && s.cfg.EndHour == 0 {
		return true
	}
	h := now.Hour()
	if s.cfg.StartHour <= s.cfg.EndHour {
		return h >= s.cfg.StartHour && h < s.cfg.EndHour
	}
	return h >= s.cfg.StartHour || h < s.cfg.EndHour
}

func (s *Scheduler) journalDecision(ctx context.Context, decision domain.TradingDecision, executed bool) {
	if s.decisions == nil {
		return
	}
	rec := domain.DecisionRecord{
		ID:          decision.ID,
		MarketID:    decision.MarketID,
		Outcome:     decision.Outcome,
		Size:        decision.Size,
		Price:       decision.Price,
		Confidence:  decision.Confidence,
		ShouldTrade: decision.ShouldTrade,
		Executed:    executed,
		Reasoning:   decision.Reasoning,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.decisions.Insert(ctx, rec); err != nil {
		s.logger.Warn("decision journal insert failed", slog.String("error", err.Error()))
	}
}
