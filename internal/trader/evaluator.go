package trader

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/quantfold/polypilot/internal/domain"
)

// conservativeFactor scales the Kelly fraction down to a quarter-Kelly stake.
const conservativeFactor = 0.25

// simpleGateConfidence is the flat confidence floor used when simple gates
// are enabled.
const simpleGateConfidence = 0.7

// Evaluator sizes an opportunity and decides whether it clears the trading
// gates. Evaluation is pure: same opportunity and config, same decision
// (modulo the generated id).
type Evaluator struct {
	cfg    Config
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg Config, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "evaluator")),
	}
}

// Evaluate produces the trading decision for one opportunity. The returned
// decision always carries a reasoning string naming the sizing inputs and,
// when rejected, the gate that failed.
func (e *Evaluator) Evaluate(opp domain.MarketOpportunity) domain.TradingDecision {
	size := e.positionSize(opp)
	finalConfidence := opp.Confidence * (1 - opp.RiskScore)

	shouldTrade, gate := e.applyGates(opp, size, finalConfidence)

	reasoning := fmt.Sprintf("edge=%.3f price=%.3f confidence=%.3f final_confidence=%.3f ev=%.2f size=%.2f",
		opp.Edge(), opp.CurrentPrice, opp.Confidence, finalConfidence, opp.ExpectedValue, size)
	if !shouldTrade {
		reasoning += "; rejected: " + gate
		size = 0
	}

	decision := domain.TradingDecision{
		ID:          uuid.New().String(),
		MarketID:    opp.MarketID,
		Outcome:     opp.Outcome,
		Size:        size,
		Price:       opp.CurrentPrice,
		Confidence:  opp.Confidence,
		ShouldTrade: shouldTrade,
		Reasoning:   reasoning,
	}

	e.logger.Debug("opportunity evaluated",
		slog.String("decision_id", decision.ID),
		slog.String("market_id", decision.MarketID),
		slog.Bool("should_trade", decision.ShouldTrade),
		slog.Float64("size", decision.Size))
	return decision
}

// positionSize computes the notional stake in USDC. A configured fixed size
// bypasses Kelly entirely; otherwise the stake is a quarter-Kelly fraction of
// the maximum position, capped by the per-trade risk limit and floored to
// whole currency units.
func (e *Evaluator) positionSize(opp domain.MarketOpportunity) float64 {
	if e.cfg.FixedSize > 0 {
		return e.cfg.FixedSize
	}

	kelly := kellyFraction(opp.Edge(), opp.CurrentPrice)
	raw := kelly * conservativeFactor * e.cfg.MaxPositionSize
	if raw > e.cfg.RiskLimitPerTrade {
		raw = e.cfg.RiskLimitPerTrade
	}
	return math.Floor(raw)
}

// kellyFraction is edge over the payout odds (1 - price), clamped to [0,1].
// A price of 1 leaves no payout, so the fraction is zero.
func kellyFraction(edge, price float64) float64 {
	if price >= 1 {
		return 0
	}
	f := edge / (1 - price)
	return clamp01(f)
}

// applyGates runs the configured gate set and names the first failure.
func (e *Evaluator) applyGates(opp domain.MarketOpportunity, size, finalConfidence float64) (bool, string) {
	if size <= 0 {
		return false, "size is zero"
	}

	if e.cfg.SimpleGates {
		if opp.Confidence < simpleGateConfidence {
			return false, fmt.Sprintf("confidence %.3f below %.2f", opp.Confidence, simpleGateConfidence)
		}
		return true, ""
	}

	if finalConfidence < e.cfg.MinConfidenceThreshold {
		return false, fmt.Sprintf("final confidence %.3f below threshold %.3f", finalConfidence, e.cfg.MinConfidenceThreshold)
	}
	if opp.ExpectedValue <= e.cfg.MinExpectedValue {
		return false, fmt.Sprintf("expected value %.2f not above %.2f", opp.ExpectedValue, e.cfg.MinExpectedValue)
	}
	return true, ""
}
