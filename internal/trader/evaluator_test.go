package trader

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/quantfold/polypilot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() Config {
	return Config{
		Markets:                []string{"0xabc"},
		MaxPositionSize:        100,
		MinConfidenceThreshold: 0.7,
		MaxDailyTrades:         10,
		MaxOpenPositions:       5,
		RiskLimitPerTrade:      25,
		MinExpectedValue:       5,
		BuyThreshold:           0.05,
		SellThreshold:          0.95,
		MinEdge:                0.01,
		FetchWorkers:           2,
	}
}

func opportunity(price, predicted, confidence float64) domain.MarketOpportunity {
	return domain.MarketOpportunity{
		MarketID:             "0xabc",
		Question:             "Will it happen?",
		Outcome:              domain.OutcomeYes,
		CurrentPrice:         price,
		PredictedProbability: predicted,
		Confidence:           confidence,
		ExpectedValue:        (predicted - price) * 100 * confidence,
		RiskScore:            1 - confidence,
	}
}

func TestEvaluateApproves(t *testing.T) {
	e := NewEvaluator(baseConfig(), testLogger())

	// edge 0.2 at price 0.3: quarter-Kelly of 100 is 7, final confidence
	// 0.9025, EV 19.
	got := e.Evaluate(opportunity(0.3, 0.5, 0.95))

	if !got.ShouldTrade {
		t.Fatalf("ShouldTrade = false, reasoning %q", got.Reasoning)
	}
	if got.Size != 7 {
		t.Errorf("Size = %v, want 7", got.Size)
	}
	if got.ID == "" {
		t.Error("decision id should be set")
	}
	if got.Price != 0.3 {
		t.Errorf("Price = %v, want 0.3", got.Price)
	}
}

func TestEvaluateRejections(t *testing.T) {
	tests := []struct {
		name string
		opp  domain.MarketOpportunity
	}{
		{
			// Quarter-Kelly of a 0.01 edge floors to zero.
			name: "tiny edge sizes to zero",
			opp:  opportunity(0.04, 0.05, 0.8),
		},
		{
			// finalConfidence = 0.75 * 0.75 = 0.5625 < 0.7.
			name: "final confidence below threshold",
			opp:  opportunity(0.3, 0.5, 0.75),
		},
		{
			name: "price of one leaves no payout",
			opp:  opportunity(1.0, 0.5, 0.95),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEvaluator(baseConfig(), testLogger()).Evaluate(tt.opp)
			if got.ShouldTrade {
				t.Errorf("ShouldTrade = true, want rejection (%s)", got.Reasoning)
			}
			if got.Size != 0 {
				t.Errorf("Size = %v, want 0 on rejection", got.Size)
			}
			if got.Reasoning == "" {
				t.Error("rejection must carry reasoning")
			}
		})
	}
}

func TestEvaluateSizeCaps(t *testing.T) {
	cfg := baseConfig()
	e := NewEvaluator(cfg, testLogger())

	// Extreme inputs must never breach the risk limit or the quarter of the
	// maximum position.
	prices := []float64{0.01, 0.1, 0.5, 0.9, 0.99, 1.0}
	predictions := []float64{0.0, 0.2, 0.5, 0.95, 1.0}
	for _, price := range prices {
		for _, pred := range predictions {
			got := e.Evaluate(opportunity(price, pred, 0.99))
			cap := math.Min(cfg.RiskLimitPerTrade, conservativeFactor*cfg.MaxPositionSize)
			if got.ShouldTrade && got.Size > cap {
				t.Errorf("price=%v pred=%v: Size = %v exceeds cap %v", price, pred, got.Size, cap)
			}
		}
	}
}

func TestEvaluateSizeMonotonicInEdge(t *testing.T) {
	e := NewEvaluator(baseConfig(), testLogger())

	prev := -1.0
	for _, pred := range []float64{0.35, 0.45, 0.55, 0.65, 0.75} {
		got := e.Evaluate(opportunity(0.3, pred, 0.95))
		if got.Size < prev {
			t.Fatalf("size decreased as edge grew: %v after %v", got.Size, prev)
		}
		prev = got.Size
	}
}

func TestEvaluateFixedSize(t *testing.T) {
	cfg := baseConfig()
	cfg.FixedSize = 10
	cfg.SimpleGates = true
	e := NewEvaluator(cfg, testLogger())

	got := e.Evaluate(opportunity(0.04, 0.05, 0.8))
	if !got.ShouldTrade {
		t.Fatalf("ShouldTrade = false, reasoning %q", got.Reasoning)
	}
	if got.Size != 10 {
		t.Errorf("Size = %v, want fixed 10", got.Size)
	}
}

func TestEvaluateSimpleGates(t *testing.T) {
	cfg := baseConfig()
	cfg.FixedSize = 10
	cfg.SimpleGates = true
	e := NewEvaluator(cfg, testLogger())

	if got := e.Evaluate(opportunity(0.04, 0.05, 0.65)); got.ShouldTrade {
		t.Error("confidence below 0.7 must fail simple gates")
	}
	if got := e.Evaluate(opportunity(0.04, 0.05, 0.71)); !got.ShouldTrade {
		t.Errorf("confidence above 0.7 must pass simple gates: %s", got.Reasoning)
	}
}
