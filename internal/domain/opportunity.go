package domain

// MarketOpportunity is a trading candidate produced by the scanner. It is
// transient: built fresh each scan tick and discarded after evaluation.
type MarketOpportunity struct {
	MarketID             string
	Question             string
	Outcome              Outcome
	CurrentPrice         float64 // in [0,1]
	PredictedProbability float64 // in [0,1]
	Confidence           float64 // in [0,1]
	ExpectedValue        float64 // USDC
	RiskScore            float64 // 1 - Confidence
	Signals              []string
}

// Edge is the absolute distance between the predicted probability and the
// current price.
func (o MarketOpportunity) Edge() float64 {
	e := o.PredictedProbability - o.CurrentPrice
	if e < 0 {
		return -e
	}
	return e
}

// TradingDecision is the evaluator's verdict on one opportunity.
// Size is a notional amount in USDC; it is zero whenever ShouldTrade is false.
type TradingDecision struct {
	ID          string
	MarketID    string
	Outcome     Outcome
	Size        float64
	Price       float64
	Confidence  float64
	ShouldTrade bool
	Reasoning   string
}
