package exchange

import (
	"encoding/json"
	"strings"

	"github.com/quantfold/polypilot/internal/domain"
)

// OrderRequest is the payload accepted by the order-placement capability.
// Size is in instrument units (shares), not notional currency.
type OrderRequest struct {
	TokenID   string  `json:"tokenId"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	OrderType string  `json:"orderType"`
}

// OrderResult is the structured outcome of an order submission.
type OrderResult struct {
	Success bool
	OrderID string
}

// BalanceResult reports whether the settlement-currency balance covers a
// required amount.
type BalanceResult struct {
	Sufficient bool
	Available  float64
}

// DepositResult is the outcome of a top-up request.
type DepositResult struct {
	Success         bool
	TransactionHash string
}

// apiOrderResult is the wire shape of an order response.
type apiOrderResult struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"orderId"`
	ErrorCode string `json:"errorCode"`
	ErrorMsg  string `json:"error"`
}

// apiBalanceResult is the wire shape of a balance response. The balance
// itself arrives as a decimal string.
type apiBalanceResult struct {
	HasEnoughBalance bool   `json:"hasEnoughBalance"`
	USDCBalance      string `json:"usdcBalance"`
}

// apiDepositResult is the wire shape of a deposit response.
type apiDepositResult struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	ErrorMsg        string `json:"error"`
}

// apiPosition is the wire shape of one open position.
type apiPosition struct {
	MarketID string      `json:"marketId"`
	TokenID  string      `json:"tokenId"`
	Outcome  string      `json:"outcome"`
	Size     json.Number `json:"size"`
	AvgPrice json.Number `json:"avgPrice"`
}

func (p *apiPosition) toDomain() domain.Position {
	size, _ := p.Size.Float64()
	avg, _ := p.AvgPrice.Float64()
	outcome := domain.OutcomeYes
	if strings.EqualFold(p.Outcome, "no") {
		outcome = domain.OutcomeNo
	}
	return domain.Position{
		MarketID: p.MarketID,
		TokenID:  p.TokenID,
		Outcome:  outcome,
		Size:     size,
		AvgPrice: avg,
	}
}

// classifyOrderError maps a structured API error code (with a legacy
// message-text fallback for older gateway versions) onto a domain sentinel.
// This is the only place error text is inspected; everything downstream keys
// off errors.Is.
func classifyOrderError(code, msg string) error {
	switch code {
	case "insufficient_balance", "not_enough_balance", "insufficient_allowance":
		return domain.ErrInsufficientBalance
	case "instrument_not_found", "unknown_token":
		return domain.ErrInstrumentNotFound
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "not enough balance") || strings.Contains(lower, "allowance") {
		return domain.ErrInsufficientBalance
	}
	return domain.ErrOrderRejected
}
