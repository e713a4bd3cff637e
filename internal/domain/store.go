package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for journal queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// DecisionRecord is one journaled evaluation outcome, including rejected and
// dry-run decisions.
type DecisionRecord struct {
	ID          string
	MarketID    string
	Outcome     Outcome
	Size        float64
	Price       float64
	Confidence  float64
	ShouldTrade bool
	Executed    bool
	Reasoning   string
	CreatedAt   time.Time
}

// DecisionStore persists the decision journal.
type DecisionStore interface {
	Insert(ctx context.Context, rec DecisionRecord) error
	ListRecent(ctx context.Context, opts ListOpts) ([]DecisionRecord, error)
}

// TradeRecord is one executed order.
type TradeRecord struct {
	ID         string
	DecisionID string
	MarketID   string
	TokenID    string
	Outcome    Outcome
	OrderID    string
	Notional   float64 // USDC
	Shares     float64
	Price      float64
	Retried    bool // placed via the deposit-and-retry path
	CreatedAt  time.Time
}

// TradeStore persists executed trades.
type TradeStore interface {
	Insert(ctx context.Context, rec TradeRecord) error
	ListRecent(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
