package domain

import (
	"context"
	"time"
)

// PriceCache exposes the latest extracted per-outcome prices so operators and
// other processes can inspect live scan state.
type PriceCache interface {
	SetPrice(ctx context.Context, marketID string, outcome Outcome, price float64, ts time.Time) error
	GetPrice(ctx context.Context, marketID string, outcome Outcome) (float64, time.Time, error)
}

// EventBus publishes trading lifecycle events to a durable stream.
type EventBus interface {
	Publish(ctx context.Context, event string, payload []byte) error
}
