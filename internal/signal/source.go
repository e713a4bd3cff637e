// Package signal supplies optional external sentiment for market questions.
// A Source may be absent entirely; scanning works without one.
package signal

import (
	"context"

	"github.com/quantfold/polypilot/internal/domain"
)

// Source supplies external evidence about a market question. Implementations
// must treat missing evidence as an empty bundle, not an error.
type Source interface {
	SignalFor(ctx context.Context, question string) (domain.SignalBundle, error)
}

// NoopSource is the always-empty Source used when sentiment is disabled.
type NoopSource struct{}

// SignalFor returns an empty bundle for any question.
func (NoopSource) SignalFor(_ context.Context, question string) (domain.SignalBundle, error) {
	return domain.SignalBundle{Question: question}, nil
}

var _ Source = NoopSource{}
