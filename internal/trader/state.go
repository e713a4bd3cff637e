package trader

import (
	"sync"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
)

// TradingState is the single shared mutable state of the control loop: the
// open position book and the daily trade counter. One mutex guards both so a
// counter check and the position snapshot it gates can never interleave with
// a concurrent reset.
type TradingState struct {
	mu         sync.Mutex
	positions  map[string]domain.Position // keyed by market id
	tradeCount int
	resetDate  string // UTC date the counter belongs to, "2006-01-02"
}

// NewTradingState returns an empty state anchored to the given time's UTC date.
func NewTradingState(now time.Time) *TradingState {
	return &TradingState{
		positions: make(map[string]domain.Position),
		resetDate: now.UTC().Format("2006-01-02"),
	}
}

// ResetIfNewDay zeroes the trade counter when the UTC date has changed since
// the last reset. Returns true when a reset happened. Calling it repeatedly
// within the same day is a no-op, so the reset fires at most once per date
// change no matter how many ticks observe it.
func (s *TradingState) ResetIfNewDay(now time.Time) bool {
	today := now.UTC().Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()
	if today == s.resetDate {
		return false
	}
	s.resetDate = today
	s.tradeCount = 0
	return true
}

// TradesToday returns the current daily trade count.
func (s *TradingState) TradesToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tradeCount
}

// RecordTrade increments the daily trade counter.
func (s *TradingState) RecordTrade() {
	s.mu.Lock()
	s.tradeCount++
	s.mu.Unlock()
}

// HasPosition reports whether an open position exists for the market.
func (s *TradingState) HasPosition(marketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.positions[marketID]
	return ok
}

// OpenPositionCount returns the number of open positions.
func (s *TradingState) OpenPositionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

// Positions returns a copy of the position book. Mutating the result does not
// affect the state.
func (s *TradingState) Positions() map[string]domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Position, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out
}

// ReplacePositions swaps the position book wholesale with the exchange's view.
func (s *TradingState) ReplacePositions(positions []domain.Position) {
	book := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		book[p.MarketID] = p
	}

	s.mu.Lock()
	s.positions = book
	s.mu.Unlock()
}
