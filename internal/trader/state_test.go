package trader

import (
	"sync"
	"testing"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func TestResetIfNewDay(t *testing.T) {
	day1 := testTime(t)
	state := NewTradingState(day1)

	state.RecordTrade()
	state.RecordTrade()

	if state.ResetIfNewDay(day1.Add(2 * time.Hour)) {
		t.Error("same-day call must not reset")
	}
	if got := state.TradesToday(); got != 2 {
		t.Errorf("TradesToday = %d, want 2", got)
	}

	day2 := day1.Add(24 * time.Hour)
	if !state.ResetIfNewDay(day2) {
		t.Error("date change must reset")
	}
	if got := state.TradesToday(); got != 0 {
		t.Errorf("TradesToday after reset = %d, want 0", got)
	}

	// A second observer of the same date change is a no-op.
	state.RecordTrade()
	if state.ResetIfNewDay(day2.Add(time.Minute)) {
		t.Error("reset must fire at most once per date change")
	}
	if got := state.TradesToday(); got != 1 {
		t.Errorf("TradesToday = %d, want 1", got)
	}
}

func TestReplacePositionsIsWholesale(t *testing.T) {
	state := NewTradingState(testTime(t))

	state.ReplacePositions([]domain.Position{
		{MarketID: "0xaa", TokenID: "a", Outcome: domain.OutcomeYes, Size: 5},
		{MarketID: "0xbb", TokenID: "b", Outcome: domain.OutcomeNo, Size: 3},
	})
	if !state.HasPosition("0xaa") || !state.HasPosition("0xbb") {
		t.Fatal("positions missing after replace")
	}
	if got := state.OpenPositionCount(); got != 2 {
		t.Errorf("OpenPositionCount = %d, want 2", got)
	}

	state.ReplacePositions([]domain.Position{
		{MarketID: "0xcc", TokenID: "c", Outcome: domain.OutcomeYes, Size: 1},
	})
	if state.HasPosition("0xaa") {
		t.Error("stale position survived wholesale replace")
	}
	if got := state.OpenPositionCount(); got != 1 {
		t.Errorf("OpenPositionCount = %d, want 1", got)
	}
}

func TestPositionsReturnsCopy(t *testing.T) {
	state := NewTradingState(testTime(t))
	state.ReplacePositions([]domain.Position{{MarketID: "0xaa", Size: 5}})

	snap := state.Positions()
	delete(snap, "0xaa")

	if !state.HasPosition("0xaa") {
		t.Error("mutating the snapshot leaked into the state")
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	state := NewTradingState(testTime(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.RecordTrade()
			_ = state.TradesToday()
			_ = state.OpenPositionCount()
			state.ReplacePositions([]domain.Position{{MarketID: "0xaa", Size: 1}})
			_ = state.HasPosition("0xaa")
		}()
	}
	wg.Wait()

	if got := state.TradesToday(); got != 50 {
		t.Errorf("TradesToday = %d, want 50", got)
	}
}
