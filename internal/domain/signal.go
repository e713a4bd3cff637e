package domain

import "time"

// SignalDirection says which outcome a sentiment item supports.
type SignalDirection string

const (
	SignalBullish SignalDirection = "bullish" // supports YES
	SignalBearish SignalDirection = "bearish" // supports NO
	SignalNeutral SignalDirection = "neutral"
)

// SignalItem is one piece of external evidence about a market question.
type SignalItem struct {
	Source     string
	Direction  SignalDirection
	Confidence float64 // in [0,1]
	Summary    string
	ObservedAt time.Time
}

// SignalBundle groups the signal items known for a market question at scan
// time. An empty bundle means no external evidence is available.
type SignalBundle struct {
	Question string
	Items    []SignalItem
}

// Empty reports whether the bundle carries no items.
func (b SignalBundle) Empty() bool {
	return len(b.Items) == 0
}
