package domain

// Position is an open holding in one market. Positions are owned by the
// trading state: they are replaced wholesale on reconciliation with the
// exchange and are read-only everywhere else.
type Position struct {
	MarketID string
	TokenID  string
	Outcome  Outcome
	Size     float64 // shares
	AvgPrice float64
}
