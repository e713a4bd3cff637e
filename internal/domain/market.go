package domain

import "time"

// Outcome identifies which side of a binary market a trade targets.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// MarketRecord is the canonical view of one prediction market after the raw
// API payload has been normalized. OutcomeNames and OutcomePrices are aligned
// by index; TokenIDs follows the same order when present.
type MarketRecord struct {
	MarketID      string
	Question      string
	Active        bool
	OutcomeNames  []string
	OutcomePrices []float64
	TokenIDs      []string
	EndTime       *time.Time
	Volume        float64
}

// TokenIDFor resolves the tradable instrument id for an outcome name.
// The comparison is case-insensitive on the first letter only because the
// upstream API mixes "Yes"/"YES" spellings. Returns empty string when the
// outcome or its token id is missing.
func (m MarketRecord) TokenIDFor(outcome Outcome) string {
	for i, name := range m.OutcomeNames {
		if i >= len(m.TokenIDs) {
			return ""
		}
		if equalOutcome(name, outcome) {
			return m.TokenIDs[i]
		}
	}
	return ""
}

func equalOutcome(name string, outcome Outcome) bool {
	if len(name) == 0 {
		return false
	}
	switch outcome {
	case OutcomeYes:
		return name[0] == 'Y' || name[0] == 'y'
	case OutcomeNo:
		return name[0] == 'N' || name[0] == 'n'
	}
	return false
}
