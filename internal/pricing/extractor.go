// Package pricing derives a canonical price-per-outcome vector from the
// heterogeneous pricing fields the market-data API may return. The raw
// payload is resolved into a tagged Source exactly once; nothing downstream
// re-parses JSON strings.
package pricing

import (
	"encoding/json"
	"strconv"
)

// SourceKind tags which pricing field produced the resolved prices.
type SourceKind string

const (
	// SourceExplicit means the per-outcome price array was present and parseable.
	SourceExplicit SourceKind = "explicit"
	// SourceMaker means prices came from the market-maker data array.
	SourceMaker SourceKind = "maker"
	// SourceMidpoint means a bid/ask midpoint was used as a single fallback.
	SourceMidpoint SourceKind = "midpoint"
	// SourceDefault means nothing parsed and every outcome defaults to 0.5.
	SourceDefault SourceKind = "default"
)

// PriceData carries the raw, possibly-absent pricing fields of one market
// payload. OutcomePrices and MakerData are JSON-encoded string arrays as
// delivered by the API (e.g. "[\"0.04\",\"0.96\"]").
type PriceData struct {
	OutcomePrices string
	MakerData     string
	BestBid       *float64
	BestAsk       *float64
}

// Source is the resolved pricing variant.
type Source struct {
	Kind   SourceKind
	Prices []float64 // populated for explicit and maker sources
	Bid    float64   // populated for midpoint
	Ask    float64
}

// defaultPrice is used when no pricing source parses.
const defaultPrice = 0.5

// Resolve inspects the raw pricing fields in priority order and returns the
// first variant that parses: explicit prices, then maker data, then bid/ask
// midpoint, then the default.
func Resolve(data PriceData) Source {
	if prices, ok := parsePriceArray(data.OutcomePrices); ok {
		return Source{Kind: SourceExplicit, Prices: prices}
	}
	if prices, ok := parsePriceArray(data.MakerData); ok {
		return Source{Kind: SourceMaker, Prices: prices}
	}
	if data.BestBid != nil && data.BestAsk != nil && *data.BestBid >= 0 && *data.BestAsk > 0 {
		return Source{Kind: SourceMidpoint, Bid: *data.BestBid, Ask: *data.BestAsk}
	}
	return Source{Kind: SourceDefault}
}

// PerOutcome expands the resolved source into a price vector aligned with the
// market's outcome list. A midpoint source prices the first outcome at the
// bid/ask midpoint and the complementary binary outcome at 1 - midpoint.
// Missing entries default to 0.5; values are clamped to [0,1].
func (s Source) PerOutcome(outcomes int) []float64 {
	if outcomes <= 0 {
		return nil
	}
	out := make([]float64, outcomes)
	for i := range out {
		out[i] = defaultPrice
	}

	switch s.Kind {
	case SourceExplicit, SourceMaker:
		for i := 0; i < outcomes && i < len(s.Prices); i++ {
			out[i] = clamp01(s.Prices[i])
		}
	case SourceMidpoint:
		mid := clamp01((s.Bid + s.Ask) / 2)
		out[0] = mid
		if outcomes == 2 {
			out[1] = 1 - mid
		}
	}
	return out
}

// Extract resolves the raw pricing fields and returns the per-outcome price
// vector together with the source that produced it.
func Extract(data PriceData, outcomes int) ([]float64, Source) {
	src := Resolve(data)
	return src.PerOutcome(outcomes), src
}

// parsePriceArray decodes a JSON-encoded string array of decimal prices.
// It accepts both string elements ("0.04") and bare numbers, since the API
// has shipped both shapes over time.
func parsePriceArray(raw string) ([]float64, bool) {
	if raw == "" {
		return nil, false
	}

	var asStrings []string
	if err := json.Unmarshal([]byte(raw), &asStrings); err == nil {
		return parseFloats(asStrings)
	}

	var asNumbers []float64
	if err := json.Unmarshal([]byte(raw), &asNumbers); err == nil && len(asNumbers) > 0 {
		for _, p := range asNumbers {
			if p < 0 || p > 1 {
				return nil, false
			}
		}
		return asNumbers, true
	}

	return nil, false
}

func parseFloats(raw []string) ([]float64, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	out := make([]float64, len(raw))
	for i, s := range raw {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p < 0 || p > 1 {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
