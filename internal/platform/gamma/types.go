package gamma

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
	"github.com/quantfold/polypilot/internal/pricing"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket represents a market as returned by the market-data API. The
// outcome name, price, and token-id fields arrive as JSON-encoded string
// arrays (e.g. "[\"Yes\",\"No\"]").
type APIMarket struct {
	ConditionID     string   `json:"conditionId"`
	Question        string   `json:"question"`
	Active          flexBool `json:"active"`
	Closed          bool     `json:"closed"`
	Outcomes        string   `json:"outcomes"`
	OutcomePrices   string   `json:"outcomePrices"`
	MarketMakerData string   `json:"marketMakerData"`
	BestBid         *float64 `json:"bestBid"`
	BestAsk         *float64 `json:"bestAsk"`
	Volume          flexFloat `json:"volume"`
	EndDate         string   `json:"endDate"`
	ClobTokenIDs    string   `json:"clobTokenIds"`
}

// ToRecord converts the API payload into a domain record. Outcome prices are
// left empty: price extraction is the scanner's job, via the pricing package
// and the PriceData returned alongside.
func (m *APIMarket) ToRecord(conditionID string) domain.MarketRecord {
	rec := domain.MarketRecord{
		MarketID: conditionID,
		Question: m.Question,
		Active:   bool(m.Active) && !m.Closed,
		Volume:   float64(m.Volume),
	}
	if m.ConditionID != "" {
		rec.MarketID = m.ConditionID
	}

	var names []string
	if err := json.Unmarshal([]byte(m.Outcomes), &names); err == nil {
		rec.OutcomeNames = names
	}
	var tokens []string
	if err := json.Unmarshal([]byte(m.ClobTokenIDs), &tokens); err == nil {
		rec.TokenIDs = tokens
	}
	if m.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
			rec.EndTime = &t
		}
	}
	return rec
}

// PriceData extracts the raw pricing fields for the pricing resolver.
func (m *APIMarket) PriceData() pricing.PriceData {
	return pricing.PriceData{
		OutcomePrices: m.OutcomePrices,
		MakerData:     m.MarketMakerData,
		BestBid:       m.BestBid,
		BestAsk:       m.BestAsk,
	}
}
