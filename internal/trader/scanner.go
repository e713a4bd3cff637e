package trader

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/polypilot/internal/domain"
	"github.com/quantfold/polypilot/internal/pricing"
	"github.com/quantfold/polypilot/internal/signal"
)

// MarketData fetches the normalized record and raw pricing fields for one
// market.
type MarketData interface {
	GetMarket(ctx context.Context, conditionID string) (domain.MarketRecord, pricing.PriceData, error)
}

// ScanResult carries the opportunities of one scan pass plus the market
// records they came from, so the executor can resolve instrument ids without
// refetching.
type ScanResult struct {
	Opportunities []domain.MarketOpportunity
	Records       map[string]domain.MarketRecord
}

// Scanner walks the configured market universe each tick and emits scored
// trading candidates. Fetches run concurrently under a worker limit; results
// are evaluated in the configured market order so the output is deterministic
// for a given set of responses.
type Scanner struct {
	cfg     Config
	data    MarketData
	signals signal.Source
	scorer  *ConfidenceScorer
	state   *TradingState
	prices  domain.PriceCache // optional
	logger  *slog.Logger
}

// NewScanner creates a Scanner. prices may be nil when no cache is configured.
func NewScanner(cfg Config, data MarketData, signals signal.Source, state *TradingState, prices domain.PriceCache, logger *slog.Logger) *Scanner {
	if signals == nil {
		signals = signal.NoopSource{}
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 5
	}
	return &Scanner{
		cfg:     cfg,
		data:    data,
		signals: signals,
		scorer:  NewConfidenceScorer(),
		state:   state,
		prices:  prices,
		logger:  logger.With(slog.String("component", "scanner")),
	}
}

type fetched struct {
	record domain.MarketRecord
	data   pricing.PriceData
	err    error
}

// FindOpportunities scans the configured markets. Markets with an open
// position are skipped before fetching; per-market failures are logged and
// skipped so one bad market never aborts the pass.
func (s *Scanner) FindOpportunities(ctx context.Context) ScanResult {
	targets := make([]string, 0, len(s.cfg.Markets))
	for _, id := range s.cfg.Markets {
		if s.state.HasPosition(id) {
			s.logger.Debug("skipping market with open position", slog.String("market_id", id))
			continue
		}
		targets = append(targets, id)
	}

	results := make([]fetched, len(targets))
	g, fetchCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchWorkers)
	for i, id := range targets {
		i, id := i, id
		g.Go(func() error {
			rec, data, err := s.data.GetMarket(fetchCtx, id)
			results[i] = fetched{record: rec, data: data, err: err}
			return nil
		})
	}
	_ = g.Wait() // fetch errors are carried per-slot

	out := ScanResult{Records: make(map[string]domain.MarketRecord, len(targets))}
	for i, id := range targets {
		res := results[i]
		if res.err != nil {
			s.logger.Warn("market fetch failed",
				slog.String("market_id", id),
				slog.String("error", res.err.Error()))
			continue
		}
		if !res.record.Active {
			s.logger.Debug("market inactive", slog.String("market_id", id))
			continue
		}

		prices, src := pricing.Extract(res.data, len(res.record.OutcomeNames))
		res.record.OutcomePrices = prices
		out.Records[id] = res.record
		s.cachePrices(ctx, res.record)

		opps := s.evaluateMarket(ctx, res.record, src.Kind)
		out.Opportunities = append(out.Opportunities, opps...)
	}

	s.logger.Info("scan complete",
		slog.Int("markets", len(targets)),
		slog.Int("opportunities", len(out.Opportunities)))
	return out
}

// evaluateMarket applies the threshold rules to one market's price vector and
// scores the surviving candidates.
func (s *Scanner) evaluateMarket(ctx context.Context, rec domain.MarketRecord, src pricing.SourceKind) []domain.MarketOpportunity {
	var out []domain.MarketOpportunity
	for _, cand := range s.deriveCandidates(rec) {
		bundle, err := s.signals.SignalFor(ctx, rec.Question)
		if err != nil {
			s.logger.Warn("signal lookup failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", err.Error()))
			bundle = domain.SignalBundle{Question: rec.Question}
		}

		edge := cand.predicted - cand.price
		assess := s.scorer.Score(edge, bundle, cand.outcome)
		if !assess.Worthwhile {
			s.logger.Debug("candidate below scorer floor",
				slog.String("market_id", rec.MarketID),
				slog.String("outcome", string(cand.outcome)),
				slog.Float64("confidence", assess.Confidence))
			continue
		}

		signals := append([]string{cand.rule, assess.Reasoning}, assess.Evidence...)
		out = append(out, domain.MarketOpportunity{
			MarketID:             rec.MarketID,
			Question:             rec.Question,
			Outcome:              cand.outcome,
			CurrentPrice:         cand.price,
			PredictedProbability: cand.predicted,
			Confidence:           assess.Confidence,
			ExpectedValue:        edge * 100 * assess.Confidence,
			RiskScore:            1 - assess.Confidence,
			Signals:              signals,
		})

		s.logger.Info("opportunity found",
			slog.String("market_id", rec.MarketID),
			slog.String("outcome", string(cand.outcome)),
			slog.String("price_source", string(src)),
			slog.Float64("price", cand.price),
			slog.Float64("edge", edge),
			slog.Float64("confidence", assess.Confidence))
	}
	return out
}

// candidate is a raw threshold hit before scoring.
type candidate struct {
	outcome   domain.Outcome
	price     float64
	predicted float64
	rule      string
}

// deriveCandidates applies the two threshold rules:
//
//  1. cheap buy: any outcome priced at or below the buy threshold, with at
//     least the minimum edge, is a direct buy of that outcome.
//  2. expensive YES inverse: a YES outcome at or above the sell threshold
//     implies a cheap NO at the complementary price; take the NO side when
//     the implied price still clears the buy threshold.
func (s *Scanner) deriveCandidates(rec domain.MarketRecord) []candidate {
	var out []candidate
	seen := make(map[domain.Outcome]bool)
	for i, name := range rec.OutcomeNames {
		if i >= len(rec.OutcomePrices) {
			break
		}
		outcome, ok := outcomeFromName(name)
		if !ok {
			continue
		}
		price := rec.OutcomePrices[i]

		if price <= s.cfg.BuyThreshold && s.cfg.BuyThreshold-price >= s.cfg.MinEdge && !seen[outcome] {
			seen[outcome] = true
			out = append(out, candidate{
				outcome:   outcome,
				price:     price,
				predicted: s.cfg.BuyThreshold,
				rule:      "cheap buy",
			})
			continue
		}

		if outcome == domain.OutcomeYes && price >= s.cfg.SellThreshold {
			noPrice := 1 - price
			if price-s.cfg.SellThreshold >= s.cfg.MinEdge && noPrice <= s.cfg.BuyThreshold && !seen[domain.OutcomeNo] {
				seen[domain.OutcomeNo] = true
				out = append(out, candidate{
					outcome:   domain.OutcomeNo,
					price:     noPrice,
					predicted: 1 - s.cfg.SellThreshold,
					rule:      "expensive YES inverse",
				})
			}
		}
	}
	return out
}

func outcomeFromName(name string) (domain.Outcome, bool) {
	if len(name) == 0 {
		return "", false
	}
	switch name[0] {
	case 'Y', 'y':
		return domain.OutcomeYes, true
	case 'N', 'n':
		return domain.OutcomeNo, true
	}
	return "", false
}

// cachePrices publishes the extracted price vector; failures are logged only.
func (s *Scanner) cachePrices(ctx context.Context, rec domain.MarketRecord) {
	if s.prices == nil {
		return
	}
	now := time.Now().UTC()
	for i, name := range rec.OutcomeNames {
		if i >= len(rec.OutcomePrices) {
			break
		}
		outcome, ok := outcomeFromName(name)
		if !ok {
			continue
		}
		if err := s.prices.SetPrice(ctx, rec.MarketID, outcome, rec.OutcomePrices[i], now); err != nil {
			s.logger.Warn("price cache write failed",
				slog.String("market_id", rec.MarketID),
				slog.String("error", err.Error()))
			return
		}
	}
}
