package trader

import (
	"fmt"

	"github.com/quantfold/polypilot/internal/domain"
)

const (
	// defaultConfidence is assigned when no external evidence is available.
	defaultConfidence = 0.8

	// Blend weights between the price edge and external evidence.
	edgeWeight   = 0.4
	signalWeight = 0.6

	// edgeScale converts an edge into a confidence contribution:
	// 0.5 + edge*edgeScale, so a 0.2 edge alone saturates at 1.0.
	edgeScale = 2.5

	// scorerMinConfidence is the scorer's own floor below which a candidate
	// is not worth forwarding, independent of the evaluator's gates.
	scorerMinConfidence = 0.5
)

// Assessment is the scorer's verdict on one candidate.
type Assessment struct {
	Confidence float64
	Worthwhile bool
	Reasoning  string
	Evidence   []string
}

// ConfidenceScorer turns a price edge plus optional external evidence into a
// single confidence figure. With no evidence it falls back to a flat default
// so scanning degrades gracefully when the sentiment feed is down.
type ConfidenceScorer struct {
	min float64
}

// NewConfidenceScorer returns a scorer with the standard internal floor.
func NewConfidenceScorer() *ConfidenceScorer {
	return &ConfidenceScorer{min: scorerMinConfidence}
}

// Score assesses a candidate for the given outcome. Signal items supporting
// the outcome contribute their confidence; items against it contribute the
// complement; neutral items contribute 0.5.
func (s *ConfidenceScorer) Score(edge float64, bundle domain.SignalBundle, outcome domain.Outcome) Assessment {
	if bundle.Empty() {
		return Assessment{
			Confidence: defaultConfidence,
			Worthwhile: defaultConfidence >= s.min,
			Reasoning:  fmt.Sprintf("no external evidence, default confidence %.2f", defaultConfidence),
		}
	}

	var sum float64
	evidence := make([]string, 0, len(bundle.Items))
	for _, item := range bundle.Items {
		sum += itemSupport(item, outcome)
		evidence = append(evidence, fmt.Sprintf("%s [%s %.2f]: %s", item.Source, item.Direction, item.Confidence, item.Summary))
	}
	signalConf := sum / float64(len(bundle.Items))

	edgeConf := clamp01(0.5 + edge*edgeScale)
	combined := edgeWeight*edgeConf + signalWeight*signalConf

	return Assessment{
		Confidence: combined,
		Worthwhile: combined >= s.min,
		Reasoning: fmt.Sprintf("edge confidence %.2f, signal confidence %.2f over %d items, combined %.2f",
			edgeConf, signalConf, len(bundle.Items), combined),
		Evidence: evidence,
	}
}

// itemSupport maps one signal item onto [0,1] support for the target outcome.
func itemSupport(item domain.SignalItem, outcome domain.Outcome) float64 {
	conf := clamp01(item.Confidence)
	switch item.Direction {
	case domain.SignalBullish:
		if outcome == domain.OutcomeYes {
			return conf
		}
		return 1 - conf
	case domain.SignalBearish:
		if outcome == domain.OutcomeNo {
			return conf
		}
		return 1 - conf
	}
	return 0.5
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
