package trader

import (
	"math"
	"testing"
	"time"

	"github.com/quantfold/polypilot/internal/domain"
)

func bundleWith(items ...domain.SignalItem) domain.SignalBundle {
	return domain.SignalBundle{Question: "Will it happen?", Items: items}
}

func item(dir domain.SignalDirection, conf float64) domain.SignalItem {
	return domain.SignalItem{
		Source:     "test-feed",
		Direction:  dir,
		Confidence: conf,
		Summary:    "summary",
		ObservedAt: time.Now(),
	}
}

func TestScoreNoEvidence(t *testing.T) {
	s := NewConfidenceScorer()
	got := s.Score(0.01, domain.SignalBundle{}, domain.OutcomeYes)

	if math.Abs(got.Confidence-0.8) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.8", got.Confidence)
	}
	if !got.Worthwhile {
		t.Error("default confidence should clear the internal floor")
	}
	if len(got.Evidence) != 0 {
		t.Errorf("Evidence = %v, want empty", got.Evidence)
	}
}

func TestScoreBlend(t *testing.T) {
	s := NewConfidenceScorer()

	tests := []struct {
		name       string
		edge       float64
		bundle     domain.SignalBundle
		outcome    domain.Outcome
		wantConf   float64
		worthwhile bool
	}{
		{
			name:       "supporting bullish item on YES",
			edge:       0.01,
			bundle:     bundleWith(item(domain.SignalBullish, 0.9)),
			outcome:    domain.OutcomeYes,
			wantConf:   0.4*0.525 + 0.6*0.9, // 0.75
			worthwhile: true,
		},
		{
			name:       "opposing bearish item on YES",
			edge:       0.01,
			bundle:     bundleWith(item(domain.SignalBearish, 0.9)),
			outcome:    domain.OutcomeYes,
			wantConf:   0.4*0.525 + 0.6*0.1, // 0.27
			worthwhile: false,
		},
		{
			name:       "bearish item supports NO",
			edge:       0.01,
			bundle:     bundleWith(item(domain.SignalBearish, 0.9)),
			outcome:    domain.OutcomeNo,
			wantConf:   0.4*0.525 + 0.6*0.9,
			worthwhile: true,
		},
		{
			name:       "neutral item contributes half",
			edge:       0.01,
			bundle:     bundleWith(item(domain.SignalNeutral, 0.9)),
			outcome:    domain.OutcomeYes,
			wantConf:   0.4*0.525 + 0.6*0.5, // 0.51
			worthwhile: true,
		},
		{
			name: "mixed items average",
			edge: 0.01,
			bundle: bundleWith(
				item(domain.SignalBullish, 0.8),
				item(domain.SignalBearish, 0.8),
			),
			outcome:    domain.OutcomeYes,
			wantConf:   0.4*0.525 + 0.6*0.5,
			worthwhile: true,
		},
		{
			name:       "large edge saturates edge confidence",
			edge:       0.3,
			bundle:     bundleWith(item(domain.SignalBullish, 0.5)),
			outcome:    domain.OutcomeYes,
			wantConf:   0.4*1.0 + 0.6*0.5, // 0.70
			worthwhile: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.edge, tt.bundle, tt.outcome)
			if math.Abs(got.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Worthwhile != tt.worthwhile {
				t.Errorf("Worthwhile = %v, want %v", got.Worthwhile, tt.worthwhile)
			}
		})
	}
}

func TestScoreEvidenceCarriesItems(t *testing.T) {
	s := NewConfidenceScorer()
	got := s.Score(0.01, bundleWith(
		item(domain.SignalBullish, 0.7),
		item(domain.SignalNeutral, 0.4),
	), domain.OutcomeYes)

	if len(got.Evidence) != 2 {
		t.Fatalf("Evidence count = %d, want 2", len(got.Evidence))
	}
	if got.Reasoning == "" {
		t.Error("Reasoning should not be empty")
	}
}
