package pricing

import (
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name string
		data PriceData
		want SourceKind
	}{
		{
			name: "explicit prices win",
			data: PriceData{
				OutcomePrices: `["0.04","0.96"]`,
				MakerData:     `["0.10","0.90"]`,
				BestBid:       floatPtr(0.03),
				BestAsk:       floatPtr(0.05),
			},
			want: SourceExplicit,
		},
		{
			name: "maker data when explicit missing",
			data: PriceData{MakerData: `["0.10","0.90"]`},
			want: SourceMaker,
		},
		{
			name: "maker data when explicit malformed",
			data: PriceData{OutcomePrices: `not json`, MakerData: `["0.10","0.90"]`},
			want: SourceMaker,
		},
		{
			name: "midpoint when only bid and ask",
			data: PriceData{BestBid: floatPtr(0.40), BestAsk: floatPtr(0.44)},
			want: SourceMidpoint,
		},
		{
			name: "default when nothing parses",
			data: PriceData{OutcomePrices: `[]`, MakerData: `["1.5"]`},
			want: SourceDefault,
		},
		{
			name: "out of range explicit rejected",
			data: PriceData{OutcomePrices: `["1.04","-0.04"]`},
			want: SourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.data)
			if got.Kind != tt.want {
				t.Errorf("Resolve() kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		data     PriceData
		outcomes int
		want     []float64
	}{
		{
			name:     "explicit string array",
			data:     PriceData{OutcomePrices: `["0.04","0.96"]`},
			outcomes: 2,
			want:     []float64{0.04, 0.96},
		},
		{
			name:     "explicit number array",
			data:     PriceData{OutcomePrices: `[0.25, 0.75]`},
			outcomes: 2,
			want:     []float64{0.25, 0.75},
		},
		{
			name:     "midpoint fills binary complement",
			data:     PriceData{BestBid: floatPtr(0.40), BestAsk: floatPtr(0.44)},
			outcomes: 2,
			want:     []float64{0.42, 0.58},
		},
		{
			name:     "default fills all outcomes",
			data:     PriceData{},
			outcomes: 3,
			want:     []float64{0.5, 0.5, 0.5},
		},
		{
			name:     "short explicit array pads with default",
			data:     PriceData{OutcomePrices: `["0.30"]`},
			outcomes: 2,
			want:     []float64{0.30, 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Extract(tt.data, tt.outcomes)
			if len(got) != len(tt.want) {
				t.Fatalf("Extract() len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("Extract()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractZeroOutcomes(t *testing.T) {
	got, _ := Extract(PriceData{OutcomePrices: `["0.5","0.5"]`}, 0)
	if got != nil {
		t.Errorf("Extract() with zero outcomes = %v, want nil", got)
	}
}
