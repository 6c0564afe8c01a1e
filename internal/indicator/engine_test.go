package indicator

import (
	"testing"
	"time"

	"quant-corev1/internal/model"
)

func makeSeries(closes []float64) model.Series {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make(model.Series, len(closes))
	for i, c := range closes {
		series[i] = model.Candle{
			Symbol: "BTC-USD",
			TS:     base.Add(time.Duration(i) * time.Hour),
			Open:   c, High: c + 1, Low: c - 1, Close: c,
			Volume: 1000,
		}
	}
	return series
}

func trendCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	return closes
}

func TestEngine_EmptySeries(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if sets := engine.Compute(nil); sets != nil {
		t.Errorf("empty series: expected nil, got %d sets", len(sets))
	}
}

func TestEngine_OutputAligned(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	series := makeSeries(trendCloses(250))
	sets := engine.Compute(series)
	if len(sets) != len(series) {
		t.Fatalf("expected %d sets, got %d", len(series), len(sets))
	}
}

func TestEngine_DefinednessBoundaries(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	sets := engine.Compute(makeSeries(trendCloses(250)))

	// First defined index per indicator with canonical windows:
	// RSI(14) → 14, MACD(26) → 25, signal(+9) → 33,
	// SMA20 → 19, SMA50 → 49, SMA200 → 199, BB(20) → 19.
	cases := []struct {
		name  string
		first int
		get   func(model.IndicatorSet) model.Value
	}{
		{"RSI", 14, func(s model.IndicatorSet) model.Value { return s.RSI }},
		{"MACD", 25, func(s model.IndicatorSet) model.Value { return s.MACD }},
		{"MACDSignal", 33, func(s model.IndicatorSet) model.Value { return s.MACDSignal }},
		{"MACDDiff", 33, func(s model.IndicatorSet) model.Value { return s.MACDDiff }},
		{"MAFast", 19, func(s model.IndicatorSet) model.Value { return s.MAFast }},
		{"MASlow", 49, func(s model.IndicatorSet) model.Value { return s.MASlow }},
		{"MA200", 199, func(s model.IndicatorSet) model.Value { return s.MA200 }},
		{"BBHigh", 19, func(s model.IndicatorSet) model.Value { return s.BBHigh }},
		{"BBLow", 19, func(s model.IndicatorSet) model.Value { return s.BBLow }},
	}

	for _, tc := range cases {
		if tc.first > 0 && tc.get(sets[tc.first-1]).Valid {
			t.Errorf("%s: defined at index %d, should start at %d", tc.name, tc.first-1, tc.first)
		}
		if !tc.get(sets[tc.first]).Valid {
			t.Errorf("%s: undefined at index %d, should be defined", tc.name, tc.first)
		}
		if !tc.get(sets[len(sets)-1]).Valid {
			t.Errorf("%s: undefined at final index", tc.name)
		}
	}
}

func TestEngine_Causal_NoLookAhead(t *testing.T) {
	// Computing over a prefix must match the prefix of the full
	// computation: bar i may only depend on bars 0..i.
	engine := NewEngine(DefaultConfig())
	closes := trendCloses(120)
	// Perturb the tail so look-ahead would be visible
	closes[119] = 5000

	full := engine.Compute(makeSeries(closes))
	prefix := engine.Compute(makeSeries(closes[:60]))

	for i := range prefix {
		if full[i] != prefix[i] {
			t.Fatalf("bar %d differs between prefix and full computation", i)
		}
	}
}

func TestEngine_SMA20_Correctness(t *testing.T) {
	// Constant closes: every defined SMA/BB value equals the price.
	engine := NewEngine(DefaultConfig())
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 250
	}
	sets := engine.Compute(makeSeries(closes))
	for i := 19; i < len(sets); i++ {
		if !sets[i].MAFast.Valid {
			t.Fatalf("bar %d: MAFast undefined", i)
		}
		assertClose(t, "MAFast flat", sets[i].MAFast.Float64, 250, 1e-9)
		assertClose(t, "BBHigh flat", sets[i].BBHigh.Float64, 250, 1e-9)
	}
}
