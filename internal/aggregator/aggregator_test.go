package aggregator

import (
	"math"
	"testing"
	"time"

	"quant-corev1/internal/model"
)

func sig(symbol, strategy string, action model.Action, confidence float64) model.Signal {
	return model.Signal{
		Symbol:     symbol,
		Strategy:   strategy,
		Action:     action,
		Confidence: confidence,
		Reason:     "test",
		RiskLevel:  model.RiskMedium,
		TS:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ────────────────────────────────────────────────────────────
// FilterDedupe
// ────────────────────────────────────────────────────────────

func TestFilterDedupe_KeepsHighestPerSymbol(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 72),
		sig("BTC-USD", "MACD", model.ActionBuy, 81),
	}
	out := FilterDedupe(in, 70)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 signal, got %d", len(out))
	}
	if out[0].Confidence != 81 {
		t.Errorf("confidence = %.2f, want 81", out[0].Confidence)
	}
	if out[0].Strategy != "MACD" {
		t.Errorf("strategy = %s, want MACD", out[0].Strategy)
	}
}

func TestFilterDedupe_DropsBelowThreshold(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 69.99),
		sig("ETH-USD", "RSI", model.ActionSell, 70),
	}
	out := FilterDedupe(in, 70)
	if len(out) != 1 || out[0].Symbol != "ETH-USD" {
		t.Fatalf("expected only ETH-USD to survive, got %+v", out)
	}
}

func TestFilterDedupe_TieBreaksByStrategyName(t *testing.T) {
	// Equal confidence: the lexicographically smaller strategy name
	// wins regardless of input order.
	a := sig("BTC-USD", "MACD", model.ActionBuy, 85)
	b := sig("BTC-USD", "RSI", model.ActionSell, 85)

	for _, in := range [][]model.Signal{{a, b}, {b, a}} {
		out := FilterDedupe(in, 70)
		if len(out) != 1 {
			t.Fatalf("expected 1 signal, got %d", len(out))
		}
		if out[0].Strategy != "MACD" {
			t.Errorf("tie-break kept %s, want MACD", out[0].Strategy)
		}
	}
}

func TestFilterDedupe_RejectsInvalidSignals(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 120),       // confidence out of range
		sig("BTC-USD", "RSI", model.Action("SHORT"), 90),  // unknown action
		{Strategy: "RSI", Action: model.ActionBuy, Confidence: 90}, // missing symbol
	}
	if out := FilterDedupe(in, 70); len(out) != 0 {
		t.Errorf("expected all invalid signals rejected, got %+v", out)
	}
}

func TestFilterDedupe_OutputOrderedBySymbol(t *testing.T) {
	in := []model.Signal{
		sig("ZEC-USD", "RSI", model.ActionBuy, 80),
		sig("ADA-USD", "RSI", model.ActionBuy, 80),
		sig("BTC-USD", "RSI", model.ActionBuy, 80),
	}
	out := FilterDedupe(in, 70)
	want := []string{"ADA-USD", "BTC-USD", "ZEC-USD"}
	for i, w := range want {
		if out[i].Symbol != w {
			t.Fatalf("out[%d] = %s, want %s", i, out[i].Symbol, w)
		}
	}
}

func TestFilterDedupe_Empty(t *testing.T) {
	if out := FilterDedupe(nil, 70); len(out) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
}

// ────────────────────────────────────────────────────────────
// Combine
// ────────────────────────────────────────────────────────────

func TestCombine_MajorityVoteAndMeanConfidence(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 80),
		sig("BTC-USD", "MACD", model.ActionBuy, 60),
		sig("BTC-USD", "MA_Crossover", model.ActionSell, 90),
	}
	out := Combine(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 aggregated signal, got %d", len(out))
	}
	agg := out[0]
	if agg.Action != model.ActionBuy {
		t.Errorf("action = %s, want BUY (2 vs 1)", agg.Action)
	}
	if math.Abs(agg.Confidence-76.6667) > 0.01 {
		t.Errorf("confidence = %.4f, want 76.67", agg.Confidence)
	}
	if agg.SignalCount != 3 {
		t.Errorf("signal count = %d, want 3", agg.SignalCount)
	}
	wantStrategies := []string{"MACD", "MA_Crossover", "RSI"}
	if len(agg.Strategies) != len(wantStrategies) {
		t.Fatalf("strategies = %v, want %v", agg.Strategies, wantStrategies)
	}
	for i, w := range wantStrategies {
		if agg.Strategies[i] != w {
			t.Errorf("strategies[%d] = %s, want %s", i, agg.Strategies[i], w)
		}
	}
}

func TestCombine_VoteTieUsesCanonicalActionOrder(t *testing.T) {
	// One BUY, one SELL: BUY precedes SELL in the canonical order, so
	// the tie resolves to BUY regardless of input order.
	a := sig("ETH-USD", "RSI", model.ActionSell, 75)
	b := sig("ETH-USD", "MACD", model.ActionBuy, 75)

	for _, in := range [][]model.Signal{{a, b}, {b, a}} {
		out := Combine(in)
		if len(out) != 1 {
			t.Fatalf("expected 1 aggregated signal, got %d", len(out))
		}
		if out[0].Action != model.ActionBuy {
			t.Errorf("tie resolved to %s, want BUY", out[0].Action)
		}
	}
}

func TestCombine_GroupsBySymbol(t *testing.T) {
	in := []model.Signal{
		sig("ETH-USD", "RSI", model.ActionSell, 90),
		sig("BTC-USD", "RSI", model.ActionBuy, 80),
		sig("BTC-USD", "MACD", model.ActionBuy, 70),
	}
	out := Combine(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 aggregated signals, got %d", len(out))
	}
	// Ordered by symbol
	if out[0].Symbol != "BTC-USD" || out[1].Symbol != "ETH-USD" {
		t.Fatalf("unexpected order: %s, %s", out[0].Symbol, out[1].Symbol)
	}
	if out[0].SignalCount != 2 || out[1].SignalCount != 1 {
		t.Errorf("signal counts = %d, %d; want 2, 1", out[0].SignalCount, out[1].SignalCount)
	}
	if math.Abs(out[0].Confidence-75) > 1e-9 {
		t.Errorf("BTC confidence = %.4f, want 75", out[0].Confidence)
	}
}

func TestCombine_SkipsInvalid(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 80),
		sig("BTC-USD", "MACD", model.Action("bogus"), 90),
	}
	out := Combine(in)
	if len(out) != 1 || out[0].SignalCount != 1 {
		t.Fatalf("expected invalid signal excluded, got %+v", out)
	}
}

func TestCombine_DuplicateStrategyCountedOnceInSet(t *testing.T) {
	in := []model.Signal{
		sig("BTC-USD", "RSI", model.ActionBuy, 80),
		sig("BTC-USD", "RSI", model.ActionBuy, 60),
	}
	out := Combine(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 aggregated signal, got %d", len(out))
	}
	if len(out[0].Strategies) != 1 {
		t.Errorf("strategies = %v, want a single-element set", out[0].Strategies)
	}
	if out[0].SignalCount != 2 {
		t.Errorf("signal count = %d, want 2", out[0].SignalCount)
	}
}

func TestCombine_Empty(t *testing.T) {
	if out := Combine(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
}
