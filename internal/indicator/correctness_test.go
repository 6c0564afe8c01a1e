package indicator

import (
	"math"
	"testing"
	"time"

	"quant-corev1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func candle(close float64) model.Candle {
	return model.Candle{
		Symbol: "TEST",
		TS:     time.Now().UTC(),
		Open:   close, High: close + 0.5, Low: close - 0.5, Close: close,
	}
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated SMA(3) for a known price series:
	// Prices: 100, 102, 104, 103, 105
	// SMA after candle 3: (100+102+104)/3 = 102.0000
	// SMA after candle 4: (102+104+103)/3 = 103.0000
	// SMA after candle 5: (104+103+105)/3 = 104.0000

	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(candle(p))
		if sma.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, sma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", sma.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA Correctness
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// EMA(3): multiplier = 2/(3+1) = 0.5
	// Prices: 100, 102, 104, 103, 105
	//
	// Candle 3: SMA seed = (100+102+104)/3 = 102.0
	// Candle 4: EMA = 103*0.5 + 102.0*0.5 = 102.5
	// Candle 5: EMA = 105*0.5 + 102.5*0.5 = 103.75

	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102.0, 102.5, 103.75}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		ema.Update(candle(p))
		if ema.Ready() != ready[i] {
			t.Errorf("candle %d: Ready()=%v, want %v", i, ema.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, "EMA(3)", ema.Value(), expected[i], 0.0001)
		}
	}
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period2(t *testing.T) {
	// RSI(2) with prices 10, 11, 10:
	// Deltas: +1, -1 → SMA seed: avgGain=0.5, avgLoss=0.5
	// RS = 1 → RSI = 100 - 100/2 = 50

	rsi := NewRSI(2)
	for _, p := range []float64{10, 11, 10} {
		rsi.Update(candle(p))
	}
	if !rsi.Ready() {
		t.Fatal("RSI(2) should be ready after 3 candles")
	}
	assertClose(t, "RSI(2)", rsi.Value(), 50.0, 0.0001)
}

func TestRSI_SaturatesAt100_AllGains(t *testing.T) {
	// Monotonically rising closes → avgLoss = 0 → RSI pegs at 100.
	rsi := NewRSI(14)
	for i := 0; i < 30; i++ {
		rsi.Update(candle(100 + float64(i)))
	}
	if !rsi.Ready() {
		t.Fatal("RSI should be ready after 30 candles")
	}
	assertClose(t, "RSI all-gains", rsi.Value(), 100.0, 0.0001)
}

func TestRSI_BoundedZeroTo100(t *testing.T) {
	// Property: 0 <= RSI <= 100 for an arbitrary oscillating series.
	rsi := NewRSI(14)
	price := 100.0
	for i := 0; i < 200; i++ {
		// Deterministic zig-zag with drift
		if i%3 == 0 {
			price += 2.5
		} else {
			price -= 1.3
		}
		rsi.Update(candle(price))
		if rsi.Ready() {
			v := rsi.Value()
			if v < 0 || v > 100 {
				t.Fatalf("candle %d: RSI=%.4f outside [0,100]", i, v)
			}
		}
	}
}

func TestRSI_ReadyAfterPeriodPlusOne(t *testing.T) {
	rsi := NewRSI(14)
	for i := 0; i < 14; i++ {
		rsi.Update(candle(100 + float64(i)))
		if rsi.Ready() {
			t.Fatalf("RSI ready after only %d candles", i+1)
		}
	}
	rsi.Update(candle(120))
	if !rsi.Ready() {
		t.Error("RSI should be ready after 15 candles (14 deltas)")
	}
}

// ────────────────────────────────────────────────────────────
// MACD Correctness
// ────────────────────────────────────────────────────────────

func TestMACD_ConstantPrice_IsZero(t *testing.T) {
	// Constant closes → fast EMA == slow EMA → MACD = 0, signal = 0.
	macd := NewMACD(12, 26, 9)
	for i := 0; i < 40; i++ {
		macd.Update(candle(100))
	}
	if !macd.Ready() || !macd.SignalReady() {
		t.Fatal("MACD should be fully ready after 40 candles")
	}
	assertClose(t, "MACD line", macd.Line(), 0.0, 1e-9)
	assertClose(t, "MACD signal", macd.Signal(), 0.0, 1e-9)
	assertClose(t, "MACD diff", macd.Diff(), 0.0, 1e-9)
}

func TestMACD_Readiness(t *testing.T) {
	// Line defined once the slow EMA (26) is seeded; signal a further
	// 9 line values later.
	macd := NewMACD(12, 26, 9)
	for i := 1; i <= 40; i++ {
		macd.Update(candle(100 + float64(i)))
		if i < 26 && macd.Ready() {
			t.Fatalf("candle %d: line ready too early", i)
		}
		if i >= 26 && !macd.Ready() {
			t.Fatalf("candle %d: line should be ready", i)
		}
		if i < 34 && macd.SignalReady() {
			t.Fatalf("candle %d: signal ready too early", i)
		}
		if i >= 34 && !macd.SignalReady() {
			t.Fatalf("candle %d: signal should be ready", i)
		}
	}
}

func TestMACD_RisingTrend_Positive(t *testing.T) {
	// In a steady uptrend the fast EMA sits above the slow EMA.
	macd := NewMACD(12, 26, 9)
	for i := 0; i < 60; i++ {
		macd.Update(candle(100 + float64(i)))
	}
	if macd.Line() <= 0 {
		t.Errorf("uptrend MACD = %.4f, want > 0", macd.Line())
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Correctness
// ────────────────────────────────────────────────────────────

func TestBollinger_Correctness_Period3(t *testing.T) {
	// BB(3, 2σ) over 100, 102, 104:
	// mean = 102, sample σ = sqrt((4+0+4)/2) = 2
	// upper = 102 + 4 = 106, lower = 102 - 4 = 98

	bb := NewBollinger(3, 2)
	for _, p := range []float64{100, 102, 104} {
		bb.Update(candle(p))
	}
	if !bb.Ready() {
		t.Fatal("BB(3) should be ready after 3 candles")
	}
	assertClose(t, "BB upper", bb.Upper(), 106.0, 0.0001)
	assertClose(t, "BB lower", bb.Lower(), 98.0, 0.0001)
}

func TestBollinger_ConstantPrice_Collapses(t *testing.T) {
	bb := NewBollinger(20, 2)
	for i := 0; i < 25; i++ {
		bb.Update(candle(50))
	}
	assertClose(t, "BB upper flat", bb.Upper(), 50.0, 1e-9)
	assertClose(t, "BB lower flat", bb.Lower(), 50.0, 1e-9)
}
