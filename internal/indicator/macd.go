package indicator

import "quant-corev1/internal/model"

// MACD calculates Moving Average Convergence Divergence: the spread
// between a fast and a slow EMA of close, plus a signal line that is
// an EMA of the spread itself. The spread becomes defined once the
// slow EMA is seeded; the signal line becomes defined a further
// signalPeriod spread values later.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given periods
// (typically 12, 26, 9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(candle model.Candle) {
	m.fast.Update(candle)
	m.slow.Update(candle)
	if m.Ready() {
		// Feed the signal EMA only with defined spread values so its
		// seed window starts at the first defined MACD, not bar 0.
		m.signal.UpdateValue(m.Line())
	}
}

// Line returns the current MACD line (fast EMA - slow EMA).
func (m *MACD) Line() float64 { return m.fast.Value() - m.slow.Value() }

// Signal returns the current signal line value.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// Diff returns MACD line minus signal line (the histogram).
func (m *MACD) Diff() float64 { return m.Line() - m.signal.Value() }

// Value returns the MACD line, satisfying the Indicator interface.
func (m *MACD) Value() float64 { return m.Line() }

// Ready reports whether the MACD line is defined.
func (m *MACD) Ready() bool { return m.fast.Ready() && m.slow.Ready() }

// SignalReady reports whether the signal line is defined.
func (m *MACD) SignalReady() bool { return m.signal.Ready() }
