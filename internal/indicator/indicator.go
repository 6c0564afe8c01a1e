// Package indicator provides technical indicator calculations over candle data.
//
// All single-valued indicators implement the Indicator interface,
// receiving candles and producing float64 values. Computation is
// streaming and causal: each update uses only the bars seen so far,
// never future bars. The Engine composes the individual indicators
// into a per-bar IndicatorSet sequence aligned with the input series.
package indicator

import "quant-corev1/internal/model"

// Indicator is the interface for all single-valued technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g. "SMA", "RSI").
	Name() string

	// Update feeds a new candle and recalculates.
	Update(candle model.Candle)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated. Before
	// that the indicator is undefined, not zero.
	Ready() bool
}
