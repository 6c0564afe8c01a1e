package indicator

import "quant-corev1/internal/model"

// Config specifies the lookback windows for the engine's indicator set.
type Config struct {
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	MAFastPeriod int
	MASlowPeriod int
	MALongPeriod int
	BBPeriod     int
	BBStdDev     float64
}

// DefaultConfig returns the canonical windows: RSI(14), MACD(12,26,9),
// moving averages 20/50/200, Bollinger(20, 2σ).
func DefaultConfig() Config {
	return Config{
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		MAFastPeriod: 20,
		MASlowPeriod: 50,
		MALongPeriod: 200,
		BBPeriod:     20,
		BBStdDev:     2.0,
	}
}

// Engine computes the full indicator set for an OHLCV series.
// Compute builds fresh indicator instances per invocation, so one
// engine is safe for concurrent use across symbols.
type Engine struct {
	cfg Config
}

// NewEngine creates an indicator engine with the given windows.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute produces one IndicatorSet per bar, index-aligned with the
// series. Each set uses only bars at or before its index — no
// look-ahead. Values whose window is not yet satisfied are left
// undefined. An empty series yields an empty result, not an error.
func (e *Engine) Compute(series model.Series) []model.IndicatorSet {
	if len(series) == 0 {
		return nil
	}

	rsi := NewRSI(e.cfg.RSIPeriod)
	macd := NewMACD(e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	maFast := NewSMA(e.cfg.MAFastPeriod)
	maSlow := NewSMA(e.cfg.MASlowPeriod)
	maLong := NewSMA(e.cfg.MALongPeriod)
	bb := NewBollinger(e.cfg.BBPeriod, e.cfg.BBStdDev)

	sets := make([]model.IndicatorSet, len(series))
	for i, candle := range series {
		rsi.Update(candle)
		macd.Update(candle)
		maFast.Update(candle)
		maSlow.Update(candle)
		maLong.Update(candle)
		bb.Update(candle)

		var set model.IndicatorSet
		if rsi.Ready() {
			set.RSI = model.Defined(rsi.Value())
		}
		if macd.Ready() {
			set.MACD = model.Defined(macd.Line())
		}
		if macd.SignalReady() {
			set.MACDSignal = model.Defined(macd.Signal())
			set.MACDDiff = model.Defined(macd.Diff())
		}
		if maFast.Ready() {
			set.MAFast = model.Defined(maFast.Value())
		}
		if maSlow.Ready() {
			set.MASlow = model.Defined(maSlow.Value())
		}
		if maLong.Ready() {
			set.MA200 = model.Defined(maLong.Value())
		}
		if bb.Ready() {
			set.BBHigh = model.Defined(bb.Upper())
			set.BBLow = model.Defined(bb.Lower())
		}
		sets[i] = set
	}
	return sets
}
