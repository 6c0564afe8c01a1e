package model

// Value is an optional indicator value. Valid is false until the
// indicator's lookback window has seen enough bars; strategies must
// treat an invalid value as "no signal", never as zero.
type Value struct {
	Float64 float64
	Valid   bool
}

// Defined wraps a computed value.
func Defined(v float64) Value { return Value{Float64: v, Valid: true} }

// IndicatorSet holds all indicator values computed for one bar of a
// series. It is index-aligned with the series it was derived from and
// uses only bars at or before that index.
type IndicatorSet struct {
	RSI        Value // RSI(14), Wilder smoothing
	MACD       Value // EMA12 - EMA26 of close
	MACDSignal Value // EMA9 of MACD
	MACDDiff   Value // MACD - MACDSignal
	MAFast     Value // SMA(20) of close
	MASlow     Value // SMA(50) of close
	MA200      Value // SMA(200) of close
	BBHigh     Value // SMA(20) + 2σ
	BBLow      Value // SMA(20) - 2σ
}
