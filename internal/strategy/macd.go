package strategy

import (
	"fmt"
	"math"

	"quant-corev1/internal/model"
)

// MACDStrategy signals on MACD/signal-line crossovers between the two
// most recent bars. A bullish crossover (MACD rising through the
// signal line) produces a BUY, a bearish one a SELL. Confidence is the
// relative magnitude of the crossover: for a BUY the spread is scaled
// by |signal|, for a SELL by |MACD|, zero when the reference is zero.
type MACDStrategy struct {
	threshold float64
}

// NewMACDStrategy creates a MACD crossover strategy with the default
// confidence threshold.
func NewMACDStrategy() *MACDStrategy {
	return &MACDStrategy{threshold: DefaultConfidenceThreshold}
}

func (s *MACDStrategy) Name() string { return "MACD" }

func (s *MACDStrategy) Evaluate(series model.Series, sets []model.IndicatorSet) *model.Signal {
	prev, latest, ok := lastTwo(sets)
	if !ok {
		// A single bar of history cannot cross anything.
		return nil
	}
	if !latest.MACD.Valid || !latest.MACDSignal.Valid || !prev.MACD.Valid || !prev.MACDSignal.Valid {
		return nil
	}

	macd := latest.MACD.Float64
	sig := latest.MACDSignal.Float64
	prevMACD := prev.MACD.Float64
	prevSig := prev.MACDSignal.Float64
	symbol := series.Symbol()

	// Bullish crossover: MACD rises through the signal line
	if prevMACD <= prevSig && macd > sig {
		strength := 0.0
		if sig != 0 {
			strength = (macd - sig) / math.Abs(sig)
		}
		confidence := clampConfidence(math.Abs(strength) * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionBuy, confidence,
				fmt.Sprintf("MACD bullish crossover (MACD: %.4f, Signal: %.4f)", macd, sig))
		}
		return nil
	}

	// Bearish crossover: MACD falls through the signal line
	if prevMACD >= prevSig && macd < sig {
		strength := 0.0
		if macd != 0 {
			strength = (sig - macd) / math.Abs(macd)
		}
		confidence := clampConfidence(math.Abs(strength) * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionSell, confidence,
				fmt.Sprintf("MACD bearish crossover (MACD: %.4f, Signal: %.4f)", macd, sig))
		}
	}

	return nil
}
