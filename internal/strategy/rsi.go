package strategy

import (
	"fmt"

	"quant-corev1/internal/model"
)

// RSIStrategy signals on RSI extremes: oversold below 30 produces a
// BUY candidate, overbought above 70 a SELL candidate. Confidence
// grows linearly with the distance past the threshold.
type RSIStrategy struct {
	threshold  float64 // minimum confidence to emit
	oversold   float64
	overbought float64
}

// NewRSIStrategy creates an RSI strategy with the canonical 30/70
// bands and the default confidence threshold.
func NewRSIStrategy() *RSIStrategy {
	return &RSIStrategy{
		threshold:  DefaultConfidenceThreshold,
		oversold:   30,
		overbought: 70,
	}
}

func (s *RSIStrategy) Name() string { return "RSI" }

func (s *RSIStrategy) Evaluate(series model.Series, sets []model.IndicatorSet) *model.Signal {
	if len(sets) == 0 {
		return nil
	}
	latest := sets[len(sets)-1]
	if !latest.RSI.Valid {
		return nil
	}
	rsi := latest.RSI.Float64
	symbol := series.Symbol()

	if rsi < s.oversold {
		confidence := clampConfidence((s.oversold - rsi) / s.oversold * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionBuy, confidence,
				fmt.Sprintf("RSI oversold at %.2f", rsi))
		}
		return nil
	}

	if rsi > s.overbought {
		confidence := clampConfidence((rsi - s.overbought) / (100 - s.overbought) * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionSell, confidence,
				fmt.Sprintf("RSI overbought at %.2f", rsi))
		}
	}

	return nil
}
