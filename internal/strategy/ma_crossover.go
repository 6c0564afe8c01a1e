package strategy

import (
	"fmt"
	"math"

	"quant-corev1/internal/model"
)

// MACrossover signals on moving-average crossovers between the two
// most recent bars.
//
// Buy signal: fast MA crosses above slow MA (golden cross)
// Sell signal: fast MA crosses below slow MA (death cross)
//
// Confidence is the relative spread between the averages after the
// cross, scaled by the MA that was crossed: the slow MA for a golden
// cross, the fast MA for a death cross.
type MACrossover struct {
	threshold  float64
	fastPeriod int // labeling only; values come from the indicator set
	slowPeriod int
}

// NewMACrossover creates a moving-average crossover strategy for the
// engine's fast/slow windows (20/50 by default).
func NewMACrossover() *MACrossover {
	return &MACrossover{
		threshold:  DefaultConfidenceThreshold,
		fastPeriod: 20,
		slowPeriod: 50,
	}
}

func (s *MACrossover) Name() string { return "MA_Crossover" }

func (s *MACrossover) Evaluate(series model.Series, sets []model.IndicatorSet) *model.Signal {
	prev, latest, ok := lastTwo(sets)
	if !ok {
		return nil
	}
	if !latest.MAFast.Valid || !latest.MASlow.Valid || !prev.MAFast.Valid || !prev.MASlow.Valid {
		return nil
	}

	fast := latest.MAFast.Float64
	slow := latest.MASlow.Float64
	prevFast := prev.MAFast.Float64
	prevSlow := prev.MASlow.Float64
	symbol := series.Symbol()

	// Golden cross: fast crosses above slow
	if prevFast <= prevSlow && fast > slow {
		strength := 0.0
		if slow != 0 {
			strength = (fast - slow) / slow
		}
		confidence := clampConfidence(math.Abs(strength) * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionBuy, confidence,
				fmt.Sprintf("Golden cross (%dMA > %dMA)", s.fastPeriod, s.slowPeriod))
		}
		return nil
	}

	// Death cross: fast crosses below slow
	if prevFast >= prevSlow && fast < slow {
		strength := 0.0
		if fast != 0 {
			strength = (slow - fast) / fast
		}
		confidence := clampConfidence(math.Abs(strength) * 100)
		if confidence >= s.threshold {
			return newSignal(symbol, s.Name(), model.ActionSell, confidence,
				fmt.Sprintf("Death cross (%dMA < %dMA)", s.fastPeriod, s.slowPeriod))
		}
	}

	return nil
}
