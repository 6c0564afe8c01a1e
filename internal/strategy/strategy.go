// Package strategy provides the trading strategies that turn indicator
// data into signals.
//
// A Strategy is a pure evaluation over a series and its indicator
// sets: it emits at most one signal per invocation and abstains (nil)
// on ties, undefined indicators, or insufficient history. Abstaining
// is normal operation, not an error.
package strategy

import (
	"time"

	"quant-corev1/internal/model"
)

// DefaultConfidenceThreshold is the minimum confidence a strategy
// requires before emitting a signal.
const DefaultConfidenceThreshold = 70.0

// Strategy is the interface all trading strategies implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Evaluate inspects the series and its index-aligned indicator
	// sets and returns a signal, or nil to abstain.
	Evaluate(series model.Series, sets []model.IndicatorSet) *model.Signal
}

// clampConfidence bounds a raw strength-derived confidence to [0,100].
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// assessRisk maps confidence to a risk level: high confidence means
// low risk in acting on the signal.
func assessRisk(confidence float64) model.RiskLevel {
	switch {
	case confidence >= 80:
		return model.RiskLow
	case confidence >= 60:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// newSignal builds a fully-populated signal for the given evaluation.
func newSignal(symbol, strategy string, action model.Action, confidence float64, reason string) *model.Signal {
	return &model.Signal{
		Symbol:     symbol,
		Strategy:   strategy,
		Action:     action,
		Confidence: confidence,
		Reason:     reason,
		RiskLevel:  assessRisk(confidence),
		TS:         time.Now().UTC(),
	}
}

// lastTwo returns the final two indicator sets of a computation.
// ok is false when fewer than two bars of history exist, in which
// case crossover strategies must abstain.
func lastTwo(sets []model.IndicatorSet) (prev, latest model.IndicatorSet, ok bool) {
	if len(sets) < 2 {
		return model.IndicatorSet{}, model.IndicatorSet{}, false
	}
	return sets[len(sets)-2], sets[len(sets)-1], true
}
