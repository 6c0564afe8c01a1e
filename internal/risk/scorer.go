// Package risk computes per-position risk scores and portfolio-level
// risk metrics. Everything here is a pure function over snapshots, so
// scoring can run concurrently with signal generation and the ledger.
package risk

import (
	"math"
	"sort"

	"quant-corev1/internal/model"
)

// DefaultRiskFreeRate is the annualized risk-free rate used by the
// Sharpe ratio when the caller has no better figure.
const DefaultRiskFreeRate = 0.02

// DefaultVaRConfidence is the confidence level for Value-at-Risk.
const DefaultVaRConfidence = 0.95

// PositionRisk scores one position 0-100 from the signal confidence
// that opened it, the asset's volatility (decimal, e.g. 0.04 = 4%),
// and the position's share of the portfolio in percent.
//
// Weighting: 40% inverse confidence, 30% volatility (saturating at
// vol=0.10), 30% position size (saturating at 10% of the portfolio).
func PositionRisk(confidence, volatility, portfolioPct float64) float64 {
	confidenceRisk := (100 - confidence) / 100
	volRisk := math.Min(volatility*10, 1)
	sizeRisk := math.Min(portfolioPct/10, 1)

	total := (confidenceRisk*0.4 + volRisk*0.3 + sizeRisk*0.3) * 100
	return math.Min(total, 100)
}

// Level converts a risk score into a coarse level.
func Level(score float64) model.RiskLevel {
	switch {
	case score < 30:
		return model.RiskLow
	case score < 60:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// ValueAtRisk estimates historical-simulation VaR at the given
// confidence level: the loss magnitude at the (1-confidence) quantile
// of the sorted return distribution. Returns 0 for an empty set.
func ValueAtRisk(returns []float64, confidenceLevel float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int(math.Floor((1 - confidenceLevel) * float64(len(sorted))))
	if index >= len(sorted) {
		return 0
	}
	return math.Abs(sorted[index])
}

// SharpeRatio returns mean excess return over the risk-free rate per
// unit of standard deviation. Returns 0 when stdDev is 0.
func SharpeRatio(meanReturn, stdDev, riskFreeRate float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (meanReturn - riskFreeRate) / stdDev
}
