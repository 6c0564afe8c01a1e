package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PortfolioMetrics holds portfolio-level risk figures as plain numeric
// structures; serialization at a network boundary is the caller's
// concern.
type PortfolioMetrics struct {
	Variance    float64     `json:"portfolio_variance"`
	StdDev      float64     `json:"portfolio_std"`
	Sharpe      float64     `json:"sharpe_ratio"`
	ValueAtRisk float64     `json:"value_at_risk"`
	Correlation [][]float64 `json:"correlation_matrix"`
	Covariance  [][]float64 `json:"covariance_matrix"`
}

// PortfolioRisk computes variance, standard deviation, correlation,
// Sharpe ratio, and VaR for a portfolio of len(weights) assets.
// returns[i] is the historical return series of asset i; all series
// must share the same length, one observation per sample period.
// Variance is wᵀΣw over the sample covariance matrix Σ.
func PortfolioRisk(weights []float64, returns [][]float64, riskFreeRate float64) (PortfolioMetrics, error) {
	assets := len(weights)
	if assets == 0 {
		return PortfolioMetrics{}, fmt.Errorf("portfolio risk: no positions")
	}
	if len(returns) != assets {
		return PortfolioMetrics{}, fmt.Errorf("portfolio risk: %d weights but %d return series", assets, len(returns))
	}
	samples := len(returns[0])
	for i, r := range returns {
		if len(r) != samples {
			return PortfolioMetrics{}, fmt.Errorf("portfolio risk: return series %d has %d samples, want %d", i, len(r), samples)
		}
	}
	if samples < 2 {
		return PortfolioMetrics{}, fmt.Errorf("portfolio risk: need at least 2 samples, got %d", samples)
	}

	// Observation matrix: one row per sample, one column per asset.
	obs := mat.NewDense(samples, assets, nil)
	for j, series := range returns {
		for i, v := range series {
			obs.Set(i, j, v)
		}
	}

	var cov, corr mat.SymDense
	stat.CovarianceMatrix(&cov, obs, nil)
	stat.CorrelationMatrix(&corr, obs, nil)

	w := mat.NewVecDense(assets, weights)
	variance := mat.Inner(w, &cov, w)
	stdDev := math.Sqrt(variance)

	// Weighted portfolio return per sample, then its mean for Sharpe
	// and its distribution for VaR.
	portReturns := make([]float64, samples)
	for i := 0; i < samples; i++ {
		var r float64
		for j := 0; j < assets; j++ {
			r += weights[j] * obs.At(i, j)
		}
		portReturns[i] = r
	}

	return PortfolioMetrics{
		Variance:    variance,
		StdDev:      stdDev,
		Sharpe:      SharpeRatio(stat.Mean(portReturns, nil), stdDev, riskFreeRate),
		ValueAtRisk: ValueAtRisk(portReturns, DefaultVaRConfidence),
		Correlation: symToSlice(&corr),
		Covariance:  symToSlice(&cov),
	}, nil
}

func symToSlice(m *mat.SymDense) [][]float64 {
	n := m.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = m.At(i, j)
		}
		out[i] = row
	}
	return out
}
