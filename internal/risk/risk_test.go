package risk

import (
	"math"
	"testing"

	"quant-corev1/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

// ────────────────────────────────────────────────────────────
// Position risk
// ────────────────────────────────────────────────────────────

func TestPositionRisk(t *testing.T) {
	cases := []struct {
		name         string
		confidence   float64
		volatility   float64
		portfolioPct float64
		want         float64
	}{
		// 0.4*(10/100) + 0.3*0.2 + 0.3*0.5 = 0.04+0.06+0.15 = 0.25
		{"moderate", 90, 0.02, 5, 25},
		// all components saturated
		{"worst case", 0, 1, 100, 100},
		// perfect confidence, no volatility, no exposure
		{"best case", 100, 0, 0, 0},
		// volatility saturates at 0.10
		{"vol saturation", 100, 0.5, 0, 30},
		// size saturates at 10%
		{"size saturation", 100, 0, 50, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PositionRisk(tc.confidence, tc.volatility, tc.portfolioPct)
			assertClose(t, "score", got, tc.want, 0.0001)
			if got > 100 {
				t.Errorf("score %.2f exceeds 100", got)
			}
		})
	}
}

func TestLevel_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  model.RiskLevel
	}{
		{0, model.RiskLow},
		{29.99, model.RiskLow},
		{30, model.RiskMedium},
		{59.99, model.RiskMedium},
		{60, model.RiskHigh},
		{100, model.RiskHigh},
	}
	for _, tc := range cases {
		if got := Level(tc.score); got != tc.want {
			t.Errorf("Level(%.2f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Value at Risk
// ────────────────────────────────────────────────────────────

func TestValueAtRisk_HistoricalSimulation(t *testing.T) {
	// floor((1-0.95)*5) = 0 → VaR = |-0.05| = 0.05
	returns := []float64{-0.05, -0.02, 0.01, 0.03, 0.04}
	assertClose(t, "VaR 95%", ValueAtRisk(returns, 0.95), 0.05, 1e-9)
}

func TestValueAtRisk_UnsortedInput(t *testing.T) {
	returns := []float64{0.04, -0.02, 0.03, -0.05, 0.01}
	assertClose(t, "VaR unsorted", ValueAtRisk(returns, 0.95), 0.05, 1e-9)
	// Input must not be mutated
	if returns[0] != 0.04 || returns[3] != -0.05 {
		t.Error("ValueAtRisk mutated its input")
	}
}

func TestValueAtRisk_Empty(t *testing.T) {
	if got := ValueAtRisk(nil, 0.95); got != 0 {
		t.Errorf("VaR of empty set = %.4f, want 0", got)
	}
}

func TestValueAtRisk_IndexPastEnd(t *testing.T) {
	// Confidence 0 pushes the index to N — guard returns 0.
	if got := ValueAtRisk([]float64{-0.01, 0.02}, 0); got != 0 {
		t.Errorf("VaR at confidence 0 = %.4f, want 0", got)
	}
}

// ────────────────────────────────────────────────────────────
// Sharpe ratio
// ────────────────────────────────────────────────────────────

func TestSharpeRatio(t *testing.T) {
	assertClose(t, "sharpe", SharpeRatio(0.10, 0.04, 0.02), 2.0, 1e-9)
	if got := SharpeRatio(0.10, 0, 0.02); got != 0 {
		t.Errorf("sharpe with zero std = %.4f, want 0", got)
	}
}

// ────────────────────────────────────────────────────────────
// Portfolio risk
// ────────────────────────────────────────────────────────────

func TestPortfolioRisk_PerfectHedge(t *testing.T) {
	// Two perfectly anti-correlated assets in equal weight: the
	// portfolio return is constant, so the variance collapses to 0.
	weights := []float64{0.5, 0.5}
	returns := [][]float64{
		{0.01, 0.02, 0.03},
		{0.03, 0.02, 0.01},
	}

	m, err := PortfolioRisk(weights, returns, DefaultRiskFreeRate)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "variance", m.Variance, 0, 1e-12)
	assertClose(t, "std", m.StdDev, 0, 1e-9)
	if m.Sharpe != 0 {
		t.Errorf("sharpe with zero std = %.4f, want 0", m.Sharpe)
	}
	assertClose(t, "corr off-diag", m.Correlation[0][1], -1, 1e-9)
}

func TestPortfolioRisk_SingleAsset(t *testing.T) {
	// Sample variance of {0.01, 0.03} = 0.0002; rf 0 → sharpe = mean/std.
	m, err := PortfolioRisk([]float64{1}, [][]float64{{0.01, 0.03}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, "variance", m.Variance, 0.0002, 1e-12)
	assertClose(t, "std", m.StdDev, math.Sqrt(0.0002), 1e-9)
	assertClose(t, "sharpe", m.Sharpe, 0.02/math.Sqrt(0.0002), 1e-9)
}

func TestPortfolioRisk_CorrelationProperties(t *testing.T) {
	// Diagonal is exactly 1 and the matrix is symmetric for any
	// non-degenerate return set.
	weights := []float64{0.4, 0.35, 0.25}
	returns := [][]float64{
		{0.010, -0.004, 0.022, -0.011, 0.007, 0.003},
		{-0.002, 0.015, -0.008, 0.019, -0.005, 0.011},
		{0.005, 0.002, -0.013, 0.008, 0.016, -0.009},
	}

	m, err := PortfolioRisk(weights, returns, DefaultRiskFreeRate)
	if err != nil {
		t.Fatal(err)
	}
	n := len(m.Correlation)
	if n != 3 {
		t.Fatalf("correlation matrix is %dx%d, want 3x3", n, n)
	}
	for i := 0; i < n; i++ {
		assertClose(t, "diagonal", m.Correlation[i][i], 1, 1e-9)
		for j := 0; j < n; j++ {
			if math.Abs(m.Correlation[i][j]-m.Correlation[j][i]) > 1e-12 {
				t.Errorf("correlation not symmetric at (%d,%d)", i, j)
			}
			if m.Correlation[i][j] < -1-1e-9 || m.Correlation[i][j] > 1+1e-9 {
				t.Errorf("correlation[%d][%d] = %.4f outside [-1,1]", i, j, m.Correlation[i][j])
			}
		}
	}
	if m.Variance < 0 {
		t.Errorf("variance = %.6f, want >= 0", m.Variance)
	}
}

func TestPortfolioRisk_InputValidation(t *testing.T) {
	if _, err := PortfolioRisk(nil, nil, 0.02); err == nil {
		t.Error("expected error for empty weights")
	}
	if _, err := PortfolioRisk([]float64{0.5, 0.5}, [][]float64{{0.01, 0.02}}, 0.02); err == nil {
		t.Error("expected error for weight/series count mismatch")
	}
	if _, err := PortfolioRisk([]float64{0.5, 0.5}, [][]float64{{0.01, 0.02}, {0.01}}, 0.02); err == nil {
		t.Error("expected error for ragged return series")
	}
	if _, err := PortfolioRisk([]float64{1}, [][]float64{{0.01}}, 0.02); err == nil {
		t.Error("expected error for a single sample")
	}
}
