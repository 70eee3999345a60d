// Package risk decomposes portfolio risk and orchestrates the risk operations
// behind the result cache.
package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/portfolio"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// Contribution is one position's share of portfolio volatility.
type Contribution struct {
	Symbol     string  `json:"symbol"`
	Weight     float64 `json:"weight"`
	Volatility float64 `json:"volatility"`
	Marginal   float64 `json:"marginal"`
	Absolute   float64 `json:"absolute"`
	Percent    float64 `json:"percent"`
}

// Decomposition splits portfolio volatility into per-position contributions.
// Percent contributions sum to 100; negative marginals (hedges) are kept.
type Decomposition struct {
	PortfolioVolatility float64        `json:"portfolio_volatility"`
	Contributions       []Contribution `json:"contributions"`
}

// Decompose computes σp = √(wᵗΣw), marginal = Σw/σp, absolute = w⊙marginal and
// percent = 100·absolute/σp. A non-positive variance is a DegenerateInputError.
func Decompose(symbols []string, weights []float64, cov *mat.SymDense) (*Decomposition, error) {
	n := len(symbols)
	if n == 0 || len(weights) != n || cov == nil {
		return nil, domain.NewDegenerateInput("risk decomposition", "empty or mismatched weights (%d symbols, %d weights)", n, len(weights))
	}
	if r, _ := cov.Dims(); r != n {
		return nil, domain.NewDegenerateInput("risk decomposition", "covariance is %dx%d for %d symbols", r, r, n)
	}

	w := mat.NewVecDense(n, weights)
	var sw mat.VecDense
	sw.MulVec(cov, w)
	variance := mat.Dot(w, &sw)
	if !(variance > 0) || !formulas.IsFinite(variance) {
		return nil, domain.NewDegenerateInput("risk decomposition", "portfolio variance %v is not positive", variance)
	}
	sigma := math.Sqrt(variance)

	d := &Decomposition{
		PortfolioVolatility: sigma,
		Contributions:       make([]Contribution, n),
	}
	for i, s := range symbols {
		marginal := sw.AtVec(i) / sigma
		absolute := weights[i] * marginal
		d.Contributions[i] = Contribution{
			Symbol:     s,
			Weight:     weights[i],
			Volatility: math.Sqrt(math.Max(cov.At(i, i), 0)),
			Marginal:   marginal,
			Absolute:   absolute,
			Percent:    100 * absolute / sigma,
		}
	}
	return d, nil
}

// WeightVector orders weights by symbols and renormalizes them so their absolute
// values sum to 1 over the symbols present. Symbols missing from weights get 0.
func WeightVector(weights map[string]float64, symbols []string) ([]float64, error) {
	modelled := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		modelled[s] = true
	}
	scaled := portfolio.Renormalize(weights, func(s string) bool { return modelled[s] })
	if len(scaled) == 0 {
		return nil, domain.NewDegenerateInput("weight vector", "no weight on any of %d modelled symbols", len(symbols))
	}

	out := make([]float64, len(symbols))
	for i, s := range symbols {
		out[i] = scaled[s]
	}
	return out, nil
}

// ParametricVaR estimates Gaussian VaR and CVaR of daily returns at confidence.
// Both come back negative: they are losses.
func ParametricVaR(returns []float64, confidence float64) (formulas.VaRResult, error) {
	finite := formulas.Finite(returns)
	if len(finite) < 2 {
		return formulas.VaRResult{}, fmt.Errorf("var: %d returns: %w", len(finite), domain.ErrInsufficientData)
	}
	return formulas.ParametricVaRFromReturns(finite, confidence)
}
