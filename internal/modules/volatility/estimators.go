package volatility

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// MinModelObservations is the history below which only the sample estimator is used.
const MinModelObservations = 30

// Estimator produces a daily volatility from daily returns.
// ok is false when the estimator cannot produce a finite, non-negative forecast.
type Estimator interface {
	Name() string
	Estimate(returns []float64) (sigma float64, ok bool)
}

// FirstSuccess runs the chain in order and returns the first usable forecast
// together with the name of the estimator that produced it.
func FirstSuccess(chain []Estimator, returns []float64) (float64, string, bool) {
	for _, e := range chain {
		if sigma, ok := e.Estimate(returns); ok {
			return sigma, e.Name(), true
		}
	}
	return 0, "", false
}

// Chain returns the ranked estimators for model given n finite observations.
func Chain(model Model, n int, log zerolog.Logger) []Estimator {
	if n < MinModelObservations {
		return []Estimator{SampleEstimator{}}
	}
	switch model.Kind {
	case GARCH:
		return []Estimator{&GARCHEstimator{log: log}, SampleEstimator{}}
	case EGARCH:
		return []Estimator{&EGARCHEstimator{log: log}, SampleEstimator{}}
	default:
		return []Estimator{EWMAEstimator{HalfLife: model.HalfLife}, SampleEstimator{}}
	}
}

// EWMAEstimator is the zero-mean exponentially weighted variance recursion
// var[t] = λ·var[t-1] + (1-λ)·r[t]², seeded with r[0]², λ = 0.5^(1/h).
type EWMAEstimator struct {
	HalfLife int
}

func (EWMAEstimator) Name() string { return "ewma" }

// Lambda returns the decay implied by the half-life.
func (e EWMAEstimator) Lambda() float64 {
	return math.Pow(0.5, 1/float64(e.HalfLife))
}

func (e EWMAEstimator) Estimate(returns []float64) (float64, bool) {
	if len(returns) == 0 || e.HalfLife <= 0 {
		return 0, false
	}
	lambda := e.Lambda()
	variance := returns[0] * returns[0]
	for _, r := range returns[1:] {
		variance = lambda*variance + (1-lambda)*r*r
	}
	sigma := math.Sqrt(variance)
	return sigma, formulas.IsFinite(sigma)
}

// SampleEstimator is the sample standard deviation; the last resort of every chain.
type SampleEstimator struct{}

func (SampleEstimator) Name() string { return "sample" }

func (SampleEstimator) Estimate(returns []float64) (float64, bool) {
	if len(returns) < 2 {
		return 0, false
	}
	sigma := formulas.StdDev(returns)
	return sigma, formulas.IsFinite(sigma)
}
