package volatility

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

const (
	// Daily returns are clamped to this magnitude before fitting.
	maxAbsFitReturn = 0.20
	// Only the most recent observations are used for the likelihood.
	maxFitObservations = 1000
	// Returns are fit in percent to keep the optimizer well scaled.
	fitScale = 100.0
	// Penalty returned for parameters producing an invalid variance path.
	badLikelihood  = 1e10
	maxPersistence = 0.999
)

// prepareFitSeries clamps, truncates, scales and demeans the returns.
func prepareFitSeries(returns []float64) []float64 {
	if len(returns) > maxFitObservations {
		returns = returns[len(returns)-maxFitObservations:]
	}
	x := make([]float64, len(returns))
	for i, r := range returns {
		x[i] = formulas.Clip(r, -maxAbsFitReturn, maxAbsFitReturn) * fitScale
	}
	mu := formulas.Mean(x)
	for i := range x {
		x[i] -= mu
	}
	return x
}

func variance(x []float64) float64 {
	v := 0.0
	for _, xi := range x {
		v += xi * xi
	}
	return v / float64(len(x))
}

func logistic(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

// minimize runs Nelder–Mead from init and returns the best point found.
func minimize(nll func([]float64) float64, init []float64) ([]float64, bool) {
	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{
		MajorIterations: 2000,
		FuncEvaluations: 4000,
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if result == nil {
		return nil, false
	}
	if err != nil && !formulas.IsFinite(result.F) {
		return nil, false
	}
	if result.F >= badLikelihood {
		return nil, false
	}
	return result.X, true
}

// GARCHEstimator fits GARCH(1,1) by Gaussian maximum likelihood:
//
//	σ²[t] = ω + α·x²[t-1] + β·σ²[t-1],  ω > 0, α, β ≥ 0, α+β < 1
//
// and returns the one-step-ahead forecast.
type GARCHEstimator struct {
	log zerolog.Logger
}

func (*GARCHEstimator) Name() string { return "garch" }

// garchParams maps unconstrained optimizer coordinates onto the admissible region.
func garchParams(p []float64) (omega, alpha, beta float64) {
	omega = math.Exp(p[0])
	persistence := maxPersistence * logistic(p[1])
	alpha = persistence * logistic(p[2])
	beta = persistence - alpha
	return
}

// garchPath returns the negative log-likelihood and the next-step variance.
func garchPath(x []float64, omega, alpha, beta float64) (float64, float64) {
	s2 := variance(x)
	nll := 0.0
	for t := range x {
		if t > 0 {
			s2 = omega + alpha*x[t-1]*x[t-1] + beta*s2
		}
		if s2 <= 0 || !formulas.IsFinite(s2) {
			return badLikelihood, 0
		}
		nll += 0.5 * (math.Log(s2) + x[t]*x[t]/s2)
	}
	last := x[len(x)-1]
	return nll, omega + alpha*last*last + beta*s2
}

func (g *GARCHEstimator) Estimate(returns []float64) (float64, bool) {
	x := prepareFitSeries(returns)
	if len(x) < MinModelObservations {
		return 0, false
	}
	v := variance(x)
	if v <= 0 {
		return 0, false
	}

	init := []float64{
		math.Log(v * 0.1),
		logit(0.9 / maxPersistence),
		logit(0.1 / 0.9),
	}
	params, ok := minimize(func(p []float64) float64 {
		omega, alpha, beta := garchParams(p)
		nll, _ := garchPath(x, omega, alpha, beta)
		return nll
	}, init)
	if !ok {
		g.log.Warn().Int("observations", len(x)).Msg("GARCH fit failed")
		return 0, false
	}

	omega, alpha, beta := garchParams(params)
	_, next := garchPath(x, omega, alpha, beta)
	sigma := math.Sqrt(next) / fitScale
	if !formulas.IsFinite(sigma) || sigma <= 0 {
		g.log.Warn().Float64("sigma", sigma).Msg("GARCH forecast not usable")
		return 0, false
	}

	g.log.Debug().
		Float64("omega", omega).
		Float64("alpha", alpha).
		Float64("beta", beta).
		Msg("GARCH fitted")
	return sigma, true
}

// EGARCHEstimator fits Nelson's EGARCH(1,1):
//
//	ln σ²[t] = ω + β·ln σ²[t-1] + α·(|z[t-1]| − √(2/π)) + γ·z[t-1],  |β| < 1
//
// where z = x/σ, and returns the one-step-ahead forecast.
type EGARCHEstimator struct {
	log zerolog.Logger
}

func (*EGARCHEstimator) Name() string { return "egarch" }

var expectedAbsNormal = math.Sqrt(2 / math.Pi)

func egarchParams(p []float64) (omega, alpha, gamma, beta float64) {
	return p[0], p[1], p[2], maxPersistence * math.Tanh(p[3])
}

func egarchPath(x []float64, omega, alpha, gamma, beta float64) (float64, float64) {
	logS2 := math.Log(variance(x))
	nll := 0.0
	step := func(z float64) float64 {
		return omega + beta*logS2 + alpha*(math.Abs(z)-expectedAbsNormal) + gamma*z
	}
	for t := range x {
		if t > 0 {
			z := x[t-1] / math.Sqrt(math.Exp(logS2))
			logS2 = step(z)
		}
		if !formulas.IsFinite(logS2) || math.Abs(logS2) > 50 {
			return badLikelihood, 0
		}
		nll += 0.5 * (logS2 + x[t]*x[t]/math.Exp(logS2))
	}
	z := x[len(x)-1] / math.Sqrt(math.Exp(logS2))
	return nll, math.Exp(step(z))
}

func (e *EGARCHEstimator) Estimate(returns []float64) (float64, bool) {
	x := prepareFitSeries(returns)
	if len(x) < MinModelObservations {
		return 0, false
	}
	v := variance(x)
	if v <= 0 {
		return 0, false
	}

	const beta0 = 0.95
	init := []float64{
		(1 - beta0) * math.Log(v),
		0.1,
		0,
		math.Atanh(beta0 / maxPersistence),
	}
	params, ok := minimize(func(p []float64) float64 {
		omega, alpha, gamma, beta := egarchParams(p)
		nll, _ := egarchPath(x, omega, alpha, gamma, beta)
		return nll
	}, init)
	if !ok {
		e.log.Warn().Int("observations", len(x)).Msg("EGARCH fit failed")
		return 0, false
	}

	omega, alpha, gamma, beta := egarchParams(params)
	_, next := egarchPath(x, omega, alpha, gamma, beta)
	sigma := math.Sqrt(next) / fitScale
	if !formulas.IsFinite(sigma) || sigma <= 0 {
		e.log.Warn().Float64("sigma", sigma).Msg("EGARCH forecast not usable")
		return 0, false
	}

	e.log.Debug().
		Float64("omega", omega).
		Float64("alpha", alpha).
		Float64("gamma", gamma).
		Float64("beta", beta).
		Msg("EGARCH fitted")
	return sigma, true
}
