// Package factors estimates rolling factor exposures (betas) of instruments and portfolios.
package factors

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// Fit is one ordinary least squares fit y = Alpha + Beta·x.
type Fit struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	R2    float64 `json:"r2"`
	N     int     `json:"n"`
}

// OLS regresses y on x with an intercept. ok is false for fewer than three
// observations or a constant regressor.
func OLS(x, y []float64) (Fit, bool) {
	if len(x) != len(y) || len(x) < 3 {
		return Fit{}, false
	}
	if formulas.StdDev(x) == 0 {
		return Fit{}, false
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if !formulas.IsFinite(alpha) || !formulas.IsFinite(beta) {
		return Fit{}, false
	}
	r2 := 0.0
	if formulas.StdDev(y) > 0 {
		r2 = stat.RSquared(x, y, nil, alpha, beta)
	}
	if !formulas.IsFinite(r2) {
		r2 = 0
	}
	return Fit{Alpha: alpha, Beta: beta, R2: formulas.Clip(r2, 0, 1), N: len(x)}, true
}

// BetaPoint is a dated beta estimate.
type BetaPoint struct {
	Date time.Time `json:"date"`
	Beta float64   `json:"beta"`
	R2   float64   `json:"r2"`
}

// MinWindow is the shortest rolling window that leaves a residual degree of freedom.
const MinWindow = 3

// RollingBeta re-estimates the OLS beta of y on x at every date with at least
// window paired trailing observations, using exactly the last window of them.
func RollingBeta(dates []time.Time, y, x []float64, window int) []BetaPoint {
	if window < MinWindow || len(y) != len(x) || len(dates) != len(y) || len(y) < window {
		return nil
	}
	out := make([]BetaPoint, 0, len(y)-window+1)
	for end := window; end <= len(y); end++ {
		fit, ok := OLS(x[end-window:end], y[end-window:end])
		if !ok {
			continue
		}
		out = append(out, BetaPoint{Date: dates[end-1], Beta: fit.Beta, R2: fit.R2})
	}
	return out
}
