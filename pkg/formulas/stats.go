// Package formulas holds the small numeric building blocks shared by the risk modules.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the fixed annualization factor for daily data.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (N-1 denominator).
// Fewer than two observations yield 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Annualize scales a daily volatility by sqrt(252).
func Annualize(dailySigma float64) float64 {
	return dailySigma * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return Annualize(StdDev(dailyReturns))
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Finite returns the finite values of data, preserving order.
func Finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// Correlation calculates the Pearson correlation coefficient between two datasets.
// Returns false if the inputs are too short or either side has zero variance.
func Correlation(x, y []float64) (float64, bool) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, false
	}
	c := stat.Correlation(x, y, nil)
	if !IsFinite(c) {
		return 0, false
	}
	return c, true
}
