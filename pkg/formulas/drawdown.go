package formulas

import "math"

// CumulativeValue turns a return sequence into a value path starting at 1.
// Log returns compound as exp(cumsum(r)), simple returns as cumprod(1+r).
func CumulativeValue(returns []float64, logReturns bool) []float64 {
	values := make([]float64, len(returns))
	acc := 0.0
	prod := 1.0
	for i, r := range returns {
		if logReturns {
			acc += r
			values[i] = math.Exp(acc)
		} else {
			prod *= 1 + r
			values[i] = prod
		}
	}
	return values
}

// DrawdownSeries returns (value - runningPeak) / runningPeak for each step, clipped to <= 0.
func DrawdownSeries(returns []float64, logReturns bool) []float64 {
	values := CumulativeValue(returns, logReturns)
	drawdowns := make([]float64, len(values))

	peak := math.Inf(-1)
	for i, v := range values {
		if v > peak {
			peak = v
		}
		dd := 0.0
		if peak > 0 {
			dd = (v - peak) / peak
		}
		drawdowns[i] = math.Min(dd, 0)
	}
	return drawdowns
}

// MaxDrawdown is the minimum of DrawdownSeries (a non-positive fraction, 0 for empty input).
func MaxDrawdown(returns []float64, logReturns bool) float64 {
	worst := 0.0
	for _, dd := range DrawdownSeries(returns, logReturns) {
		if dd < worst {
			worst = dd
		}
	}
	return worst
}
