package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// TrailingMean returns the mean of the last `period` values.
// Uses go-talib SMA when enough data exists, otherwise the plain mean of what is there.
func TrailingMean(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period == 1 {
		return values[len(values)-1]
	}
	if period <= 0 || len(values) < period {
		return Mean(values)
	}

	sma := talib.Sma(values, period)
	if len(sma) > 0 {
		last := sma[len(sma)-1]
		if !math.IsNaN(last) {
			return last
		}
	}
	return Mean(values[len(values)-period:])
}
