// Package testing provides deterministic fixtures and helpers shared by the package tests.
package testing

import (
	"math"
	"math/rand"
	"time"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
)

// BusinessDays returns n consecutive weekdays starting at (or after) start.
func BusinessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for len(days) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

// SeriesSpec describes one synthetic instrument driven by a common market shock.
type SeriesSpec struct {
	Symbol string
	Beta   float64 // loading on the common shock
	Vol    float64 // idiosyncratic daily volatility
	Volume float64 // average daily volume
	Spread float64 // high/low range as a fraction of close
}

// CorrelatedPrices generates deterministic bar series for the given specs on a shared
// calendar. Daily log return of instrument i is Beta_i*m_t + Vol_i*e_it with
// m_t ~ N(drift, marketVol) common to all instruments.
func CorrelatedPrices(specs []SeriesSpec, dates []time.Time, drift, marketVol float64, seed int64) []domain.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	out := make([]domain.PriceSeries, len(specs))
	prices := make([]float64, len(specs))
	for i, s := range specs {
		out[i] = domain.PriceSeries{Symbol: s.Symbol, Bars: make([]domain.Bar, 0, len(dates))}
		prices[i] = 100
	}

	for t, d := range dates {
		m := drift + marketVol*rng.NormFloat64()
		for i, s := range specs {
			if t > 0 {
				r := s.Beta*m + s.Vol*rng.NormFloat64()
				prices[i] *= math.Exp(r)
			}
			spread := s.Spread
			if spread == 0 {
				spread = 0.02
			}
			volume := s.Volume
			if volume == 0 {
				volume = 1_000_000
			}
			c := prices[i]
			out[i].Bars = append(out[i].Bars, domain.Bar{
				Date:   d,
				Open:   c,
				High:   c * (1 + spread/2),
				Low:    c * (1 - spread/2),
				Close:  c,
				Volume: volume * (0.8 + 0.4*rng.Float64()),
			})
		}
	}

	return out
}

// ConstantBars builds a series with fixed close and volume on every date.
func ConstantBars(symbol string, dates []time.Time, close, volume float64) domain.PriceSeries {
	s := domain.PriceSeries{Symbol: symbol, Bars: make([]domain.Bar, len(dates))}
	for i, d := range dates {
		s.Bars[i] = domain.Bar{Date: d, Open: close, High: close, Low: close, Close: close, Volume: volume}
	}
	return s
}

// NormalReturns draws n deterministic N(mu, sigma) returns.
func NormalReturns(n int, mu, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*rng.NormFloat64()
	}
	return out
}
