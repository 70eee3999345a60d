// Package timeseries builds calendar-aligned return matrices from per-symbol bar series.
//
// Missing observations are tracked with an explicit presence mask instead of NaN,
// so alignment and aggregation never depend on NaN propagation rules.
package timeseries

import (
	"math"
	"time"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
)

// ReturnSeries is a dated sequence of daily log returns for one symbol.
type ReturnSeries struct {
	Symbol string      `json:"symbol"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of observations.
func (r ReturnSeries) Len() int {
	return len(r.Values)
}

// LogReturns derives log(close[t]) - log(close[t-1]) from a price series.
// Bars with a non-positive or non-finite close are dropped first (never zero-filled),
// and the date of return i is the date of the later close.
func LogReturns(s domain.PriceSeries) ReturnSeries {
	out := ReturnSeries{Symbol: s.Symbol}

	prevClose := 0.0
	hasPrev := false
	for _, bar := range s.Bars {
		c := bar.Close
		if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		if hasPrev {
			out.Dates = append(out.Dates, bar.Date)
			out.Values = append(out.Values, math.Log(c)-math.Log(prevClose))
		}
		prevClose = c
		hasPrev = true
	}

	return out
}

// FromPriceSeries converts every price series into its log-return series.
func FromPriceSeries(series []domain.PriceSeries) []ReturnSeries {
	out := make([]ReturnSeries, 0, len(series))
	for _, s := range series {
		out = append(out, LogReturns(s))
	}
	return out
}

// Window returns the observations dated within [from, to] (inclusive).
func (r ReturnSeries) Window(from, to time.Time) ReturnSeries {
	out := ReturnSeries{Symbol: r.Symbol}
	lo, hi := dayKey(from), dayKey(to)
	for i, d := range r.Dates {
		k := dayKey(d)
		if k < lo || k > hi {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Values = append(out.Values, r.Values[i])
	}
	return out
}

// Tail returns the last n observations.
func (r ReturnSeries) Tail(n int) ReturnSeries {
	if n <= 0 || n >= len(r.Values) {
		return r
	}
	start := len(r.Values) - n
	return ReturnSeries{
		Symbol: r.Symbol,
		Dates:  r.Dates[start:],
		Values: r.Values[start:],
	}
}

// dayKey collapses a timestamp to its calendar day (yyyymmdd) so feeds with
// different time-of-day or location components still line up.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
