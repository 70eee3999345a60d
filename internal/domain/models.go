// Package domain provides core domain models and types.
package domain

import "time"

// Bar is one daily observation for an instrument.
// Bid and Ask are optional; most historical feeds only carry OHLCV.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Bid    *float64  `json:"bid,omitempty"`
	Ask    *float64  `json:"ask,omitempty"`
}

// PriceSeries is the ordered bar history of a single symbol (dates strictly increasing).
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Volumes returns the traded volumes in date order.
func (s PriceSeries) Volumes() []float64 {
	volumes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		volumes[i] = b.Volume
	}
	return volumes
}

// LastClose returns the most recent close, or false if the series is empty.
func (s PriceSeries) LastClose() (float64, bool) {
	if len(s.Bars) == 0 {
		return 0, false
	}
	return s.Bars[len(s.Bars)-1].Close, true
}

// Holding is a portfolio position expressed in shares.
type Holding struct {
	Symbol string  `json:"symbol"`
	Shares float64 `json:"shares"`
}

// Diagnostic records a soft failure that was absorbed during a computation
// (fallback estimator, clipped value, excluded item).
type Diagnostic struct {
	Component string `json:"component"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
}
