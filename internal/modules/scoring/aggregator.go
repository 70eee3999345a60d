// Package scoring aggregates normalized risk metrics into one portfolio risk score.
//
// Every component score reads 0 = least risky, 1 = riskiest.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// Component names
const (
	Concentration = "concentration"
	Volatility    = "volatility"
	Correlation   = "correlation"
	MarketBeta    = "market_beta"
	Liquidity     = "liquidity"
	Stress        = "stress"
	Regime        = "regime"
)

// Bound maps a raw metric onto [0,1]. With High > Low the metric is scaled
// linearly between them; otherwise it is scaled from 0 to Max. Invert is set for
// metrics where a higher raw value means LOWER risk (a liquidity score, say).
type Bound struct {
	Low    float64 `json:"low" yaml:"low"`
	High   float64 `json:"high" yaml:"high"`
	Max    float64 `json:"max" yaml:"max"`
	Invert bool    `json:"invert" yaml:"invert"`
}

// DefaultBounds returns the normalization bounds of the standard components.
func DefaultBounds() map[string]Bound {
	return map[string]Bound{
		Concentration: {Low: 0.05, High: 0.40},
		Volatility:    {Low: 0.10, High: 0.40},
		Correlation:   {Low: 0.20, High: 0.80},
		MarketBeta:    {Low: 0.5, High: 1.5},
		Liquidity:     {Low: 1, High: 10, Invert: true},
		Stress:        {Max: 0.50},
		Regime:        {Low: 0, High: 1},
	}
}

// DefaultWeights returns the component weights; components not listed weigh 1.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		Concentration: 1,
		Volatility:    1,
		Correlation:   1,
		MarketBeta:    1,
		Liquidity:     1,
		Stress:        1,
		Regime:        1,
	}
}

// RegimeRisk converts a regime label into a raw [0,1] metric. Unknown labels are neutral.
func RegimeRisk(regime string) float64 {
	switch regime {
	case "Bull":
		return 0
	case "Cautious":
		return 0.6
	case "Crisis":
		return 1
	default:
		return 0.25
	}
}

// Normalize scales v into [0,1] under b.
func Normalize(v float64, b Bound) float64 {
	var x float64
	switch {
	case b.High > b.Low:
		x = (v - b.Low) / (b.High - b.Low)
	case b.Max > 0:
		x = v / b.Max
	case v >= b.High:
		x = 1
	}
	x = formulas.Clip(x, 0, 1)
	if b.Invert {
		x = 1 - x
	}
	return x
}

// Component is one scored metric.
type Component struct {
	Name         string  `json:"name"`
	Raw          float64 `json:"raw"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution_pct"`
}

// Score is the aggregated risk score.
type Score struct {
	Components  []Component `json:"components"`
	Overall     float64     `json:"overall"`
	Clipped     bool        `json:"clipped"`
	Diagnostics []string    `json:"diagnostics,omitempty"`
}

// Aggregate normalizes every raw metric with its bound and combines them into a
// weighted average. Weights missing from weights default to 1. Contributions are
// each component's share of Σ score·weight in percent and sum to 100, or are all
// zero when every product is zero. Metrics without a bound or with a non-finite
// value are skipped with a diagnostic.
func Aggregate(raw map[string]float64, bounds map[string]Bound, weights map[string]float64) Score {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var s Score
	weightSum, weighted := 0.0, 0.0
	for _, name := range names {
		v := raw[name]
		b, ok := bounds[name]
		if !ok {
			s.Diagnostics = append(s.Diagnostics, fmt.Sprintf("%s: no normalization bound", name))
			continue
		}
		if !formulas.IsFinite(v) {
			s.Diagnostics = append(s.Diagnostics, fmt.Sprintf("%s: raw value is not finite", name))
			continue
		}
		w, ok := weights[name]
		if !ok {
			w = 1
		}
		c := Component{Name: name, Raw: v, Score: Normalize(v, b), Weight: w}
		s.Components = append(s.Components, c)
		weightSum += w
		weighted += c.Score * w
	}

	if weightSum > 0 {
		s.Overall = weighted / weightSum
	}
	if s.Overall < 0 || s.Overall > 1 || math.IsNaN(s.Overall) {
		s.Diagnostics = append(s.Diagnostics, fmt.Sprintf("overall score %v outside [0,1], clipped", s.Overall))
		if math.IsNaN(s.Overall) {
			s.Overall = 0
		}
		s.Overall = formulas.Clip(s.Overall, 0, 1)
		s.Clipped = true
	}

	if weighted != 0 {
		for i := range s.Components {
			c := &s.Components[i]
			c.Contribution = c.Score * c.Weight / weighted * 100
		}
	}
	return s
}
