// Package market_regime classifies the current risk regime of a portfolio from its
// trailing volatility, cross-asset correlation and momentum.
package market_regime

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// Regime is the classified market condition
type Regime string

const (
	RegimeCrisis   Regime = "Crisis"
	RegimeCautious Regime = "Cautious"
	RegimeBull     Regime = "Bull"
	RegimeNeutral  Regime = "Neutral"
)

const (
	DefaultWindow    = 60
	MomentumWindow   = 20
	minRegimeReturns = 2
)

// Thresholds for the ordered regime checks. Volatility is annualized.
type Thresholds struct {
	CrisisVolatility    float64 `yaml:"crisis_volatility"`
	CrisisCorrelation   float64 `yaml:"crisis_correlation"`
	CautiousVolatility  float64 `yaml:"cautious_volatility"`
	CautiousCorrelation float64 `yaml:"cautious_correlation"`
	BullVolatility      float64 `yaml:"bull_volatility"`
	BullCorrelation     float64 `yaml:"bull_correlation"`
}

// DefaultThresholds returns the standard regime thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CrisisVolatility:    0.35,
		CrisisCorrelation:   0.75,
		CautiousVolatility:  0.25,
		CautiousCorrelation: 0.60,
		BullVolatility:      0.18,
		BullCorrelation:     0.45,
	}
}

// Assessment is a regime together with the inputs that produced it.
type Assessment struct {
	Regime         Regime  `json:"regime"`
	Volatility     float64 `json:"volatility"`
	AvgCorrelation float64 `json:"avg_correlation"`
	Momentum       float64 `json:"momentum"`
	Observations   int     `json:"observations"`
	Reason         string  `json:"reason"`
}

// Classifier detects the regime over a trailing window
type Classifier struct {
	thresholds Thresholds
	window     int
	log        zerolog.Logger
}

// NewClassifier creates a classifier with the given window (DefaultWindow when <= 0).
func NewClassifier(thresholds Thresholds, window int, log zerolog.Logger) *Classifier {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Classifier{
		thresholds: thresholds,
		window:     window,
		log:        log.With().Str("component", "regime_classifier").Logger(),
	}
}

// Classify applies the ordered checks: stress signals (volatility, correlation)
// override momentum, and Bull needs positive momentum with both low volatility
// and low correlation.
func (c *Classifier) Classify(volatility, avgCorrelation, momentum float64) (Regime, string) {
	t := c.thresholds
	switch {
	case volatility >= t.CrisisVolatility:
		return RegimeCrisis, fmt.Sprintf("volatility %.1f%% at or above %.1f%%", volatility*100, t.CrisisVolatility*100)
	case avgCorrelation >= t.CrisisCorrelation:
		return RegimeCrisis, fmt.Sprintf("average correlation %.2f at or above %.2f", avgCorrelation, t.CrisisCorrelation)
	case volatility >= t.CautiousVolatility:
		return RegimeCautious, fmt.Sprintf("volatility %.1f%% at or above %.1f%%", volatility*100, t.CautiousVolatility*100)
	case avgCorrelation >= t.CautiousCorrelation:
		return RegimeCautious, fmt.Sprintf("average correlation %.2f at or above %.2f", avgCorrelation, t.CautiousCorrelation)
	case momentum > 0 && volatility < t.BullVolatility && avgCorrelation < t.BullCorrelation:
		return RegimeBull, "positive momentum with low volatility and correlation"
	default:
		return RegimeNeutral, "no stress or bull signal"
	}
}

// Assess classifies the trailing window of m for the given weights.
func (c *Classifier) Assess(m *timeseries.AlignedMatrix, weights map[string]float64) (Assessment, error) {
	tail := m.Tail(c.window)
	portfolio := timeseries.PortfolioReturns(tail, weights, timeseries.DefaultMinCoverage)
	if portfolio.Len() < minRegimeReturns {
		return Assessment{}, fmt.Errorf("regime: %d portfolio returns in window: %w", portfolio.Len(), domain.ErrInsufficientData)
	}

	a := Assessment{
		Volatility:   formulas.AnnualizedVolatility(portfolio.Values),
		Momentum:     formulas.Mean(portfolio.Tail(MomentumWindow).Values),
		Observations: portfolio.Len(),
	}

	var held []string
	for _, sym := range tail.Symbols {
		if weights[sym] != 0 {
			held = append(held, sym)
		}
	}
	if len(held) > 1 {
		corr := timeseries.PairwiseCorrelation(tail.Select(held), timeseries.DefaultMinPeriods)
		if avg, ok := corr.Average(); ok {
			a.AvgCorrelation = avg
		}
	}

	a.Regime, a.Reason = c.Classify(a.Volatility, a.AvgCorrelation, a.Momentum)

	c.log.Debug().
		Str("regime", string(a.Regime)).
		Float64("volatility", a.Volatility).
		Float64("avg_correlation", a.AvgCorrelation).
		Float64("momentum", a.Momentum).
		Msg("Detected regime")
	return a, nil
}
