package stress

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

const (
	DefaultMinCoverage = 0.30
	DefaultMinDays     = 10
)

// Result is the outcome of replaying one scenario with today's weights.
type Result struct {
	Name        string    `json:"name"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Return      float64   `json:"return"`
	MaxDrawdown float64   `json:"max_drawdown"`
	WorstDay    float64   `json:"worst_day"`
	WorstDate   time.Time `json:"worst_date"`
	Coverage    float64   `json:"coverage"`
	Days        int       `json:"days"`
	Instruments []string  `json:"instruments"`
}

// Exclusion explains why a scenario produced no result.
type Exclusion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Report lists scenario results and excluded scenarios.
type Report struct {
	Results  []Result    `json:"results"`
	Excluded []Exclusion `json:"excluded"`
	Worst    *Result     `json:"worst,omitempty"`
}

// Engine replays scenarios.
//
// Weights are held static across each window; rebalancing and path-dependent
// position changes are not modelled.
type Engine struct {
	scenarios   []Scenario
	minCoverage float64
	minDays     int
	log         zerolog.Logger
}

// NewEngine creates an engine over scenarios (DefaultScenarios when empty).
func NewEngine(scenarios []Scenario, minCoverage float64, minDays int, log zerolog.Logger) *Engine {
	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}
	if minCoverage <= 0 {
		minCoverage = DefaultMinCoverage
	}
	if minDays <= 0 {
		minDays = DefaultMinDays
	}
	return &Engine{
		scenarios:   scenarios,
		minCoverage: minCoverage,
		minDays:     minDays,
		log:         log.With().Str("component", "stress_scenarios").Logger(),
	}
}

// Scenarios returns the configured scenarios.
func (e *Engine) Scenarios() []Scenario {
	return e.scenarios
}

// Run replays every scenario. series must include the reference instrument,
// which supplies the trading calendar of each window.
func (e *Engine) Run(series []timeseries.ReturnSeries, reference string, weights map[string]float64) Report {
	report := Report{Results: []Result{}, Excluded: []Exclusion{}}
	for _, sc := range e.scenarios {
		res, reason := e.replay(sc, series, reference, weights)
		if reason != "" {
			report.Excluded = append(report.Excluded, Exclusion{Name: sc.Name, Reason: reason})
			e.log.Debug().Str("scenario", sc.Name).Str("reason", reason).Msg("Scenario excluded")
			continue
		}
		report.Results = append(report.Results, res)
	}

	for i := range report.Results {
		if report.Worst == nil || report.Results[i].Return < report.Worst.Return {
			report.Worst = &report.Results[i]
		}
	}
	return report
}

func (e *Engine) replay(sc Scenario, series []timeseries.ReturnSeries, reference string, weights map[string]float64) (Result, string) {
	windowed := make([]timeseries.ReturnSeries, len(series))
	for i, s := range series {
		windowed[i] = s.Window(sc.Start, sc.End)
	}

	m := timeseries.Align(windowed, reference, e.minDays)
	if m.Empty() {
		return Result{}, fmt.Sprintf("reference %s has fewer than %d trading days in window", reference, e.minDays)
	}

	coverage := timeseries.Coverage(m, weights)
	if coverage < e.minCoverage {
		return Result{}, fmt.Sprintf("weight coverage %.1f%% below required %.1f%%", coverage*100, e.minCoverage*100)
	}

	portfolio := timeseries.PortfolioReturns(m, weights, e.minCoverage)
	if portfolio.Len() < e.minDays {
		return Result{}, fmt.Sprintf("%d trading days with sufficient coverage, fewer than %d", portfolio.Len(), e.minDays)
	}

	res := Result{
		Name:        sc.Name,
		Start:       sc.Start,
		End:         sc.End,
		Coverage:    coverage,
		Days:        portfolio.Len(),
		MaxDrawdown: formulas.MaxDrawdown(portfolio.Values, true),
	}
	total := 0.0
	worst := math.Inf(1)
	for i, r := range portfolio.Values {
		total += r
		if r < worst {
			worst = r
			res.WorstDate = portfolio.Dates[i]
		}
	}
	res.Return = math.Exp(total) - 1
	res.WorstDay = math.Exp(worst) - 1
	for _, s := range m.Symbols {
		if weights[s] != 0 {
			res.Instruments = append(res.Instruments, s)
		}
	}
	return res, ""
}
