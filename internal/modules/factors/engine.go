package factors

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
)

const (
	DefaultWindow    = 60
	DefaultMaxPoints = 400
	MarketFactor     = "market"
)

// Factor is a style or market factor represented by a proxy instrument.
// A market-neutral factor regresses on proxy minus the market proxy.
type Factor struct {
	Name          string `json:"name" yaml:"name"`
	Proxy         string `json:"proxy" yaml:"proxy"`
	MarketNeutral bool   `json:"market_neutral" yaml:"market_neutral"`
}

// DefaultFactors returns the market factor followed by the style factors.
func DefaultFactors(marketProxy string) []Factor {
	return []Factor{
		{Name: MarketFactor, Proxy: marketProxy},
		{Name: "momentum", Proxy: "MTUM", MarketNeutral: true},
		{Name: "size", Proxy: "IWM", MarketNeutral: true},
		{Name: "value", Proxy: "VLUE", MarketNeutral: true},
		{Name: "quality", Proxy: "QUAL", MarketNeutral: true},
	}
}

// Proxies lists the instruments whose history the factors need.
func Proxies(factors []Factor) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range factors {
		if !seen[f.Proxy] {
			seen[f.Proxy] = true
			out = append(out, f.Proxy)
		}
	}
	return out
}

// Exposures holds per-instrument and portfolio factor betas.
type Exposures struct {
	Factors          []string                          `json:"factors"`
	Latest           map[string]map[string]Fit         `json:"latest"`
	History          map[string]map[string][]BetaPoint `json:"history"`
	PortfolioBeta    map[string]float64                `json:"portfolio_beta"`
	PortfolioHistory map[string][]BetaPoint            `json:"portfolio_history"`
	Excluded         map[string]string                 `json:"excluded,omitempty"`
}

// Engine estimates rolling factor exposures.
type Engine struct {
	factors     []Factor
	marketProxy string
	window      int
	maxPoints   int
	log         zerolog.Logger
}

// NewEngine creates an engine. The first market (non-neutral) factor's proxy is
// the market used to neutralize style factors.
func NewEngine(factors []Factor, window int, log zerolog.Logger) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	e := &Engine{
		factors:   factors,
		window:    window,
		maxPoints: DefaultMaxPoints,
		log:       log.With().Str("component", "factor_exposure").Logger(),
	}
	for _, f := range factors {
		if !f.MarketNeutral {
			e.marketProxy = f.Proxy
			break
		}
	}
	return e
}

// Factors returns the configured factors.
func (e *Engine) Factors() []Factor {
	return e.factors
}

// factorReturns builds the dated factor return series from the aligned matrix.
func (e *Engine) factorReturns(m *timeseries.AlignedMatrix, f Factor) ([]time.Time, []float64, error) {
	col, ok := m.Index(f.Proxy)
	if !ok {
		return nil, nil, fmt.Errorf("proxy %s has insufficient history", f.Proxy)
	}
	mkt := -1
	if f.MarketNeutral {
		mkt, ok = m.Index(e.marketProxy)
		if !ok {
			return nil, nil, fmt.Errorf("market proxy %s has insufficient history", e.marketProxy)
		}
	}

	var dates []time.Time
	var values []float64
	for t := 0; t < m.Rows(); t++ {
		v, ok := m.At(t, col)
		if !ok {
			continue
		}
		if mkt >= 0 {
			mv, ok := m.At(t, mkt)
			if !ok {
				continue
			}
			v -= mv
		}
		dates = append(dates, m.Dates[t])
		values = append(values, v)
	}
	return dates, values, nil
}

// pair joins two dated series on common dates.
func pair(yDates []time.Time, y []float64, xDates []time.Time, x []float64) ([]time.Time, []float64, []float64) {
	idx := make(map[time.Time]int, len(xDates))
	for i, d := range xDates {
		idx[d] = i
	}
	var dates []time.Time
	var py, px []float64
	for i, d := range yDates {
		if j, ok := idx[d]; ok {
			dates = append(dates, d)
			py = append(py, y[i])
			px = append(px, x[j])
		}
	}
	return dates, py, px
}

func (e *Engine) rolling(dates []time.Time, y, x []float64) []BetaPoint {
	// only the windows ending in the retained tail are estimated
	if extra := len(y) - (e.maxPoints + e.window - 1); extra > 0 {
		dates, y, x = dates[extra:], y[extra:], x[extra:]
	}
	points := RollingBeta(dates, y, x, e.window)
	if len(points) > e.maxPoints {
		points = points[len(points)-e.maxPoints:]
	}
	return points
}

// Exposures estimates rolling betas of every weighted instrument in m against every
// factor, plus the portfolio beta per factor. The portfolio beta is the weighted sum
// Σ wᵢβᵢ over instruments with an estimate, not a weighted average: it is left
// unnormalized so it reports absolute exposure.
func (e *Engine) Exposures(m *timeseries.AlignedMatrix, weights map[string]float64) *Exposures {
	out := &Exposures{
		Latest:           make(map[string]map[string]Fit),
		History:          make(map[string]map[string][]BetaPoint),
		PortfolioBeta:    make(map[string]float64),
		PortfolioHistory: make(map[string][]BetaPoint),
		Excluded:         make(map[string]string),
	}

	portfolio := timeseries.PortfolioReturns(m, weights, timeseries.DefaultMinCoverage)

	for _, f := range e.factors {
		fDates, fValues, err := e.factorReturns(m, f)
		if err != nil {
			out.Excluded[f.Name] = err.Error()
			e.log.Debug().Str("factor", f.Name).Err(err).Msg("Factor excluded")
			continue
		}
		out.Factors = append(out.Factors, f.Name)

		for symbol, w := range weights {
			col, ok := m.Index(symbol)
			if !ok {
				out.Excluded[symbol] = "insufficient aligned history"
				continue
			}
			yDates, yValues := m.Column(col)
			dates, y, x := pair(yDates, yValues, fDates, fValues)
			points := e.rolling(dates, y, x)
			if len(points) == 0 {
				out.Excluded[symbol] = fmt.Sprintf("fewer than %d paired observations", e.window)
				continue
			}
			last := points[len(points)-1]
			if out.Latest[symbol] == nil {
				out.Latest[symbol] = make(map[string]Fit)
				out.History[symbol] = make(map[string][]BetaPoint)
			}
			latest := Fit{Beta: last.Beta, R2: last.R2, N: e.window}
			if fit, ok := OLS(x[len(x)-e.window:], y[len(y)-e.window:]); ok {
				latest = fit
			}
			out.Latest[symbol][f.Name] = latest
			out.History[symbol][f.Name] = points
			out.PortfolioBeta[f.Name] += w * last.Beta
		}

		dates, y, x := pair(portfolio.Dates, portfolio.Values, fDates, fValues)
		if points := e.rolling(dates, y, x); len(points) > 0 {
			out.PortfolioHistory[f.Name] = points
		}
	}

	e.log.Debug().
		Int("factors", len(out.Factors)).
		Int("instruments", len(out.Latest)).
		Int("excluded", len(out.Excluded)).
		Msg("Factor exposures estimated")
	return out
}
