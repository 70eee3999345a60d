// Package covariance builds the covariance risk model: forecast volatilities
// combined with a repaired pairwise correlation matrix.
package covariance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
)

// Constants for risk model configuration
const (
	LookbackDays    = 252   // 1 year of trading days
	MinObservations = 40    // overlap with the reference inside the lookback
	MinPairPeriods  = 40    // common observations per correlation pair
	VolatilityFloor = 0.005 // annualized
)

// RiskModel is the covariance model Σ = D·ρ·D over Symbols.
type RiskModel struct {
	Symbols      []string                     `json:"symbols"`
	Volatilities []float64                    `json:"volatilities"`
	Correlation  [][]float64                  `json:"correlation"`
	Covariance   [][]float64                  `json:"covariance"`
	Forecasts    map[string]volatility.Result `json:"forecasts"`
	Excluded     map[string]string            `json:"excluded,omitempty"`
	Observations int                          `json:"observations"`
}

// Index returns the position of symbol in the model.
func (rm *RiskModel) Index(symbol string) (int, bool) {
	for i, s := range rm.Symbols {
		if s == symbol {
			return i, true
		}
	}
	return 0, false
}

// Select restricts the model to symbols, in the given order. Unknown symbols are skipped.
func (rm *RiskModel) Select(symbols []string) *RiskModel {
	var idx []int
	out := &RiskModel{
		Forecasts:    make(map[string]volatility.Result),
		Excluded:     rm.Excluded,
		Observations: rm.Observations,
	}
	for _, s := range symbols {
		if i, ok := rm.Index(s); ok {
			idx = append(idx, i)
			out.Symbols = append(out.Symbols, s)
			out.Volatilities = append(out.Volatilities, rm.Volatilities[i])
			out.Forecasts[s] = rm.Forecasts[s]
		}
	}
	out.Correlation = submatrix(rm.Correlation, idx)
	out.Covariance = submatrix(rm.Covariance, idx)
	return out
}

// CovarianceMatrix returns Σ as a gonum symmetric matrix.
func (rm *RiskModel) CovarianceMatrix() *mat.SymDense {
	n := len(rm.Symbols)
	if n == 0 {
		return nil
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, rm.Covariance[i][j])
		}
	}
	return sym
}

func submatrix(m [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for a, i := range idx {
		out[a] = make([]float64, len(idx))
		for b, j := range idx {
			out[a][b] = m[i][j]
		}
	}
	return out
}

// Builder builds covariance risk models from return series.
type Builder struct {
	forecaster *volatility.Forecaster
	log        zerolog.Logger
}

// NewBuilder creates a builder that forecasts volatilities with forecaster.
func NewBuilder(forecaster *volatility.Forecaster, log zerolog.Logger) *Builder {
	return &Builder{
		forecaster: forecaster,
		log:        log.With().Str("component", "covariance").Logger(),
	}
}

// Build forecasts each instrument's volatility over its full history, aligns the
// trailing LookbackDays of the reference calendar, estimates pairwise correlation,
// repairs it to PSD and scales it into a covariance matrix.
// Instruments that cannot be modelled are listed in RiskModel.Excluded.
func (b *Builder) Build(ctx context.Context, series []timeseries.ReturnSeries, reference string, model volatility.Model) (*RiskModel, error) {
	var ref *timeseries.ReturnSeries
	for i := range series {
		if series[i].Symbol == reference {
			ref = &series[i]
			break
		}
	}
	if ref == nil || ref.Len() < MinObservations {
		return nil, fmt.Errorf("covariance: reference %s history: %w", reference, domain.ErrInsufficientData)
	}

	lookback := ref.Tail(LookbackDays)
	from, to := lookback.Dates[0], lookback.Dates[lookback.Len()-1]
	windowed := make([]timeseries.ReturnSeries, len(series))
	for i, s := range series {
		windowed[i] = s.Window(from, to)
	}

	m := timeseries.Align(windowed, reference, MinObservations)
	excluded := make(map[string]string)
	for _, s := range m.Dropped {
		excluded[s] = fmt.Sprintf("fewer than %d observations aligned with %s", MinObservations, reference)
	}

	forecasts, skipped, err := b.forecaster.ForecastAll(ctx, series, model)
	if err != nil {
		return nil, fmt.Errorf("covariance: forecast volatilities: %w", err)
	}

	rm := &RiskModel{
		Forecasts:    make(map[string]volatility.Result),
		Excluded:     excluded,
		Observations: m.Rows(),
	}

	// instruments without a forecast leave the model entirely
	var keep []int
	for n, s := range m.Symbols {
		res, ok := forecasts[s]
		if !ok {
			reason := "volatility forecast unavailable"
			if serr := skipped[s]; serr != nil {
				reason = serr.Error()
			}
			excluded[s] = reason
			continue
		}
		sigma := res.Sigma
		if sigma < VolatilityFloor {
			sigma = VolatilityFloor
		}
		keep = append(keep, n)
		rm.Symbols = append(rm.Symbols, s)
		rm.Volatilities = append(rm.Volatilities, sigma)
		rm.Forecasts[s] = res
	}

	if len(rm.Symbols) == 0 {
		return nil, fmt.Errorf("covariance: no instrument has enough history: %w", domain.ErrInsufficientData)
	}

	dense := timeseries.PairwiseCorrelation(m, MinPairPeriods).Dense()
	corr, err := EnforcePSD(submatrix(dense, keep))
	if err != nil {
		return nil, fmt.Errorf("covariance: repair correlation: %w", err)
	}
	rm.Correlation = corr
	rm.Covariance = Scale(corr, rm.Volatilities)

	b.log.Debug().
		Int("instruments", len(rm.Symbols)).
		Int("excluded", len(excluded)).
		Int("observations", rm.Observations).
		Str("model", model.String()).
		Msg("Built covariance model")

	return rm, nil
}

// Scale returns D·ρ·D for volatilities D.
func Scale(corr [][]float64, vols []float64) [][]float64 {
	n := len(vols)
	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			cov[i][j] = vols[i] * corr[i][j] * vols[j]
		}
	}
	return cov
}
