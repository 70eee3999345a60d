package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/market_regime"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/calculations"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/concentration"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/covariance"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/factors"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/liquidity"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/portfolio"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/scoring"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/stress"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/volatility"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/utils"
)

// Operation names, used as cache key prefixes.
const (
	OpVolatility     = "volatility"
	OpCovariance     = "covariance"
	OpContributions  = "contributions"
	OpConcentration  = "concentration"
	OpFactorExposure = "factor_exposure"
	OpLiquidity      = "liquidity"
	OpRegime         = "regime"
	OpStress         = "stress"
	OpVaR            = "var"
	OpScore          = "score"
	OpReport         = "report"
)

// ReportRequest carries everything one risk computation needs. Series must hold
// the held instruments, the reference instrument and any factor proxies.
type ReportRequest struct {
	User       string               `json:"user"`
	Holdings   []domain.Holding     `json:"holdings"`
	Prices     map[string]float64   `json:"prices,omitempty"`
	Series     []domain.PriceSeries `json:"-"`
	VolModel   string               `json:"vol_model,omitempty"`
	Sectors    map[string]string    `json:"sectors,omitempty"`
	MarketCaps map[string]float64   `json:"market_caps,omitempty"`
	Confidence float64              `json:"confidence,omitempty"`
}

// Config holds the service settings.
type Config struct {
	Reference    string
	VolModel     volatility.Model
	Confidence   float64
	EWMALambda   float64
	ScoreBounds  map[string]scoring.Bound
	ScoreWeights map[string]float64
}

// Service runs the risk operations. Every operation result is cached under its
// own operation name for the cache TTL; failures are never cached.
type Service struct {
	cfg        Config
	cache      *calculations.Cache
	forecaster *volatility.Forecaster
	builder    *covariance.Builder
	factors    *factors.Engine
	liquidity  *liquidity.Scorer
	regime     *market_regime.Classifier
	stress     *stress.Engine
	now        func() time.Time
	log        zerolog.Logger
}

// NewService wires a service from its components.
func NewService(
	cfg Config,
	cache *calculations.Cache,
	forecaster *volatility.Forecaster,
	builder *covariance.Builder,
	factorEngine *factors.Engine,
	liquidityScorer *liquidity.Scorer,
	classifier *market_regime.Classifier,
	stressEngine *stress.Engine,
	log zerolog.Logger,
) *Service {
	if cfg.ScoreBounds == nil {
		cfg.ScoreBounds = scoring.DefaultBounds()
	}
	if cfg.ScoreWeights == nil {
		cfg.ScoreWeights = scoring.DefaultWeights()
	}
	if cfg.EWMALambda <= 0 {
		cfg.EWMALambda = covariance.DefaultEWMALambda
	}
	return &Service{
		cfg:        cfg,
		cache:      cache,
		forecaster: forecaster,
		builder:    builder,
		factors:    factorEngine,
		liquidity:  liquidityScorer,
		regime:     classifier,
		stress:     stressEngine,
		now:        time.Now,
		log:        log.With().Str("service", "risk").Logger(),
	}
}

// Cache exposes the result cache for invalidation.
func (s *Service) Cache() *calculations.Cache {
	return s.cache
}

// RequiredSymbols lists the instruments a request needs history for.
func (s *Service) RequiredSymbols(holdings []domain.Holding) []string {
	seen := map[string]bool{}
	var out []string
	add := func(sym string) {
		if sym != "" && !seen[sym] {
			seen[sym] = true
			out = append(out, sym)
		}
	}
	for _, h := range holdings {
		add(h.Symbol)
	}
	add(s.cfg.Reference)
	for _, proxy := range factors.Proxies(s.factors.Factors()) {
		add(proxy)
	}
	return out
}

// prepared is a validated request with derived inputs.
type prepared struct {
	req        ReportRequest
	model      volatility.Model
	confidence float64
	weights    map[string]float64
	value      float64
	held       []string
	returns    []timeseries.ReturnSeries
	bars       map[string][]domain.Bar
	matrix     *timeseries.AlignedMatrix
	notes      []domain.Diagnostic
}

func (p *prepared) note(component, subject, format string, args ...interface{}) {
	p.notes = append(p.notes, domain.Diagnostic{Component: component, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

func (s *Service) prepare(req ReportRequest) (*prepared, error) {
	model := s.cfg.VolModel
	if req.VolModel != "" {
		m, err := volatility.ParseModel(req.VolModel)
		if err != nil {
			return nil, err
		}
		model = m
	}
	confidence := s.cfg.Confidence
	if req.Confidence != 0 {
		confidence = req.Confidence
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, domain.NewDegenerateInput("risk request", "confidence %v outside (0,1)", confidence)
	}

	p := &prepared{
		req:        req,
		model:      model,
		confidence: confidence,
		bars:       make(map[string][]domain.Bar, len(req.Series)),
	}
	for _, ps := range req.Series {
		p.bars[ps.Symbol] = ps.Bars
	}

	prices := make(map[string]float64, len(req.Holdings))
	for _, h := range req.Holdings {
		if price, ok := req.Prices[h.Symbol]; ok && price > 0 {
			prices[h.Symbol] = price
			continue
		}
		if last, ok := (domain.PriceSeries{Symbol: h.Symbol, Bars: p.bars[h.Symbol]}).LastClose(); ok && last > 0 {
			prices[h.Symbol] = last
		}
	}
	_, missing := portfolio.MarketValues(req.Holdings, prices)
	for _, sym := range missing {
		p.note("portfolio", sym, "no price available; position excluded")
	}

	weights, total, err := portfolio.Weights(req.Holdings, prices)
	if err != nil {
		return nil, err
	}
	p.weights = weights
	p.value = total.InexactFloat64()
	p.held = portfolio.Symbols(weights)

	p.returns = timeseries.FromPriceSeries(req.Series)
	p.matrix = timeseries.Align(p.returns, s.cfg.Reference, timeseries.DefaultMinObservations)
	for _, sym := range p.matrix.Dropped {
		if _, ok := weights[sym]; ok {
			p.note("alignment", sym, "fewer than %d observations aligned with %s", timeseries.DefaultMinObservations, s.cfg.Reference)
		}
	}
	return p, nil
}

// key builds the cache key of op for p. Series are fingerprinted by length and
// last bar so refreshed history invalidates naturally.
func (s *Service) key(op string, p *prepared) (string, error) {
	shares := make(map[string]float64, len(p.req.Holdings))
	for _, h := range p.req.Holdings {
		shares[h.Symbol] += h.Shares
	}
	fingerprint := make(map[string]string, len(p.req.Series))
	for _, ps := range p.req.Series {
		if n := len(ps.Bars); n > 0 {
			last := ps.Bars[n-1]
			fingerprint[ps.Symbol] = fmt.Sprintf("%d|%s|%g", n, last.Date.Format("2006-01-02"), last.Close)
		}
	}
	return calculations.Key(op, p.req.User, map[string]interface{}{
		"holdings":    shares,
		"prices":      p.req.Prices,
		"model":       p.model.String(),
		"confidence":  p.confidence,
		"sectors":     p.req.Sectors,
		"market_caps": p.req.MarketCaps,
		"series":      fingerprint,
		"reference":   s.cfg.Reference,
	})
}

func cached[T any](s *Service, op string, p *prepared, compute func() (T, error)) (T, error) {
	key, err := s.key(op, p)
	if err != nil {
		var zero T
		return zero, err
	}
	return calculations.Cached(s.cache, key, func() (T, error) {
		defer utils.OperationTimer(op, s.log)()
		return compute()
	})
}

// VolatilityReport holds the forecast of every held instrument.
type VolatilityReport struct {
	Model     string                       `json:"model"`
	Forecasts map[string]volatility.Result `json:"forecasts"`
	Skipped   map[string]string            `json:"skipped,omitempty"`
}

// Volatility forecasts annualized volatility for each held instrument.
func (s *Service) Volatility(ctx context.Context, req ReportRequest) (*VolatilityReport, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.volatility(ctx, p)
}

func (s *Service) volatility(ctx context.Context, p *prepared) (*VolatilityReport, error) {
	return cached(s, OpVolatility, p, func() (*VolatilityReport, error) {
		var held []timeseries.ReturnSeries
		for _, r := range p.returns {
			if _, ok := p.weights[r.Symbol]; ok {
				held = append(held, r)
			}
		}
		results, skipped, err := s.forecaster.ForecastAll(ctx, held, p.model)
		if err != nil {
			return nil, err
		}
		out := &VolatilityReport{Model: p.model.String(), Forecasts: results, Skipped: map[string]string{}}
		for sym, serr := range skipped {
			out.Skipped[sym] = serr.Error()
		}
		for _, sym := range p.held {
			if _, ok := results[sym]; !ok {
				if _, ok := skipped[sym]; !ok {
					out.Skipped[sym] = "no price history"
				}
			}
		}
		return out, nil
	})
}

// CovarianceReport is the risk model restricted to held instruments.
type CovarianceReport struct {
	Model            *covariance.RiskModel        `json:"model"`
	EWMACorrelation  [][]float64                  `json:"ewma_correlation"`
	HighCorrelations []covariance.CorrelationPair `json:"high_correlations"`
	AvgCorrelation   *float64                     `json:"avg_correlation"`
}

// Covariance builds the covariance model of the held instruments.
func (s *Service) Covariance(ctx context.Context, req ReportRequest) (*CovarianceReport, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.covariance(ctx, p)
}

func (s *Service) covariance(ctx context.Context, p *prepared) (*CovarianceReport, error) {
	return cached(s, OpCovariance, p, func() (*CovarianceReport, error) {
		full, err := s.builder.Build(ctx, p.returns, s.cfg.Reference, p.model)
		if err != nil {
			return nil, err
		}
		rm := full.Select(p.held)
		if len(rm.Symbols) == 0 {
			return nil, fmt.Errorf("covariance: no held instrument could be modelled: %w", domain.ErrInsufficientData)
		}
		excluded := make(map[string]string)
		for _, sym := range p.held {
			if _, ok := rm.Index(sym); !ok {
				reason := full.Excluded[sym]
				if reason == "" {
					reason = "no aligned history"
				}
				excluded[sym] = reason
			}
		}
		rm.Excluded = excluded

		ewma, err := covariance.EWMACorrelation(p.matrix.Select(rm.Symbols), s.cfg.EWMALambda)
		if err != nil {
			return nil, err
		}

		out := &CovarianceReport{
			Model:            rm,
			EWMACorrelation:  ewma,
			HighCorrelations: covariance.HighCorrelations(rm.Correlation, rm.Symbols, covariance.HighCorrelationThreshold),
		}
		if avg, ok := averageOffDiagonal(rm.Correlation); ok {
			out.AvgCorrelation = &avg
		}
		return out, nil
	})
}

func averageOffDiagonal(c [][]float64) (float64, bool) {
	sum, n := 0.0, 0
	for i := range c {
		for j := i + 1; j < len(c); j++ {
			sum += c[i][j]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ContributionsReport is the risk decomposition of the modelled positions.
type ContributionsReport struct {
	*Decomposition
	Excluded map[string]string `json:"excluded,omitempty"`
}

// Contributions decomposes portfolio volatility into position contributions.
// Weights are renormalized over the instruments the covariance model kept.
func (s *Service) Contributions(ctx context.Context, req ReportRequest) (*ContributionsReport, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.contributions(ctx, p)
}

func (s *Service) contributions(ctx context.Context, p *prepared) (*ContributionsReport, error) {
	return cached(s, OpContributions, p, func() (*ContributionsReport, error) {
		cov, err := s.covariance(ctx, p)
		if err != nil {
			return nil, err
		}
		rm := cov.Model
		w, err := WeightVector(p.weights, rm.Symbols)
		if err != nil {
			return nil, err
		}
		d, err := Decompose(rm.Symbols, w, rm.CovarianceMatrix())
		if err != nil {
			return nil, err
		}
		return &ContributionsReport{Decomposition: d, Excluded: rm.Excluded}, nil
	})
}

// ConcentrationReport is position, sector and market cap concentration.
type ConcentrationReport struct {
	Positions  concentration.Metrics       `json:"positions"`
	Sectors    concentration.BucketMetrics `json:"sectors"`
	MarketCaps concentration.BucketMetrics `json:"market_caps"`
}

// Concentration measures weight concentration.
func (s *Service) Concentration(ctx context.Context, req ReportRequest) (*ConcentrationReport, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.concentration(p)
}

func (s *Service) concentration(p *prepared) (*ConcentrationReport, error) {
	return cached(s, OpConcentration, p, func() (*ConcentrationReport, error) {
		return &ConcentrationReport{
			Positions: concentration.Analyze(p.weights),
			Sectors:   concentration.Buckets(p.weights, concentration.FromMap(p.req.Sectors)),
			MarketCaps: concentration.Buckets(p.weights, func(sym string) string {
				return concentration.MarketCapBucket(p.req.MarketCaps[sym])
			}),
		}, nil
	})
}

// FactorExposure estimates rolling factor betas of the held instruments.
func (s *Service) FactorExposure(ctx context.Context, req ReportRequest) (*factors.Exposures, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.factorExposure(p)
}

func (s *Service) factorExposure(p *prepared) (*factors.Exposures, error) {
	return cached(s, OpFactorExposure, p, func() (*factors.Exposures, error) {
		if p.matrix.Empty() {
			return nil, fmt.Errorf("factor exposure: reference %s history: %w", s.cfg.Reference, domain.ErrInsufficientData)
		}
		return s.factors.Exposures(p.matrix, p.weights), nil
	})
}

// Liquidity scores how quickly each position could be exited.
func (s *Service) Liquidity(ctx context.Context, req ReportRequest) (*liquidity.Metrics, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.liquidityMetrics(p)
}

func (s *Service) liquidityMetrics(p *prepared) (*liquidity.Metrics, error) {
	return cached(s, OpLiquidity, p, func() (*liquidity.Metrics, error) {
		shares := make(map[string]float64)
		for _, h := range p.req.Holdings {
			shares[h.Symbol] += h.Shares
		}
		positions := make([]liquidity.Position, 0, len(p.held))
		for _, sym := range p.held {
			bars := p.bars[sym]
			price := p.req.Prices[sym]
			if price <= 0 && len(bars) > 0 {
				price = bars[len(bars)-1].Close
			}
			positions = append(positions, liquidity.Position{Symbol: sym, Shares: shares[sym], Price: price, Bars: bars})
		}
		m := s.liquidity.Analyze(positions)
		return &m, nil
	})
}

// Regime classifies the trailing market regime of the portfolio.
func (s *Service) Regime(ctx context.Context, req ReportRequest) (*market_regime.Assessment, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.regimeAssessment(p)
}

func (s *Service) regimeAssessment(p *prepared) (*market_regime.Assessment, error) {
	return cached(s, OpRegime, p, func() (*market_regime.Assessment, error) {
		a, err := s.regime.Assess(p.matrix, p.weights)
		if err != nil {
			return nil, err
		}
		return &a, nil
	})
}

// Stress replays the historical scenarios with the current weights.
func (s *Service) Stress(ctx context.Context, req ReportRequest) (*stress.Report, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.stressReport(p)
}

func (s *Service) stressReport(p *prepared) (*stress.Report, error) {
	return cached(s, OpStress, p, func() (*stress.Report, error) {
		r := s.stress.Run(p.returns, s.cfg.Reference, p.weights)
		return &r, nil
	})
}

// VaRReport is parametric VaR/CVaR of the portfolio return series.
type VaRReport struct {
	PortfolioValue float64    `json:"portfolio_value"`
	Observations   int        `json:"observations"`
	Levels         []VaRLevel `json:"levels"`
}

// VaRLevel is VaR/CVaR at one confidence, as return fractions and currency amounts.
type VaRLevel struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
	VaRPct     float64 `json:"var_pct"`
	CVaRPct    float64 `json:"cvar_pct"`
	VaRAmount  float64 `json:"var_amount"`
	CVaRAmount float64 `json:"cvar_amount"`
}

// VaR computes parametric VaR and CVaR at the configured confidence and at 99%.
func (s *Service) VaR(ctx context.Context, req ReportRequest) (*VaRReport, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.valueAtRisk(p)
}

func (s *Service) valueAtRisk(p *prepared) (*VaRReport, error) {
	return cached(s, OpVaR, p, func() (*VaRReport, error) {
		pr := timeseries.PortfolioReturns(p.matrix, p.weights, timeseries.DefaultMinCoverage)
		levels := []float64{p.confidence}
		if p.confidence != 0.99 {
			levels = append(levels, 0.99)
		}
		out := &VaRReport{PortfolioValue: p.value, Observations: pr.Len()}
		for _, c := range levels {
			v, err := ParametricVaR(pr.Values, c)
			if err != nil {
				return nil, err
			}
			out.Levels = append(out.Levels, VaRLevel{
				Confidence: c,
				VaR:        v.VaR,
				CVaR:       v.CVaR,
				VaRPct:     v.VaRPct,
				CVaRPct:    v.CVaRPct,
				VaRAmount:  v.VaR * p.value,
				CVaRAmount: v.CVaR * p.value,
			})
		}
		return out, nil
	})
}

// Score aggregates the component metrics into the overall risk score.
func (s *Service) Score(ctx context.Context, req ReportRequest) (*scoring.Score, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, p)
}

// soft reports whether err only means a component lacked data.
func soft(err error) bool {
	return errors.Is(err, domain.ErrInsufficientData)
}

func (s *Service) score(ctx context.Context, p *prepared) (*scoring.Score, error) {
	return cached(s, OpScore, p, func() (*scoring.Score, error) {
		raw := make(map[string]float64)

		conc, err := s.concentration(p)
		if err != nil {
			return nil, err
		}
		raw[scoring.Concentration] = conc.Positions.HHI

		if d, err := s.contributions(ctx, p); err == nil {
			raw[scoring.Volatility] = d.PortfolioVolatility
		} else if !soft(err) {
			return nil, err
		}

		if cov, err := s.covariance(ctx, p); err == nil {
			if cov.AvgCorrelation != nil {
				raw[scoring.Correlation] = *cov.AvgCorrelation
			}
		} else if !soft(err) {
			return nil, err
		}

		if exp, err := s.factorExposure(p); err == nil {
			if beta, ok := exp.PortfolioBeta[factors.MarketFactor]; ok {
				raw[scoring.MarketBeta] = math.Abs(beta)
			}
		} else if !soft(err) {
			return nil, err
		}

		liq, err := s.liquidityMetrics(p)
		if err != nil {
			return nil, err
		}
		raw[scoring.Liquidity] = liq.Overview.Score

		st, err := s.stressReport(p)
		if err != nil {
			return nil, err
		}
		if len(st.Results) > 0 {
			worst := 0.0
			for _, r := range st.Results {
				worst = math.Min(worst, r.MaxDrawdown)
			}
			raw[scoring.Stress] = math.Abs(worst)
		}

		if a, err := s.regimeAssessment(p); err == nil {
			raw[scoring.Regime] = scoring.RegimeRisk(string(a.Regime))
		} else if !soft(err) {
			return nil, err
		}

		sc := scoring.Aggregate(raw, s.cfg.ScoreBounds, s.cfg.ScoreWeights)
		if sc.Clipped {
			s.log.Warn().Float64("overall", sc.Overall).Strs("diagnostics", sc.Diagnostics).Msg("Risk score clipped")
		}
		return &sc, nil
	})
}

// Report is the full risk report of one portfolio.
type Report struct {
	ID             string                    `json:"id"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	User           string                    `json:"user"`
	PortfolioValue float64                   `json:"portfolio_value"`
	Weights        map[string]float64        `json:"weights"`
	Volatility     *VolatilityReport         `json:"volatility,omitempty"`
	Covariance     *CovarianceReport         `json:"covariance,omitempty"`
	Contributions  *ContributionsReport      `json:"contributions,omitempty"`
	Concentration  *ConcentrationReport      `json:"concentration"`
	Factors        *factors.Exposures        `json:"factors,omitempty"`
	Liquidity      *liquidity.Metrics        `json:"liquidity"`
	Regime         *market_regime.Assessment `json:"regime,omitempty"`
	Stress         *stress.Report            `json:"stress"`
	VaR            *VaRReport                `json:"var,omitempty"`
	Score          *scoring.Score            `json:"score"`
	Diagnostics    []domain.Diagnostic       `json:"diagnostics"`
}

// Report runs every operation. Components that lack data are omitted and explained
// in Diagnostics; hard errors fail the whole report.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	p, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return cached(s, OpReport, p, func() (*Report, error) {
		r := &Report{
			ID:             uuid.NewString(),
			GeneratedAt:    s.now().UTC(),
			User:           req.User,
			PortfolioValue: p.value,
			Weights:        p.weights,
		}

		softFail := func(component string, err error) error {
			if soft(err) {
				p.note(component, "", "%v", err)
				return nil
			}
			return err
		}

		if r.Volatility, err = s.volatility(ctx, p); err != nil {
			return nil, err
		}
		for sym, reason := range r.Volatility.Skipped {
			p.note(OpVolatility, sym, "%s", reason)
		}
		for sym, res := range r.Volatility.Forecasts {
			if res.Clipped {
				p.note(OpVolatility, sym, "forecast clipped to %.0f%%", volatility.MaxAnnualVolatility*100)
			}
			if res.Method != p.model.Kind.String() {
				p.note(OpVolatility, sym, "%s fell back to %s estimator", res.Model, res.Method)
			}
		}

		if r.Covariance, err = s.covariance(ctx, p); err != nil {
			if err := softFail(OpCovariance, err); err != nil {
				return nil, err
			}
		} else {
			for sym, reason := range r.Covariance.Model.Excluded {
				p.note(OpCovariance, sym, "%s", reason)
			}
		}
		if r.Contributions, err = s.contributions(ctx, p); err != nil {
			if err := softFail(OpContributions, err); err != nil {
				return nil, err
			}
		}
		if r.Concentration, err = s.concentration(p); err != nil {
			return nil, err
		}
		if r.Factors, err = s.factorExposure(p); err != nil {
			if err := softFail(OpFactorExposure, err); err != nil {
				return nil, err
			}
		} else {
			for subject, reason := range r.Factors.Excluded {
				p.note(OpFactorExposure, subject, "%s", reason)
			}
		}
		if r.Liquidity, err = s.liquidityMetrics(p); err != nil {
			return nil, err
		}
		if r.Regime, err = s.regimeAssessment(p); err != nil {
			if err := softFail(OpRegime, err); err != nil {
				return nil, err
			}
		}
		if r.Stress, err = s.stressReport(p); err != nil {
			return nil, err
		}
		for _, x := range r.Stress.Excluded {
			p.note(OpStress, x.Name, "%s", x.Reason)
		}
		if r.VaR, err = s.valueAtRisk(p); err != nil {
			if err := softFail(OpVaR, err); err != nil {
				return nil, err
			}
		}
		if r.Score, err = s.score(ctx, p); err != nil {
			return nil, err
		}

		sort.SliceStable(p.notes, func(i, j int) bool {
			if p.notes[i].Component != p.notes[j].Component {
				return p.notes[i].Component < p.notes[j].Component
			}
			return p.notes[i].Subject < p.notes[j].Subject
		})
		r.Diagnostics = p.notes
		if r.Diagnostics == nil {
			r.Diagnostics = []domain.Diagnostic{}
		}

		s.log.Info().
			Str("report_id", r.ID).
			Str("user", req.User).
			Int("positions", len(p.held)).
			Int("diagnostics", len(r.Diagnostics)).
			Msg("Risk report generated")
		return r, nil
	})
}
