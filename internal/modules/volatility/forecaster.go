package volatility

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// MaxAnnualVolatility caps implausible forecasts.
const MaxAnnualVolatility = 3.0

// DefaultConcurrency bounds ForecastAll's parallel model fits.
const DefaultConcurrency = 8

// Memo is the secondary memo table forecasts are stored in.
type Memo interface {
	MemoGet(key string) ([]byte, bool)
	MemoSet(key string, value []byte)
}

// Result is one annualized volatility forecast.
type Result struct {
	Symbol       string  `json:"symbol" msgpack:"symbol"`
	Sigma        float64 `json:"sigma" msgpack:"sigma"`
	Model        string  `json:"model" msgpack:"model"`
	Method       string  `json:"method" msgpack:"method"`
	Clipped      bool    `json:"clipped" msgpack:"clipped"`
	Observations int     `json:"observations" msgpack:"observations"`
}

// Forecaster produces annualized volatility forecasts for return series.
type Forecaster struct {
	memo        Memo
	concurrency int
	log         zerolog.Logger
}

// NewForecaster creates a forecaster. memo may be nil.
func NewForecaster(memo Memo, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		memo:        memo,
		concurrency: DefaultConcurrency,
		log:         log.With().Str("component", "volatility").Logger(),
	}
}

// SetConcurrency sets the number of instruments forecast in parallel.
func (f *Forecaster) SetConcurrency(n int) {
	if n > 0 {
		f.concurrency = n
	}
}

// Concurrency returns the number of instruments forecast in parallel.
func (f *Forecaster) Concurrency() int {
	return f.concurrency
}

// memoKey identifies a forecast by symbol, model and the exact return values.
func memoKey(symbol string, model Model, returns []float64) (string, error) {
	data, err := msgpack.Marshal(returns)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("vol|%s|%s|%s", symbol, model, hex.EncodeToString(h[:16])), nil
}

// Forecast returns the annualized volatility of returns under model.
// Fewer than two finite observations is ErrInsufficientData.
func (f *Forecaster) Forecast(symbol string, returns []float64, model Model) (Result, error) {
	finite := formulas.Finite(returns)
	if len(finite) < 2 {
		return Result{}, fmt.Errorf("volatility %s: %d observations: %w", symbol, len(finite), domain.ErrInsufficientData)
	}

	key, err := memoKey(symbol, model, finite)
	if err == nil && f.memo != nil {
		if data, ok := f.memo.MemoGet(key); ok {
			var cached Result
			if err := msgpack.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
			f.log.Warn().Str("symbol", symbol).Msg("Failed to decode memoized forecast, recomputing")
		}
	}

	sigma, method, ok := FirstSuccess(Chain(model, len(finite), f.log), finite)
	if !ok {
		return Result{}, fmt.Errorf("volatility %s: no estimator succeeded: %w", symbol, domain.ErrInsufficientData)
	}
	if method != model.Kind.String() {
		f.log.Debug().
			Str("symbol", symbol).
			Str("model", model.String()).
			Str("method", method).
			Int("observations", len(finite)).
			Msg("Volatility model fell back")
	}

	res := Result{
		Symbol:       symbol,
		Sigma:        formulas.Annualize(sigma),
		Model:        model.String(),
		Method:       method,
		Observations: len(finite),
	}
	if res.Sigma > MaxAnnualVolatility {
		f.log.Warn().
			Str("symbol", symbol).
			Float64("sigma", res.Sigma).
			Msg("Volatility forecast clipped")
		res.Sigma = MaxAnnualVolatility
		res.Clipped = true
	}

	if key != "" && f.memo != nil {
		if data, err := msgpack.Marshal(res); err == nil {
			f.memo.MemoSet(key, data)
		}
	}
	return res, nil
}

// ForecastAll forecasts every series concurrently. Series with insufficient data are
// returned in skipped instead of failing the batch.
func (f *Forecaster) ForecastAll(ctx context.Context, series []timeseries.ReturnSeries, model Model) (map[string]Result, map[string]error, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(series))
		skipped = make(map[string]error)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, s := range series {
		s := s
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := f.Forecast(s.Symbol, s.Values, model)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped[s.Symbol] = err
				return nil
			}
			results[s.Symbol] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, skipped, nil
}
