// Package handlers provides HTTP handlers for risk operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/risk"
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/utils"
)

// BarSource loads price history when a request does not carry its own.
type BarSource interface {
	LoadSeries(ctx context.Context, symbols []string, since time.Time) ([]domain.PriceSeries, error)
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Handler handles risk HTTP requests
type Handler struct {
	service  *risk.Service
	bars     BarSource
	lookback time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler creates a new risk handler. bars may be nil, in which case every
// request must carry its series. A zero lookback loads the full history.
func NewHandler(service *risk.Service, bars BarSource, lookback time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		bars:     bars,
		lookback: lookback,
		now:      time.Now,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// requestBody is the JSON body accepted by every risk endpoint.
type requestBody struct {
	risk.ReportRequest
	Series []domain.PriceSeries `json:"series,omitempty"`
}

func (h *Handler) decode(r *http.Request) (risk.ReportRequest, error) {
	var body requestBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return risk.ReportRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	req := body.ReportRequest
	req.Series = body.Series
	if req.User == "" {
		req.User = "default"
	}
	if len(req.Holdings) == 0 {
		return req, fmt.Errorf("holdings are required")
	}
	return req, nil
}

// hydrate fills in series and prices from the bar source.
func (h *Handler) hydrate(ctx context.Context, req *risk.ReportRequest) error {
	if h.bars == nil {
		return nil
	}
	symbols := h.service.RequiredSymbols(req.Holdings)
	if len(req.Series) == 0 {
		var since time.Time
		if h.lookback > 0 {
			since = h.now().Add(-h.lookback)
		}
		series, err := h.bars.LoadSeries(ctx, symbols, since)
		if err != nil {
			return err
		}
		req.Series = series
	}
	if len(req.Prices) == 0 {
		held := make([]string, 0, len(req.Holdings))
		for _, hd := range req.Holdings {
			held = append(held, hd.Symbol)
		}
		prices, err := h.bars.LatestPrices(ctx, held)
		if err != nil {
			return err
		}
		req.Prices = prices
	}
	return nil
}

// serve adapts one service operation to an HTTP handler.
func serve[T any](h *Handler, op string, run func(context.Context, risk.ReportRequest) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := h.decode(r)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.hydrate(r.Context(), &req); err != nil {
			h.log.Error().Err(err).Str("operation", op).Msg("Failed to load price history")
			h.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to load price history"))
			return
		}

		result, err := run(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				h.log.Error().Err(err).Str("operation", op).Str("user", req.User).Msg("Risk operation failed")
			} else {
				h.log.Debug().Err(err).Str("operation", op).Msg("Risk operation rejected")
			}
			h.writeError(w, status, err)
			return
		}

		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": result,
			"metadata": map[string]interface{}{
				"operation": op,
				"timestamp": h.now().Format(time.RFC3339),
			},
		})
	}
}

func statusFor(err error) int {
	switch {
	case domain.IsDegenerateInput(err),
		errors.Is(err, domain.ErrUnknownModel),
		errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleGetPrices handles GET /api/risk/prices?symbols=AAA,BBB
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	symbols := utils.ParseSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("symbols query parameter is required"))
		return
	}
	if h.bars == nil {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("no price history configured"))
		return
	}

	prices, err := h.bars.LatestPrices(r.Context(), symbols)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get latest prices")
		h.writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to get latest prices"))
		return
	}

	var missing []string
	for _, s := range symbols {
		if _, ok := prices[s]; !ok {
			missing = append(missing, s)
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"prices":  prices,
			"missing": missing,
		},
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

// HandleClearCache handles DELETE /api/risk/cache?pattern=<glob>
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed := h.service.Cache().Clear(pattern)
	h.log.Info().Str("pattern", pattern).Int("removed", removed).Msg("Risk cache cleared")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"pattern": pattern,
			"removed": removed,
		},
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
