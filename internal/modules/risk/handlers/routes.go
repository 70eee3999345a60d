package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/risk"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	s := h.service
	r.Route("/risk", func(r chi.Router) {
		r.Post("/report", serve(h, risk.OpReport, s.Report))
		r.Post("/score", serve(h, risk.OpScore, s.Score))

		// Component endpoints
		r.Post("/volatility", serve(h, risk.OpVolatility, s.Volatility))
		r.Post("/covariance", serve(h, risk.OpCovariance, s.Covariance))
		r.Post("/contributions", serve(h, risk.OpContributions, s.Contributions))
		r.Post("/concentration", serve(h, risk.OpConcentration, s.Concentration))
		r.Post("/factors", serve(h, risk.OpFactorExposure, s.FactorExposure))
		r.Post("/liquidity", serve(h, risk.OpLiquidity, s.Liquidity))
		r.Post("/regime", serve(h, risk.OpRegime, s.Regime))
		r.Post("/stress", serve(h, risk.OpStress, s.Stress))
		r.Post("/var", serve(h, risk.OpVaR, s.VaR))

		r.Get("/prices", h.HandleGetPrices)
		r.Delete("/cache", h.HandleClearCache)
	})
}
