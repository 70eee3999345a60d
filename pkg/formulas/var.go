package formulas

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// VaRResult holds parametric Value-at-Risk figures for one confidence level.
// VaR and CVaR are daily fractions, negative for losses.
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	MeanDaily  float64 `json:"mean_daily"`
	SigmaDaily float64 `json:"sigma_daily"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
	VaRPct     float64 `json:"var_pct"`
	CVaRPct    float64 `json:"cvar_pct"`
}

// ParametricVaR computes Gaussian VaR/CVaR from daily mean and standard deviation:
//
//	VaR  = -(mu + z*sigma)
//	CVaR = -(mu + sigma*phi(z)/(1-alpha))
//
// with z the inverse normal CDF at the confidence level alpha.
func ParametricVaR(muDaily, sigmaDaily, confidence float64) (VaRResult, error) {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, fmt.Errorf("confidence must be in (0,1), got %v", confidence)
	}
	if sigmaDaily < 0 || !IsFinite(sigmaDaily) || !IsFinite(muDaily) {
		return VaRResult{}, fmt.Errorf("invalid moments: mu=%v sigma=%v", muDaily, sigmaDaily)
	}

	z := distuv.UnitNormal.Quantile(confidence)
	v := -(muDaily + z*sigmaDaily)
	cv := -(muDaily + sigmaDaily*distuv.UnitNormal.Prob(z)/(1-confidence))

	return VaRResult{
		Confidence: confidence,
		MeanDaily:  muDaily,
		SigmaDaily: sigmaDaily,
		VaR:        v,
		CVaR:       cv,
		VaRPct:     v * 100,
		CVaRPct:    cv * 100,
	}, nil
}

// ParametricVaRFromReturns estimates mu and sigma from daily returns first.
func ParametricVaRFromReturns(returns []float64, confidence float64) (VaRResult, error) {
	finite := Finite(returns)
	if len(finite) < 2 {
		return VaRResult{}, fmt.Errorf("need at least 2 returns, got %d", len(finite))
	}
	return ParametricVaR(Mean(finite), StdDev(finite), confidence)
}
