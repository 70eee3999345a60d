// Package portfolio turns holdings into portfolio weights.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/domain"
)

// MarketValues values each holding at its price. Holdings of the same symbol are
// summed. Symbols without a positive price are returned in missing and left out.
func MarketValues(holdings []domain.Holding, prices map[string]float64) (map[string]decimal.Decimal, []string) {
	values := make(map[string]decimal.Decimal, len(holdings))
	seenMissing := make(map[string]bool)
	var missing []string
	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok || price <= 0 {
			if !seenMissing[h.Symbol] {
				seenMissing[h.Symbol] = true
				missing = append(missing, h.Symbol)
			}
			continue
		}
		mv := decimal.NewFromFloat(h.Shares).Mul(decimal.NewFromFloat(price))
		values[h.Symbol] = values[h.Symbol].Add(mv)
	}
	sort.Strings(missing)
	return values, missing
}

// Weights returns each holding's fraction of total market value together with
// that total. The total is the sum of absolute market values, so short positions
// keep a negative weight. Empty holdings or a zero total is a DegenerateInputError.
func Weights(holdings []domain.Holding, prices map[string]float64) (map[string]float64, decimal.Decimal, error) {
	if len(holdings) == 0 {
		return nil, decimal.Zero, domain.NewDegenerateInput("portfolio weights", "no holdings")
	}

	values, _ := MarketValues(holdings, prices)
	total := decimal.Zero
	for _, mv := range values {
		total = total.Add(mv.Abs())
	}
	if total.Sign() <= 0 {
		return nil, decimal.Zero, domain.NewDegenerateInput("portfolio weights", "total market value is zero")
	}

	weights := make(map[string]float64, len(values))
	for s, mv := range values {
		if mv.IsZero() {
			continue
		}
		weights[s] = mv.Div(total).InexactFloat64()
	}
	return weights, total, nil
}

// Renormalize keeps the symbols for which include returns true and rescales their
// weights to sum to 1 in absolute value. A nil include keeps everything.
func Renormalize(weights map[string]float64, include func(symbol string) bool) map[string]float64 {
	total := 0.0
	for s, w := range weights {
		if include == nil || include(s) {
			if w < 0 {
				total -= w
			} else {
				total += w
			}
		}
	}
	out := make(map[string]float64, len(weights))
	if total == 0 {
		return out
	}
	for s, w := range weights {
		if include == nil || include(s) {
			out[s] = w / total
		}
	}
	return out
}

// Symbols returns the weighted symbols in sorted order.
func Symbols(weights map[string]float64) []string {
	out := make([]string, 0, len(weights))
	for s := range weights {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
