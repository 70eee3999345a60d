package covariance

import (
	"math"
	"sort"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/modules/timeseries"
)

// Constants for correlation estimation
const (
	DefaultEWMALambda        = 0.94
	MinEWMARows              = 30
	HighCorrelationThreshold = 0.80 // 80% correlation is considered "high"
)

// EWMACorrelation estimates an exponentially weighted correlation matrix from the
// rows of m where every instrument is present. Row t of T complete rows gets weight
// λ^(T-1-t), normalized to sum to 1. Fewer than MinEWMARows complete rows or fewer
// than two instruments yields the identity.
func EWMACorrelation(m *timeseries.AlignedMatrix, lambda float64) ([][]float64, error) {
	n := m.Cols()
	if n < 2 {
		return identity(n), nil
	}

	var rows [][]float64
	for t := 0; t < m.Rows(); t++ {
		row := make([]float64, n)
		complete := true
		for j := 0; j < n; j++ {
			v, ok := m.At(t, j)
			if !ok {
				complete = false
				break
			}
			row[j] = v
		}
		if complete {
			rows = append(rows, row)
		}
	}
	if len(rows) < MinEWMARows {
		return identity(n), nil
	}

	T := len(rows)
	weights := make([]float64, T)
	total := 0.0
	for t := range rows {
		weights[t] = math.Pow(lambda, float64(T-1-t))
		total += weights[t]
	}
	for t := range weights {
		weights[t] /= total
	}

	mean := make([]float64, n)
	for t, row := range rows {
		for j, v := range row {
			mean[j] += weights[t] * v
		}
	}

	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
	}
	for t, row := range rows {
		for i := 0; i < n; i++ {
			di := row[i] - mean[i]
			for j := i; j < n; j++ {
				cov[i][j] += weights[t] * di * (row[j] - mean[j])
			}
		}
	}

	corr := identity(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Sqrt(cov[i][i] * cov[j][j])
			if d > 0 {
				corr[i][j] = cov[i][j] / d
				corr[j][i] = corr[i][j]
			}
		}
	}
	return EnforcePSD(corr)
}

func identity(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	return out
}

// CorrelationPair is a pair of instruments whose correlation crossed a threshold.
type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// HighCorrelations lists pairs with |ρ| at or above threshold, strongest first.
func HighCorrelations(corr [][]float64, symbols []string, threshold float64) []CorrelationPair {
	var pairs []CorrelationPair
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			if math.Abs(corr[i][j]) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Symbol1:     symbols[i],
					Symbol2:     symbols[j],
					Correlation: corr[i][j],
				})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs
}
