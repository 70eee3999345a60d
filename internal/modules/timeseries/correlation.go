package timeseries

import (
	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// DefaultMinPeriods is the pairwise overlap required before a correlation is trusted.
const DefaultMinPeriods = 30

// CorrelationMatrix holds pairwise correlations; Valid[i][j] is false when the pair
// had too few common observations (or zero variance) to be estimated.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
	Valid   [][]bool    `json:"valid"`
	Periods [][]int     `json:"periods"`
}

// PairwiseCorrelation computes Pearson correlation for every pair over the intersection
// of the dates both instruments were observed on, instead of dropping whole rows.
// Pairs with fewer than minPeriods common observations are excluded, not approximated.
func PairwiseCorrelation(m *AlignedMatrix, minPeriods int) *CorrelationMatrix {
	if minPeriods <= 0 {
		minPeriods = DefaultMinPeriods
	}

	n := m.Cols()
	cm := &CorrelationMatrix{
		Symbols: m.Symbols,
		Values:  make([][]float64, n),
		Valid:   make([][]bool, n),
		Periods: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		cm.Values[i] = make([]float64, n)
		cm.Valid[i] = make([]bool, n)
		cm.Periods[i] = make([]int, n)
		cm.Values[i][i] = 1
		cm.Valid[i][i] = true
		cm.Periods[i][i] = m.Observations(i)
	}

	x := make([]float64, 0, m.Rows())
	y := make([]float64, 0, m.Rows())
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			x, y = x[:0], y[:0]
			for t := 0; t < m.Rows(); t++ {
				if m.present[t][i] && m.present[t][j] {
					x = append(x, m.values[t][i])
					y = append(y, m.values[t][j])
				}
			}
			cm.Periods[i][j] = len(x)
			cm.Periods[j][i] = len(x)
			if len(x) < minPeriods {
				continue
			}
			c, ok := formulas.Correlation(x, y)
			if !ok {
				continue
			}
			c = formulas.Clip(c, -1, 1)
			cm.Values[i][j], cm.Values[j][i] = c, c
			cm.Valid[i][j], cm.Valid[j][i] = true, true
		}
	}

	return cm
}

// Average returns the mean of the valid off-diagonal correlations.
func (cm *CorrelationMatrix) Average() (float64, bool) {
	sum, count := 0.0, 0
	for i := range cm.Values {
		for j := i + 1; j < len(cm.Values); j++ {
			if cm.Valid[i][j] {
				sum += cm.Values[i][j]
				count++
			}
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// Dense returns the matrix with invalid pairs set to 0 off the diagonal and 1 on it.
func (cm *CorrelationMatrix) Dense() [][]float64 {
	n := len(cm.Values)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				out[i][j] = 1
			case cm.Valid[i][j]:
				out[i][j] = cm.Values[i][j]
			}
		}
	}
	return out
}
