package timeseries

import (
	"time"
)

// DefaultMinObservations is the overlap an instrument needs with the reference calendar.
const DefaultMinObservations = 40

// DefaultMinCoverage is the portfolio weight that must be present to emit a portfolio return.
const DefaultMinCoverage = 0.60

// AlignedMatrix is a T×N return matrix on the reference instrument's calendar.
// Cell (t, n) is either present or missing; there is no sentinel value.
type AlignedMatrix struct {
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	Dropped []string    `json:"dropped,omitempty"`

	values  [][]float64
	present [][]bool
}

// Rows returns the number of reference dates.
func (m *AlignedMatrix) Rows() int {
	return len(m.Dates)
}

// Cols returns the number of active symbols.
func (m *AlignedMatrix) Cols() int {
	return len(m.Symbols)
}

// Empty reports whether alignment produced no usable history.
func (m *AlignedMatrix) Empty() bool {
	return m == nil || len(m.Dates) == 0 || len(m.Symbols) == 0
}

// At returns the return of symbol n on date t and whether it was observed.
func (m *AlignedMatrix) At(t, n int) (float64, bool) {
	if !m.present[t][n] {
		return 0, false
	}
	return m.values[t][n], true
}

// Index returns the column of symbol.
func (m *AlignedMatrix) Index(symbol string) (int, bool) {
	for i, s := range m.Symbols {
		if s == symbol {
			return i, true
		}
	}
	return 0, false
}

// Column returns the observed values of column n together with their dates.
func (m *AlignedMatrix) Column(n int) ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(m.Dates))
	values := make([]float64, 0, len(m.Dates))
	for t := range m.Dates {
		if m.present[t][n] {
			dates = append(dates, m.Dates[t])
			values = append(values, m.values[t][n])
		}
	}
	return dates, values
}

// Observations counts the present cells of column n.
func (m *AlignedMatrix) Observations(n int) int {
	count := 0
	for t := range m.Dates {
		if m.present[t][n] {
			count++
		}
	}
	return count
}

// Tail keeps only the last `rows` reference dates.
func (m *AlignedMatrix) Tail(rows int) *AlignedMatrix {
	if m.Empty() || rows <= 0 || rows >= m.Rows() {
		return m
	}
	start := m.Rows() - rows
	return &AlignedMatrix{
		Dates:   m.Dates[start:],
		Symbols: m.Symbols,
		Dropped: m.Dropped,
		values:  m.values[start:],
		present: m.present[start:],
	}
}

// Select keeps only the given symbols (in matrix order); unknown symbols are ignored.
func (m *AlignedMatrix) Select(symbols []string) *AlignedMatrix {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	var cols []int
	out := &AlignedMatrix{Dates: m.Dates, Dropped: m.Dropped}
	for n, s := range m.Symbols {
		if want[s] {
			cols = append(cols, n)
			out.Symbols = append(out.Symbols, s)
		}
	}
	out.values = make([][]float64, len(m.Dates))
	out.present = make([][]bool, len(m.Dates))
	for t := range m.Dates {
		out.values[t] = make([]float64, len(cols))
		out.present[t] = make([]bool, len(cols))
		for i, n := range cols {
			out.values[t][i] = m.values[t][n]
			out.present[t][i] = m.present[t][n]
		}
	}
	return out
}

// Align places every series on the reference symbol's return calendar.
//
// An instrument is kept only when it has at least minObservations dates in common
// with the reference. If the reference is absent or itself shorter than
// minObservations the result is an empty matrix: callers treat that as
// insufficient history, not as an error.
func Align(series []ReturnSeries, reference string, minObservations int) *AlignedMatrix {
	if minObservations <= 0 {
		minObservations = DefaultMinObservations
	}

	var ref *ReturnSeries
	for i := range series {
		if series[i].Symbol == reference {
			ref = &series[i]
			break
		}
	}
	if ref == nil || ref.Len() < minObservations {
		return &AlignedMatrix{}
	}

	dates := make([]time.Time, len(ref.Dates))
	copy(dates, ref.Dates)
	rowOf := make(map[int]int, len(dates))
	for i, d := range dates {
		rowOf[dayKey(d)] = i
	}

	type column struct {
		symbol  string
		values  []float64
		present []bool
	}

	seen := make(map[string]bool, len(series))
	var cols []column
	var dropped []string
	for _, s := range series {
		if seen[s.Symbol] {
			continue
		}
		seen[s.Symbol] = true

		values := make([]float64, len(dates))
		present := make([]bool, len(dates))
		overlap := 0
		for i, d := range s.Dates {
			row, ok := rowOf[dayKey(d)]
			if !ok || present[row] {
				continue
			}
			values[row] = s.Values[i]
			present[row] = true
			overlap++
		}

		if overlap < minObservations {
			dropped = append(dropped, s.Symbol)
			continue
		}
		cols = append(cols, column{symbol: s.Symbol, values: values, present: present})
	}

	m := &AlignedMatrix{
		Dates:   dates,
		Symbols: make([]string, len(cols)),
		Dropped: dropped,
		values:  make([][]float64, len(dates)),
		present: make([][]bool, len(dates)),
	}
	for n, c := range cols {
		m.Symbols[n] = c.symbol
	}
	for t := range dates {
		m.values[t] = make([]float64, len(cols))
		m.present[t] = make([]bool, len(cols))
		for n, c := range cols {
			m.values[t][n] = c.values[t]
			m.present[t][n] = c.present[t]
		}
	}

	return m
}

// PortfolioReturns collapses the matrix into one portfolio return per date.
//
// On each date only the instruments with an observation contribute; their weights
// are scaled up so their absolute sum matches the book's gross weight. Shorts keep
// their sign, so a market-neutral book nets to zero. A date is emitted only when the
// absolute weight present is at least minCoverage of the total absolute weight;
// dates below the threshold are skipped, never zero-filled.
func PortfolioReturns(m *AlignedMatrix, weights map[string]float64, minCoverage float64) ReturnSeries {
	out := ReturnSeries{Symbol: "PORTFOLIO"}
	if m.Empty() {
		return out
	}

	total := 0.0
	for _, w := range weights {
		total += abs(w)
	}
	if total == 0 {
		return out
	}

	colWeight := make([]float64, m.Cols())
	for n, s := range m.Symbols {
		colWeight[n] = weights[s]
	}

	const eps = 1e-12
	for t := range m.Dates {
		covered, acc := 0.0, 0.0
		for n := range m.Symbols {
			w := colWeight[n]
			if w == 0 || !m.present[t][n] {
				continue
			}
			covered += abs(w)
			acc += w * m.values[t][n]
		}
		if covered == 0 || covered/total+eps < minCoverage {
			continue
		}
		out.Dates = append(out.Dates, m.Dates[t])
		out.Values = append(out.Values, acc*total/covered)
	}

	return out
}

// Coverage returns the fraction of total absolute weight held by the matrix's active symbols.
func Coverage(m *AlignedMatrix, weights map[string]float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += abs(w)
	}
	if total == 0 || m.Empty() {
		return 0
	}
	covered := 0.0
	for _, s := range m.Symbols {
		covered += abs(weights[s])
	}
	return covered / total
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
