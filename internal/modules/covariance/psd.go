package covariance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/pkg/formulas"
)

// EigenFloor is the smallest eigenvalue a correlation matrix may have after repair.
const EigenFloor = 1e-6

// shrinkTarget sits just above EigenFloor so rounding in the identity blend
// cannot land the smallest eigenvalue under the floor.
const shrinkTarget = EigenFloor * (1 + 1e-6)

// EnforcePSD repairs a correlation matrix: symmetrize, floor the eigenvalues at
// EigenFloor, rescale to a unit diagonal and, if rescaling pulled the smallest
// eigenvalue back under the floor, shrink toward the identity just enough to
// restore it. The returned matrix has an exact unit diagonal.
func EnforcePSD(c [][]float64) ([][]float64, error) {
	n := len(c)
	if n == 0 {
		return nil, nil
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(c[i]) != n {
			return nil, fmt.Errorf("correlation row %d has %d columns, want %d", i, len(c[i]), n)
		}
		sym.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			v := 0.5 * (c[i][j] + c[j][i])
			if !formulas.IsFinite(v) {
				v = 0
			}
			sym.SetSym(i, j, v)
		}
	}

	floored, err := floorEigenvalues(sym, EigenFloor)
	if err != nil {
		return nil, err
	}

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := math.Sqrt(floored.At(i, i) * floored.At(j, j))
			v := 0.0
			if d > 0 {
				v = floored.At(i, j) / d
			}
			out.SetSym(i, j, v)
		}
	}

	minEig, err := smallestEigenvalue(out)
	if err != nil {
		return nil, err
	}
	if minEig < shrinkTarget {
		delta := (shrinkTarget - minEig) / (1 - minEig)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out.SetSym(i, j, (1-delta)*out.At(i, j))
			}
		}
	}

	result := make([][]float64, n)
	for i := 0; i < n; i++ {
		result[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			result[i][j] = out.At(i, j)
		}
		result[i][i] = 1
	}
	return result, nil
}

func floorEigenvalues(sym *mat.SymDense, floor float64) (*mat.SymDense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, fmt.Errorf("eigendecomposition failed")
	}
	values := es.Values(nil)
	for i, v := range values {
		if v < floor {
			values[i] = floor
		}
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	var scaled, rec mat.Dense
	scaled.Mul(&vecs, mat.NewDiagDense(len(values), values))
	rec.Mul(&scaled, vecs.T())

	n := len(values)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(rec.At(i, j)+rec.At(j, i)))
		}
	}
	return out, nil
}

func smallestEigenvalue(sym *mat.SymDense) (float64, error) {
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return 0, fmt.Errorf("eigendecomposition failed")
	}
	values := es.Values(nil)
	// EigenSym returns eigenvalues in ascending order
	return values[0], nil
}

// Eigenvalues returns the ascending eigenvalues of a symmetric matrix.
func Eigenvalues(c [][]float64) ([]float64, error) {
	n := len(c)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, c[i][j])
		}
	}
	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return nil, fmt.Errorf("eigendecomposition failed")
	}
	return es.Values(nil), nil
}
