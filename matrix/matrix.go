package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// WeightedRowMean returns the weighted mean of m's rows, weights w
// summing to 1.
func WeightedRowMean(m *mat.Dense, w []float64) []float64 {
	_, cols := m.Dims()
	mean := make([]float64, cols)
	rows := len(w)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c := 0; c < cols; c++ {
			mean[c] += w[r] * row[c]
		}
	}
	return mean
}

// WeightedCov calculates the weighted covariance of m's rows around
// mean, weights w summing to 1. It centres each row on mean and scales
// it by the square root of its per-row responsibility weight, the shape the
// GMM resampler needs for its per-component M-step.
func WeightedCov(m *mat.Dense, w []float64, mean []float64) (*mat.SymDense, error) {
	rows, cols := m.Dims()

	x := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c := 0; c < cols; c++ {
			x.Set(r, c, (row[c]-mean[c])*math.Sqrt(w[r]))
		}
	}

	cov := new(mat.Dense)
	cov.Mul(x.T(), x)

	return ToSymDense(cov)
}

// ToSymDense converts m to SymDense (symmetric Dense matrix) if possible.
// It returns error if the provided Dense matrix is not symmetric.
func ToSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("Matrix must be square")
	}

	mT := m.T()
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && !floats.EqualWithinAbsOrRel(mT.At(i, j), m.At(i, j), 1e-6, 1e-2) {
				return nil, fmt.Errorf("Matrix not symmetric (%d, %d): %.40f != %.40f",
					i, j, mT.At(i, j), m.At(i, j))
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}

	return mat.NewSymDense(r, vals), nil
}
