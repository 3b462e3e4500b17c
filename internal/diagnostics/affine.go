package diagnostics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// AffineFit is the least-squares map origin*Coef + Intercept ~= target.
// It is refit from scratch on every diagnostic call; there is no memory
// across calls.
type AffineFit struct {
	Coef      *mat.Dense // dimOrigin x dimTarget
	Intercept []float64  // dimTarget
}

// FitAffine solves the least-squares affine regression from origin onto
// target. The two spaces may have different dimensionality.
func FitAffine(target, origin mat.Matrix) (*AffineFit, error) {
	k, dimOrigin := origin.Dims()
	tk, dimTarget := target.Dims()
	if k != tk {
		return nil, fmt.Errorf("origin has %d rows, target has %d", k, tk)
	}
	if k < dimOrigin+1 {
		return nil, fmt.Errorf("affine fit needs at least %d points, got %d", dimOrigin+1, k)
	}

	// Augment with a ones column so the intercept is part of the solve.
	augmented := mat.NewDense(k, dimOrigin+1, nil)
	for i := 0; i < k; i++ {
		row := augmented.RawRowView(i)
		for j := 0; j < dimOrigin; j++ {
			row[j] = origin.At(i, j)
		}
		row[dimOrigin] = 1
	}

	var solution mat.Dense
	if err := solution.Solve(augmented, target); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("affine fit: %w", err)
		}
	}

	coef := mat.DenseCopyOf(solution.Slice(0, dimOrigin, 0, dimTarget))
	intercept := make([]float64, dimTarget)
	copy(intercept, solution.RawRowView(dimOrigin))
	return &AffineFit{Coef: coef, Intercept: intercept}, nil
}

// Project applies the fitted map to origin points.
func (f *AffineFit) Project(origin mat.Matrix) *mat.Dense {
	k, _ := origin.Dims()
	_, dimTarget := f.Coef.Dims()
	out := mat.NewDense(k, dimTarget, nil)
	out.Mul(origin, f.Coef)
	for i := 0; i < k; i++ {
		row := out.RawRowView(i)
		for j := 0; j < dimTarget; j++ {
			row[j] += f.Intercept[j]
		}
	}
	return out
}
