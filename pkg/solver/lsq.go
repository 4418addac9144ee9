// Package solver provides the damped (ridge regularized) weighted least
// squares solve used to estimate dipole moment amplitudes.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularSystem is returned when the (regularized) least squares
	// system cannot be solved.
	ErrSingularSystem = errors.New("solver: singular least squares system")

	// ErrDimensionMismatch is returned when data or weights do not match the
	// number of rows of the Jacobian.
	ErrDimensionMismatch = errors.New("solver: dimension mismatch")

	// ErrInvalidWeights is returned for non-positive or non-finite weights
	ErrInvalidWeights = errors.New("solver: weights must be positive and finite")

	// ErrInvalidDamping is returned for a negative or non-finite damping
	ErrInvalidDamping = errors.New("solver: damping must be a non-negative finite number")
)

// DampedLeastSquares solves
//
//	(AᵗWA + λI) x = AᵗWd
//
// for x, where W = diag(weights) and λ = damping. A nil weights slice means
// unit weights.
//
// With λ > 0 the symmetric positive definite system is factorised with a
// Cholesky decomposition. With λ = 0 the problem reduces to ordinary
// weighted least squares, which is solved directly on W^½A (QR for
// overdetermined, LQ for underdetermined and LU for square systems) so the
// condition number is not squared. A rank-deficient system yields an error
// wrapping ErrSingularSystem; no NaNs are ever returned.
func DampedLeastSquares(a mat.Matrix, data, weights []float64, damping float64) ([]float64, error) {
	n, m := a.Dims()
	if len(data) != n {
		return nil, fmt.Errorf("%w: jacobian has %d rows, data has %d values", ErrDimensionMismatch, n, len(data))
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("%w: jacobian has %d rows, %d weights", ErrDimensionMismatch, n, len(weights))
	}
	if damping < 0 || math.IsNaN(damping) || math.IsInf(damping, 0) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidDamping, damping)
	}

	// Scale rows by sqrt(w) so that (W^½A)ᵗ(W^½A) = AᵗWA
	aw := mat.DenseCopyOf(a)
	dw := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
			if !(w > 0) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("%w: weight %d is %g", ErrInvalidWeights, i, w)
			}
		}
		sw := math.Sqrt(w)
		row := aw.RawRowView(i)
		for j := range row {
			row[j] *= sw
		}
		dw.SetVec(i, data[i]*sw)
	}

	var x mat.VecDense
	var err error
	if damping > 0 {
		err = solveNormalEquations(&x, aw, dw, damping, m)
	} else {
		err = solveOrdinary(&x, aw, dw)
	}
	if err != nil {
		return nil, err
	}

	solution := make([]float64, m)
	for j := range solution {
		solution[j] = x.AtVec(j)
		if math.IsNaN(solution[j]) || math.IsInf(solution[j], 0) {
			return nil, fmt.Errorf("%w: non-finite amplitude at index %d", ErrSingularSystem, j)
		}
	}
	return solution, nil
}

// solveNormalEquations solves (AᵗA + λI)x = Aᵗd by Cholesky factorisation
func solveNormalEquations(x *mat.VecDense, a *mat.Dense, d *mat.VecDense, damping float64, m int) error {
	hessian := mat.NewSymDense(m, nil)
	hessian.SymOuterK(1, a.T())
	for j := 0; j < m; j++ {
		hessian.SetSym(j, j, hessian.At(j, j)+damping)
	}

	var rhs mat.VecDense
	rhs.MulVec(a.T(), d)

	var chol mat.Cholesky
	if ok := chol.Factorize(hessian); !ok {
		return fmt.Errorf("%w: damped normal equations are not positive definite", ErrSingularSystem)
	}
	if err := chol.SolveVecTo(x, &rhs); err != nil {
		return conditionError(err)
	}
	return nil
}

// solveOrdinary solves min |Ax - d| directly
func solveOrdinary(x *mat.VecDense, a *mat.Dense, d *mat.VecDense) error {
	if err := x.SolveVec(a, d); err != nil {
		return conditionError(err)
	}
	return nil
}

// conditionError wraps a gonum solve failure. gonum only reports a
// Condition error past mat.ConditionTolerance, where the system is singular
// to working precision, so every failure is fatal here.
func conditionError(err error) error {
	var cond mat.Condition
	if errors.As(err, &cond) {
		return fmt.Errorf("%w: condition number %g", ErrSingularSystem, float64(cond))
	}
	return fmt.Errorf("%w: %v", ErrSingularSystem, err)
}
