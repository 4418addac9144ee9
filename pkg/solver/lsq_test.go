package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestDampedLeastSquaresExactSystem(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		2, 1, 1,
		1, 3, 1,
		1, 1, 4,
	})
	data := []float64{7, 10, 15}

	x, err := DampedLeastSquares(a, data, nil, 0)
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox([]float64{1, 2, 3}, x, 1e-12), "got %v", x)
}

func TestDampedLeastSquaresOverdetermined(t *testing.T) {
	// Fit a line y = 2 + 0.5x through exact samples
	xs := []float64{0, 1, 2, 3, 4, 5}
	a := mat.NewDense(len(xs), 2, nil)
	data := make([]float64, len(xs))
	for i, v := range xs {
		a.Set(i, 0, 1)
		a.Set(i, 1, v)
		data[i] = 2 + 0.5*v
	}

	x, err := DampedLeastSquares(a, data, nil, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2, x[0], 1e-12)
	assert.InDelta(t, 0.5, x[1], 1e-12)

	// Weights do not change an exact fit
	weights := []float64{1, 10, 0.1, 5, 2, 3}
	xw, err := DampedLeastSquares(a, data, weights, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2, xw[0], 1e-10)
	assert.InDelta(t, 0.5, xw[1], 1e-10)
}

func TestDampedLeastSquaresWeightsPullFit(t *testing.T) {
	// Two inconsistent observations of a single parameter
	a := mat.NewDense(2, 1, []float64{1, 1})
	data := []float64{0, 10}

	x, err := DampedLeastSquares(a, data, []float64{1, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5, x[0], 1e-12)

	x, err = DampedLeastSquares(a, data, []float64{1, 3}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, x[0], 1e-12)
}

func TestDampedLeastSquaresMatchesNormalEquations(t *testing.T) {
	a := mat.NewDense(4, 3, []float64{
		1, 2, 0,
		0, 1, 1,
		3, 0, 1,
		1, 1, 1,
	})
	data := []float64{1, -2, 4, 0.5}
	weights := []float64{1, 2, 0.5, 4}
	damping := 0.3

	x, err := DampedLeastSquares(a, data, weights, damping)
	require.NoError(t, err)

	// Residual of the damped normal equations must vanish
	w := mat.NewDiagDense(4, weights)
	var wa, lhs mat.Dense
	wa.Mul(w, a)
	lhs.Mul(a.T(), &wa)
	for j := 0; j < 3; j++ {
		lhs.Set(j, j, lhs.At(j, j)+damping)
	}
	wd := append([]float64(nil), weights...)
	floats.Mul(wd, data)
	var rhs, got mat.VecDense
	rhs.MulVec(a.T(), mat.NewVecDense(4, wd))
	got.MulVec(&lhs, mat.NewVecDense(3, x))
	assert.True(t, mat.EqualApprox(&rhs, &got, 1e-12))
}

func TestDampingShrinksSolution(t *testing.T) {
	a := mat.NewDense(5, 4, []float64{
		1, 0.9, 0.2, 0,
		0.9, 1, 0.3, 0.1,
		0.2, 0.3, 1, 0.8,
		0, 0.1, 0.8, 1,
		0.5, 0.5, 0.5, 0.5,
	})
	data := []float64{1, 2, -1, 0.5, 3}

	previous := math.Inf(1)
	for _, damping := range []float64{0, 1e-4, 1e-2, 1e-1, 1, 10, 100} {
		x, err := DampedLeastSquares(a, data, nil, damping)
		require.NoError(t, err)
		norm := floats.Norm(x, 2)
		assert.Less(t, norm, previous, "damping=%g", damping)
		previous = norm
	}
}

func TestDampedLeastSquaresSingular(t *testing.T) {
	// The second row is twice the first, so A is exactly singular
	a := mat.NewDense(2, 2, []float64{
		1, 2,
		2, 4,
	})
	data := []float64{1, 2}

	_, err := DampedLeastSquares(a, data, nil, 0)
	assert.ErrorIs(t, err, ErrSingularSystem)

	// Damping picks the minimum norm solution of the consistent system
	x, err := DampedLeastSquares(a, data, nil, 1e-6)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, x[0], 1e-4)
	assert.InDelta(t, 0.4, x[1], 1e-4)
}

func TestDampedLeastSquaresValidation(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	testCases := []struct {
		name    string
		data    []float64
		weights []float64
		damping float64
		wantErr error
	}{
		{"data length", []float64{1}, nil, 0, ErrDimensionMismatch},
		{"weights length", []float64{1, 2}, []float64{1}, 0, ErrDimensionMismatch},
		{"zero weight", []float64{1, 2}, []float64{1, 0}, 0, ErrInvalidWeights},
		{"negative weight", []float64{1, 2}, []float64{-1, 1}, 0, ErrInvalidWeights},
		{"negative damping", []float64{1, 2}, nil, -1, ErrInvalidDamping},
		{"nan damping", []float64{1, 2}, nil, math.NaN(), ErrInvalidDamping},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DampedLeastSquares(a, tc.data, tc.weights, tc.damping)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
