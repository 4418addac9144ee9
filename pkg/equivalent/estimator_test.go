package equivalent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/dipole"
	"eqsmagnetics/pkg/survey"
)

// mainField is the main field direction used throughout the tests
var mainField = dipole.AnglesToVector(-60, 0, 1)

// forwardAnomaly computes the total-field anomaly of a dipole set
func forwardAnomaly(t *testing.T, coords, sources models.Points, moments models.Vectors) []float64 {
	t.Helper()
	field, err := dipole.MagneticField(coords, sources, moments, 0)
	require.NoError(t, err)
	return dipole.TotalFieldAnomaly(field, mainField)
}

// testGrid returns a rows×cols grid with the given spacing, starting at the
// origin, at a constant height.
func testGrid(t *testing.T, rows, cols int, spacing, upward float64) models.Points {
	t.Helper()
	region := models.Region{
		West: 0, East: float64(cols-1) * spacing,
		South: 0, North: float64(rows-1) * spacing,
	}
	p, err := survey.GridCoordinates(region, rows, cols, upward)
	require.NoError(t, err)
	return p
}

func TestTwoSourceScenarioIsRecovered(t *testing.T) {
	sources := models.Points{
		Easting:  []float64{-50, 50},
		Northing: []float64{0, 0},
		Upward:   []float64{-500, -500},
	}
	moments := dipole.AnglesToVectors(60, 30, []float64{1e9, 1e9})

	region := models.Region{West: -450, East: 450, South: -200, North: 200}
	coords, err := survey.GridCoordinates(region, 5, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 50, coords.Len())

	data := forwardAnomaly(t, coords, sources, moments)

	params := DefaultParams()
	params.DipoleInclination = 60
	params.DipoleDeclination = 30
	params.SourcePoints = &sources
	model, err := New(params).Fit(coords, data, mainField, nil)
	require.NoError(t, err)

	residual, err := model.Residual(coords, data, mainField)
	require.NoError(t, err)
	assert.Less(t, RMS(residual), 1e-6*RMS(data))

	for _, a := range model.Amplitudes {
		assert.InEpsilon(t, 1e9, a, 1e-6)
	}
}

func TestExactInterpolationWithoutDamping(t *testing.T) {
	coords := testGrid(t, 6, 6, 100, 0)
	depth := 150.0

	// Data produced by a layer at the same depth with the same direction
	rng := rand.New(rand.NewSource(7))
	amplitudes := make([]float64, coords.Len())
	for i := range amplitudes {
		amplitudes[i] = 1e8 * rng.NormFloat64()
	}
	data := forwardAnomaly(t, coords, coords.Shift(-depth), dipole.AnglesToVectors(90, 0, amplitudes))

	params := DefaultParams()
	params.Depth = depth
	model, err := New(params).Fit(coords, data, mainField, nil)
	require.NoError(t, err)
	require.Equal(t, coords.Len(), model.Sources.Len())
	assert.Equal(t, depth, model.Depth)

	predicted, err := model.PredictAnomaly(coords, mainField)
	require.NoError(t, err)
	assert.True(t, floats.EqualApprox(data, predicted, 1e-8*floats.Norm(data, math.Inf(1))))
	assert.True(t, floats.EqualApprox(amplitudes, model.Amplitudes, 1e-6*floats.Norm(amplitudes, math.Inf(1))))
}

func TestDampingShrinksMoments(t *testing.T) {
	coords := testGrid(t, 8, 8, 100, 0)
	sources := models.Points{Easting: []float64{350}, Northing: []float64{350}, Upward: []float64{-300}}
	data := forwardAnomaly(t, coords, sources, dipole.AnglesToVectors(70, 10, []float64{5e9}))

	previous := math.Inf(1)
	for _, damping := range []float64{1e-12, 1e-11, 1e-10, 1e-9, 1e-8, 1e-7} {
		params := DefaultParams()
		params.Damping = damping
		model, err := New(params).Fit(coords, data, mainField, nil)
		require.NoError(t, err)

		norm := floats.Norm(model.Amplitudes, 2)
		assert.Less(t, norm, previous, "damping=%g", damping)
		previous = norm
	}
}

func TestPredictReturnsFieldOfStoredMoments(t *testing.T) {
	coords := testGrid(t, 5, 5, 100, 0)
	sources := models.Points{Easting: []float64{200}, Northing: []float64{200}, Upward: []float64{-250}}
	data := forwardAnomaly(t, coords, sources, dipole.AnglesToVectors(90, 0, []float64{1e9}))

	params := DefaultParams()
	params.Damping = 1e-10
	model, err := New(params).Fit(coords, data, mainField, nil)
	require.NoError(t, err)
	require.True(t, model.Fitted())

	other := testGrid(t, 3, 4, 70, 40)
	field, err := model.Predict(other)
	require.NoError(t, err)
	expected, err := dipole.MagneticField(other, model.Sources, model.Moments, 1)
	require.NoError(t, err)
	assert.Equal(t, expected, field)

	// Moments point along the configured direction
	unit := dipole.AnglesToVector(90, 0, 1)
	for j, a := range model.Amplitudes {
		m := model.Moments.At(j)
		for k := range m {
			assert.InDelta(t, unit[k]*a, m[k], math.Abs(a)*1e-12)
		}
	}
}

func TestPredictBeforeFit(t *testing.T) {
	var model *Model
	_, err := model.Predict(testGrid(t, 2, 2, 10, 0))
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = (&Model{}).PredictAnomaly(testGrid(t, 2, 2, 10, 0), mainField)
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = (&Model{}).Grid(3, 3, 0, mainField)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitInputValidation(t *testing.T) {
	coords := testGrid(t, 3, 3, 100, 0)
	data := make([]float64, coords.Len())
	for i := range data {
		data[i] = float64(i)
	}

	testCases := []struct {
		name    string
		coords  models.Points
		data    []float64
		weights []float64
		wantErr error
	}{
		{"empty", models.Points{}, nil, nil, models.ErrEmptyPoints},
		{"data length", coords, data[:4], nil, models.ErrLengthMismatch},
		{"weights length", coords, data, []float64{1, 2}, models.ErrLengthMismatch},
		{"zero weight", coords, data, []float64{1, 1, 1, 1, 0, 1, 1, 1, 1}, ErrNonPositiveWeight},
		{"negative weight", coords, data, []float64{1, 1, 1, 1, -2, 1, 1, 1, 1}, ErrNonPositiveWeight},
		{"nan weight", coords, data, []float64{1, 1, 1, 1, math.NaN(), 1, 1, 1, 1}, ErrNonPositiveWeight},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(DefaultParams()).Fit(tc.coords, tc.data, mainField, tc.weights)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFitParameterValidation(t *testing.T) {
	coords := testGrid(t, 3, 3, 100, 0)
	data := make([]float64, coords.Len())

	params := DefaultParams()
	params.Damping = -1
	_, err := New(params).Fit(coords, data, mainField, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	params = DefaultParams()
	params.Depth = -10
	_, err = New(params).Fit(coords, data, mainField, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSourcesCoincidingWithData(t *testing.T) {
	coords := testGrid(t, 3, 3, 100, 0)
	data := make([]float64, coords.Len())

	params := DefaultParams()
	sources := coords.Clone()
	params.SourcePoints = &sources
	_, err := New(params).Fit(coords, data, mainField, nil)
	assert.ErrorIs(t, err, dipole.ErrCoincidentPoints)
}

func TestRecommendedSourceDepth(t *testing.T) {
	depth, err := RecommendedSourceDepth(testGrid(t, 4, 5, 200, 0))
	require.NoError(t, err)
	assert.InDelta(t, 4.25*200, depth, 1e-9)
}

func TestSourcePlacement(t *testing.T) {
	coords := testGrid(t, 10, 10, 50, 120)

	t.Run("automatic depth", func(t *testing.T) {
		sources, depth, err := DefaultParams().placeSources(coords)
		require.NoError(t, err)
		assert.InDelta(t, 212.5, depth, 1e-9)
		assert.Equal(t, coords.Easting, sources.Easting)
		assert.InDelta(t, 120-212.5, sources.Upward[0], 1e-9)
	})

	t.Run("block reduced", func(t *testing.T) {
		params := DefaultParams()
		params.Depth = 300
		params.BlockSize = 100
		sources, depth, err := params.placeSources(coords)
		require.NoError(t, err)
		assert.Equal(t, 300.0, depth)
		assert.Equal(t, 25, sources.Len())
		assert.Equal(t, 25.0, sources.Easting[0])
		assert.Equal(t, -180.0, sources.Upward[0])
	})

	t.Run("explicit sources", func(t *testing.T) {
		explicit := models.Points{Easting: []float64{1}, Northing: []float64{2}, Upward: []float64{-3}}
		params := DefaultParams()
		params.SourcePoints = &explicit
		sources, depth, err := params.placeSources(coords)
		require.NoError(t, err)
		assert.Equal(t, 0.0, depth)
		assert.Equal(t, explicit, sources)
	})

	t.Run("duplicated data", func(t *testing.T) {
		dup := models.Points{Easting: []float64{1, 1}, Northing: []float64{2, 2}, Upward: []float64{0, 0}}
		_, _, err := DefaultParams().placeSources(dup)
		assert.ErrorIs(t, err, ErrInvalidParameter)
	})
}

func TestWeightsFavourTrustedData(t *testing.T) {
	coords := testGrid(t, 6, 6, 100, 0)
	sources := models.Points{Easting: []float64{250}, Northing: []float64{250}, Upward: []float64{-400}}
	clean := forwardAnomaly(t, coords, sources, dipole.AnglesToVectors(90, 0, []float64{2e9}))

	// Corrupt one observation and give it a tiny weight
	data := append([]float64(nil), clean...)
	data[14] += 50
	weights := make([]float64, len(data))
	for i := range weights {
		weights[i] = 1
	}
	weights[14] = 1e-6

	params := DefaultParams()
	params.SourcePoints = &sources
	unweighted, err := New(params).Fit(coords, data, mainField, nil)
	require.NoError(t, err)
	weighted, err := New(params).Fit(coords, data, mainField, weights)
	require.NoError(t, err)

	assert.Less(t, math.Abs(weighted.Amplitudes[0]-2e9), math.Abs(unweighted.Amplitudes[0]-2e9))
}

func TestGridUpwardContinuation(t *testing.T) {
	coords := testGrid(t, 10, 10, 100, 0)
	sources := models.Points{Easting: []float64{450}, Northing: []float64{450}, Upward: []float64{-300}}
	data := forwardAnomaly(t, coords, sources, dipole.AnglesToVectors(90, 0, []float64{5e9}))

	params := DefaultParams()
	params.Damping = 1e-10
	model, err := New(params).Fit(coords, data, mainField, nil)
	require.NoError(t, err)

	low, err := model.Grid(7, 9, 0, mainField)
	require.NoError(t, err)
	high, err := model.Grid(7, 9, 500, mainField)
	require.NoError(t, err)

	assert.Equal(t, 63, low.Points.Len())
	assert.Len(t, high.Anomaly, 63)
	assert.Equal(t, model.Region, low.Points.Region())
	assert.Less(t, floats.Norm(high.Anomaly, math.Inf(1)), floats.Norm(low.Anomaly, math.Inf(1)))
}
