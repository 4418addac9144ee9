package equivalent

import (
	"fmt"
	"math"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/dipole"
	"eqsmagnetics/pkg/solver"
)

// EquivalentSources fits all sources at once with a single damped least
// squares solve.
type EquivalentSources struct {
	params Params
}

// New creates a single-window estimator
func New(params Params) *EquivalentSources {
	return &EquivalentSources{params: params}
}

// Params returns the estimator configuration
func (e *EquivalentSources) Params() Params {
	return e.params
}

// Fit estimates the moment amplitudes of an equivalent-source layer from
// total-field anomaly data observed at coords. fieldDirection is the unit
// vector of the main field. Weights may be nil for unit weights.
//
// Every call returns a new model; the estimator itself holds no fitted state.
func (e *EquivalentSources) Fit(coords models.Points, data []float64, fieldDirection [3]float64, weights []float64) (*Model, error) {
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	if err := checkFitInput(coords, data, weights); err != nil {
		return nil, err
	}

	sources, depth, err := e.params.placeSources(coords)
	if err != nil {
		return nil, err
	}

	momentDirection := dipole.AnglesToVector(e.params.DipoleInclination, e.params.DipoleDeclination, 1)
	jacobian, err := dipole.Jacobian(coords, sources, momentDirection, fieldDirection, e.params.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to build jacobian: %w", err)
	}

	amplitudes, err := solver.DampedLeastSquares(jacobian, data, weights, e.params.Damping)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate moment amplitudes: %w", err)
	}

	return newModel(e.params, sources, amplitudes, coords.Region(), depth), nil
}

// checkFitInput validates the coordinates, data and weights of a fit
func checkFitInput(coords models.Points, data, weights []float64) error {
	if err := coords.Validate(); err != nil {
		return fmt.Errorf("invalid coordinates: %w", err)
	}
	if len(data) != coords.Len() {
		return fmt.Errorf("%w: %d coordinates but %d data values",
			models.ErrLengthMismatch, coords.Len(), len(data))
	}
	if weights == nil {
		return nil
	}
	if len(weights) != len(data) {
		return fmt.Errorf("%w: %d data values but %d weights",
			models.ErrLengthMismatch, len(data), len(weights))
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %g", ErrNonPositiveWeight, i, w)
		}
	}
	return nil
}
