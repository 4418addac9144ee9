package equivalent

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/dipole"
	"eqsmagnetics/pkg/survey"
)

// Model is a fitted equivalent-source layer. It is only produced by the
// estimators' Fit methods; a nil or zero Model reports ErrNotFitted.
type Model struct {
	// Sources holds the dipole locations
	Sources models.Points

	// Moments holds one moment vector per source, in A·m²
	Moments models.Vectors

	// Amplitudes holds the signed moment amplitudes along the common
	// dipole direction
	Amplitudes []float64

	// Region is the horizontal extent of the data used in the fit
	Region models.Region

	// Depth is the depth below the data at which sources were placed,
	// zero when explicit source points were given
	Depth float64

	// DipoleInclination and DipoleDeclination give the moment direction
	DipoleInclination float64
	DipoleDeclination float64

	// History is only set by the windowed estimator
	History *FitHistory

	workers int
}

// newModel converts fitted amplitudes to moment vectors
func newModel(params Params, sources models.Points, amplitudes []float64, region models.Region, depth float64) *Model {
	return &Model{
		Sources:           sources,
		Moments:           dipole.AnglesToVectors(params.DipoleInclination, params.DipoleDeclination, amplitudes),
		Amplitudes:        amplitudes,
		Region:            region,
		Depth:             depth,
		DipoleInclination: params.DipoleInclination,
		DipoleDeclination: params.DipoleDeclination,
		workers:           params.Workers,
	}
}

// Fitted reports whether the model holds a fitted source layer
func (m *Model) Fitted() bool {
	return m != nil && m.Moments.Len() > 0 && m.Moments.Len() == m.Sources.Len()
}

// Predict evaluates the three-component magnetic field of the source layer
// at coords, in nanotesla. Use PredictAnomaly for the total-field anomaly.
func (m *Model) Predict(coords models.Points) (models.Vectors, error) {
	if !m.Fitted() {
		return models.Vectors{}, ErrNotFitted
	}
	return dipole.MagneticField(coords, m.Sources, m.Moments, m.workers)
}

// PredictAnomaly evaluates the total-field anomaly of the source layer at
// coords for the given main field direction.
func (m *Model) PredictAnomaly(coords models.Points, fieldDirection [3]float64) ([]float64, error) {
	field, err := m.Predict(coords)
	if err != nil {
		return nil, err
	}
	return dipole.TotalFieldAnomaly(field, fieldDirection), nil
}

// Residual returns data minus the predicted anomaly at coords
func (m *Model) Residual(coords models.Points, data []float64, fieldDirection [3]float64) ([]float64, error) {
	if len(data) != coords.Len() {
		return nil, fmt.Errorf("%w: %d coordinates but %d data values",
			models.ErrLengthMismatch, coords.Len(), len(data))
	}
	predicted, err := m.PredictAnomaly(coords, fieldDirection)
	if err != nil {
		return nil, err
	}
	residual := make([]float64, len(data))
	floats.SubTo(residual, data, predicted)
	return residual, nil
}

// Grid is a regular grid of predicted total-field anomaly values
type Grid struct {
	// Points holds the grid nodes, row by row from south to north
	Points models.Points

	// Anomaly holds the predicted anomaly at every node
	Anomaly []float64

	// Rows and Cols give the grid shape
	Rows, Cols int
}

// Grid predicts the total-field anomaly on a regular grid over the data
// region at a constant height. Choosing a height above the survey performs
// an upward continuation.
func (m *Model) Grid(rows, cols int, upward float64, fieldDirection [3]float64) (*Grid, error) {
	if !m.Fitted() {
		return nil, ErrNotFitted
	}
	points, err := survey.GridCoordinates(m.Region, rows, cols, upward)
	if err != nil {
		return nil, err
	}
	anomaly, err := m.PredictAnomaly(points, fieldDirection)
	if err != nil {
		return nil, err
	}
	return &Grid{Points: points, Anomaly: anomaly, Rows: rows, Cols: cols}, nil
}

// RMS returns the root mean square of the values
func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Norm(values, 2) / math.Sqrt(float64(len(values)))
}
