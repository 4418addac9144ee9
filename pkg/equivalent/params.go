// Package equivalent fits magnetic equivalent-source layers to total-field
// anomaly data.
//
// An equivalent-source layer is a set of fictitious point dipoles, placed
// below the observations with a common moment direction, whose combined
// field reproduces the observed anomaly. Once fitted the layer predicts the
// field anywhere, which is used for gridding, upward continuation and noise
// reduction.
//
// Two estimators are provided. EquivalentSources solves a single damped
// least squares problem for all sources at once. WindowedEquivalentSources
// splits the survey into overlapping tiles and fits them one at a time
// against a shared residual, which keeps matrix sizes bounded on large
// surveys.
package equivalent

import (
	"errors"
	"fmt"
	"math"

	"eqsmagnetics/internal/models"
)

var (
	// ErrNotFitted is returned when predicting with a model that was never fitted
	ErrNotFitted = errors.New("equivalent: model is not fitted")

	// ErrNonPositiveWeight is returned when a data weight is zero, negative or NaN
	ErrNonPositiveWeight = errors.New("equivalent: weights must be positive")

	// ErrInvalidParameter is returned for out-of-range estimator parameters
	ErrInvalidParameter = errors.New("equivalent: invalid parameter")
)

// ProgressCallback is a function that reports progress during fitting
type ProgressCallback func(completed, total int, message string)

// Params configures the placement of the sources and the least squares
// problem shared by both estimators.
type Params struct {
	// Damping is the ridge regularization parameter λ. Zero means ordinary
	// least squares.
	Damping float64

	// Depth is how far below the data the sources are placed, in meters.
	// Zero means the depth is estimated from the data spacing.
	Depth float64

	// BlockSize, when positive, block-reduces the data footprint before
	// placing one source per block.
	BlockSize float64

	// DipoleInclination and DipoleDeclination give the common moment
	// direction of every source, in degrees.
	DipoleInclination float64
	DipoleDeclination float64

	// SourcePoints, when set, fixes the source locations and bypasses the
	// depth and block-size heuristics.
	SourcePoints *models.Points

	// Workers is the number of goroutines used by the dipole kernel.
	// Zero means one per CPU.
	Workers int
}

// DefaultParams returns vertically magnetised sources with no damping and an
// automatic depth.
func DefaultParams() Params {
	return Params{
		DipoleInclination: 90,
		DipoleDeclination: 0,
	}
}

// Validate checks that all parameters are within range
func (p Params) Validate() error {
	if p.Damping < 0 || math.IsNaN(p.Damping) || math.IsInf(p.Damping, 0) {
		return fmt.Errorf("%w: damping must be non-negative, got %g", ErrInvalidParameter, p.Damping)
	}
	if p.Depth < 0 || math.IsNaN(p.Depth) || math.IsInf(p.Depth, 0) {
		return fmt.Errorf("%w: depth must be non-negative, got %g", ErrInvalidParameter, p.Depth)
	}
	if p.BlockSize < 0 || math.IsNaN(p.BlockSize) || math.IsInf(p.BlockSize, 0) {
		return fmt.Errorf("%w: block size must be non-negative, got %g", ErrInvalidParameter, p.BlockSize)
	}
	if p.SourcePoints != nil {
		if err := p.SourcePoints.Validate(); err != nil {
			return fmt.Errorf("invalid source points: %w", err)
		}
	}
	return nil
}
