package dipole

import (
	"errors"
	"fmt"
	"math"

	"eqsmagnetics/internal/models"
)

const (
	// VacuumMagneticPermeability is μ0 in henry/meter
	VacuumMagneticPermeability = 1.25663706212e-6

	// TeslaToNanotesla converts field values from tesla to nanotesla
	TeslaToNanotesla = 1e9
)

// fieldConstant is μ0/4π scaled to nanotesla, applied once per dipole term
const fieldConstant = TeslaToNanotesla * VacuumMagneticPermeability / (4 * math.Pi)

// ErrCoincidentPoints is returned when an observation point coincides with a
// dipole, where the dipole field is undefined.
var ErrCoincidentPoints = errors.New("dipole: observation point coincides with a source")

// MagneticField computes the three components of the magnetic field, in
// nanotesla, produced at every observation point by a set of dipoles with
// one moment per source.
//
// The double loop over observations and sources runs on the given number of
// workers (one per CPU if workers <= 0), split along the observations.
func MagneticField(obs, sources models.Points, moments models.Vectors, workers int) (models.Vectors, error) {
	if err := obs.Validate(); err != nil {
		return models.Vectors{}, fmt.Errorf("invalid observation points: %w", err)
	}
	if err := sources.Validate(); err != nil {
		return models.Vectors{}, fmt.Errorf("invalid source points: %w", err)
	}
	if err := moments.Validate(); err != nil {
		return models.Vectors{}, fmt.Errorf("invalid moments: %w", err)
	}
	if moments.Len() != sources.Len() {
		return models.Vectors{}, fmt.Errorf("%w: %d sources but %d moments",
			models.ErrLengthMismatch, sources.Len(), moments.Len())
	}

	field := models.NewVectors(obs.Len())
	err := parallelRange(obs.Len(), workers, func(start, end int) error {
		for i := start; i < end; i++ {
			var be, bn, bu float64
			for j := range sources.Easting {
				fe, fn, fu, err := dipoleField(
					obs.Easting[i], obs.Northing[i], obs.Upward[i],
					sources.Easting[j], sources.Northing[j], sources.Upward[j],
					moments.East[j], moments.North[j], moments.Up[j],
				)
				if err != nil {
					return fmt.Errorf("observation %d, source %d: %w", i, j, err)
				}
				be += fe
				bn += fn
				bu += fu
			}
			field.East[i] = be
			field.North[i] = bn
			field.Up[i] = bu
		}
		return nil
	})
	if err != nil {
		return models.Vectors{}, err
	}
	return field, nil
}

// MagneticFieldUniform is MagneticField with the same moment for every source
func MagneticFieldUniform(obs, sources models.Points, moment [3]float64, workers int) (models.Vectors, error) {
	if err := sources.Validate(); err != nil {
		return models.Vectors{}, fmt.Errorf("invalid source points: %w", err)
	}
	moments := models.NewVectors(sources.Len())
	for j := range moments.East {
		moments.East[j] = moment[0]
		moments.North[j] = moment[1]
		moments.Up[j] = moment[2]
	}
	return MagneticField(obs, sources, moments, workers)
}

// dipoleField evaluates (μ0/4π)/r³ · (3(m·r̂)r̂ − m) for a single
// observation/source pair, in nanotesla.
func dipoleField(
	pe, pn, pu float64,
	qe, qn, qu float64,
	me, mn, mu float64,
) (float64, float64, float64, error) {
	re, rn, ru := pe-qe, pn-qn, pu-qu
	dist2 := re*re + rn*rn + ru*ru
	if dist2 == 0 {
		return 0, 0, 0, ErrCoincidentPoints
	}
	dist := math.Sqrt(dist2)
	invDist3 := 1 / (dist2 * dist)
	dot := (me*re + mn*rn + mu*ru) / dist2
	return fieldConstant * invDist3 * (3*dot*re - me),
		fieldConstant * invDist3 * (3*dot*rn - mn),
		fieldConstant * invDist3 * (3*dot*ru - mu),
		nil
}
