// Package dipole implements the forward modelling of point magnetic dipoles:
// conversion of geomagnetic angles to Cartesian vectors, the dipole field
// kernel, projection onto the main field direction (total-field anomaly)
// and the sensitivity matrix used by the equivalent-source inversion.
//
// Coordinates follow the easting, northing, upward convention. Distances are
// in meters, moments in A·m² and fields in nanotesla.
package dipole

import (
	"math"

	"eqsmagnetics/internal/models"
)

// AnglesToVector converts an inclination, declination and amplitude to a
// Cartesian (east, north, up) vector.
//
// Inclination is in degrees and positive downwards. Declination is in
// degrees, measured clockwise from the northing axis.
func AnglesToVector(inclination, declination, amplitude float64) [3]float64 {
	sinInc, cosInc := math.Sincos(-inclination * math.Pi / 180)
	sinDec, cosDec := math.Sincos(declination * math.Pi / 180)
	return [3]float64{
		cosInc * sinDec * amplitude,
		cosInc * cosDec * amplitude,
		sinInc * amplitude,
	}
}

// AnglesToVectors broadcasts a single direction against many amplitudes.
// The result holds one vector per amplitude, components first.
func AnglesToVectors(inclination, declination float64, amplitudes []float64) models.Vectors {
	unit := AnglesToVector(inclination, declination, 1)
	out := models.NewVectors(len(amplitudes))
	for i, a := range amplitudes {
		out.East[i] = unit[0] * a
		out.North[i] = unit[1] * a
		out.Up[i] = unit[2] * a
	}
	return out
}
