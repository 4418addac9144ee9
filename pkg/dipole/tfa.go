package dipole

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"eqsmagnetics/internal/models"
)

// TotalFieldAnomaly projects a three-component field onto the main field
// direction, giving the scalar anomaly measured by a total-field
// magnetometer. The direction is expected to be a unit vector.
func TotalFieldAnomaly(field models.Vectors, direction [3]float64) []float64 {
	tfa := make([]float64, field.Len())
	floats.ScaleTo(tfa, direction[0], field.East)
	floats.AddScaled(tfa, direction[1], field.North)
	floats.AddScaled(tfa, direction[2], field.Up)
	return tfa
}

// FieldNorm returns the point-wise amplitude of a three-component field
func FieldNorm(field models.Vectors) []float64 {
	norm := make([]float64, field.Len())
	squared := make([]float64, field.Len())
	floats.MulTo(norm, field.East, field.East)
	floats.Add(norm, floats.MulTo(squared, field.North, field.North))
	floats.Add(norm, floats.MulTo(squared, field.Up, field.Up))
	for i, v := range norm {
		norm[i] = math.Sqrt(v)
	}
	return norm
}
