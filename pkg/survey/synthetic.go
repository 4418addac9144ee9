package survey

import (
	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/dipole"
)

// Direction is a magnetisation direction in degrees
type Direction struct {
	Inclination float64 `yaml:"inclination"`
	Declination float64 `yaml:"declination"`
}

// SyntheticDirections sets the magnetisation direction of every body of the
// simple synthetic model.
type SyntheticDirections struct {
	Dike1    Direction `yaml:"dike1"`
	Dike2    Direction `yaml:"dike2"`
	Point1   Direction `yaml:"point1"`
	Point2   Direction `yaml:"point2"`
	Point3   Direction `yaml:"point3"`
	Point4   Direction `yaml:"point4"`
	Regional Direction `yaml:"regional"`
}

// DefaultSyntheticDirections returns induced-looking directions for most
// bodies with a remanent second dike swarm.
func DefaultSyntheticDirections() SyntheticDirections {
	return SyntheticDirections{
		Dike1:    Direction{Inclination: 70, Declination: 60},
		Dike2:    Direction{Inclination: -45, Declination: 200},
		Point1:   Direction{Inclination: 65, Declination: 10},
		Point2:   Direction{Inclination: 65, Declination: 10},
		Point3:   Direction{Inclination: 30, Declination: -40},
		Point4:   Direction{Inclination: 65, Declination: 10},
		Regional: Direction{Inclination: 65, Declination: 10},
	}
}

// dikeMomentAmplitude is the moment of every dipole making up a dike, in A·m²
const dikeMomentAmplitude = 1e8

// SimpleSynthetic builds the dipoles of a survey-scale synthetic model over
// a 40×40 km area: two crossing dike swarms and two shorter dikes at the
// surface, four compact bodies at different depths and a deep regional pair.
// Observations should be placed above zero height.
func SimpleSynthetic(d SyntheticDirections) (models.Points, models.Vectors) {
	var sources models.Points
	var moments models.Vectors

	add := func(points models.Points, direction Direction, amplitude float64) {
		amplitudes := make([]float64, points.Len())
		for i := range amplitudes {
			amplitudes[i] = amplitude
		}
		sources = sources.Append(points)
		moments = moments.Append(dipole.AnglesToVectors(direction.Inclination, direction.Declination, amplitudes))
	}
	dike := func(start, end [2]float64, size int, direction Direction) {
		// Sizes are constant and positive so the error is always nil
		points, _ := ProfileCoordinates(start, end, size, 0)
		add(points, direction, dikeMomentAmplitude)
	}
	point := func(easting, northing, upward float64, direction Direction, amplitude float64) {
		add(models.Points{
			Easting:  []float64{easting},
			Northing: []float64{northing},
			Upward:   []float64{upward},
		}, direction, amplitude)
	}

	// Dike NE-SW
	dike([2]float64{-20e3, -5e3}, [2]float64{20e3, 12e3}, 1000, d.Dike1)
	// Dike NW-SE
	dike([2]float64{20e3, -10e3}, [2]float64{-20e3, 25e3}, 1000, d.Dike2)
	// Small dike
	dike([2]float64{20e3, -4e3}, [2]float64{4e3, 3e3}, 1000, d.Dike2)
	// Very small dike
	dike([2]float64{3e3, 3.5e3}, [2]float64{-0.5e3, 5.5e3}, 100, d.Dike2)

	point(-7500, 7000, -350, d.Point1, 1e10)
	point(0, -100, -1e3, d.Point2, 5e10)
	point(-8000, -6000, -800, d.Point3, 5e10)
	point(7500, -7500, -500, d.Point4, 2e10)

	// Regional
	point(2e3, -9e3, -8e3, d.Regional, 1e13)
	point(-5e3, 5e3, -8e3, d.Regional, 1e13)

	return sources, moments
}
