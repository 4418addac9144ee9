// Package survey generates observation geometries (regular grids, profiles
// and scattered points), contaminates data with noise and builds the
// synthetic source models used to exercise the estimators.
package survey

import (
	"fmt"
	"math"
	"math/rand"

	"eqsmagnetics/internal/models"
)

// GridCoordinates returns a rows×cols regular grid spanning the region at a
// constant height. Nodes are ordered west to east, then south to north.
func GridCoordinates(region models.Region, rows, cols int, upward float64) (models.Points, error) {
	if rows < 1 || cols < 1 {
		return models.Points{}, fmt.Errorf("survey: grid shape must be positive, got %dx%d", rows, cols)
	}
	if region.Width() < 0 || region.Height() < 0 {
		return models.Points{}, fmt.Errorf("survey: invalid region %+v", region)
	}

	n := rows * cols
	p := models.Points{
		Easting:  make([]float64, 0, n),
		Northing: make([]float64, 0, n),
		Upward:   make([]float64, 0, n),
	}
	for i := 0; i < rows; i++ {
		northing := linspace(region.South, region.North, rows, i)
		for j := 0; j < cols; j++ {
			p.Easting = append(p.Easting, linspace(region.West, region.East, cols, j))
			p.Northing = append(p.Northing, northing)
			p.Upward = append(p.Upward, upward)
		}
	}
	return p, nil
}

// GridShape returns the number of rows and columns of a grid over the region
// with nodes about spacing apart.
func GridShape(region models.Region, spacing float64) (rows, cols int, err error) {
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return 0, 0, fmt.Errorf("survey: grid spacing must be positive, got %g", spacing)
	}
	rows = int(math.Round(region.Height()/spacing)) + 1
	cols = int(math.Round(region.Width()/spacing)) + 1
	return rows, cols, nil
}

// ProfileCoordinates returns size points equally spaced along the straight
// line from start to end, both given as (easting, northing).
func ProfileCoordinates(start, end [2]float64, size int, upward float64) (models.Points, error) {
	if size < 1 {
		return models.Points{}, fmt.Errorf("survey: profile size must be positive, got %d", size)
	}
	p := models.Points{
		Easting:  make([]float64, size),
		Northing: make([]float64, size),
		Upward:   make([]float64, size),
	}
	for i := 0; i < size; i++ {
		p.Easting[i] = linspace(start[0], end[0], size, i)
		p.Northing[i] = linspace(start[1], end[1], size, i)
		p.Upward[i] = upward
	}
	return p, nil
}

// ScatterPoints returns size points uniformly distributed over the region at
// a constant height, drawn from rng.
func ScatterPoints(region models.Region, size int, upward float64, rng *rand.Rand) (models.Points, error) {
	if size < 1 {
		return models.Points{}, fmt.Errorf("survey: number of points must be positive, got %d", size)
	}
	p := models.Points{
		Easting:  make([]float64, size),
		Northing: make([]float64, size),
		Upward:   make([]float64, size),
	}
	for i := 0; i < size; i++ {
		p.Easting[i] = region.West + rng.Float64()*region.Width()
		p.Northing[i] = region.South + rng.Float64()*region.Height()
		p.Upward[i] = upward
	}
	return p, nil
}

// AddNoise returns a copy of values contaminated with zero-mean Gaussian
// noise of the given standard deviation.
func AddNoise(values []float64, std float64, rng *rand.Rand) []float64 {
	noisy := make([]float64, len(values))
	for i, v := range values {
		noisy[i] = v + std*rng.NormFloat64()
	}
	return noisy
}

// linspace returns node i of n equally spaced values from lower to upper
func linspace(lower, upper float64, n, i int) float64 {
	if n == 1 {
		return lower
	}
	if i == n-1 {
		return upper
	}
	return lower + float64(i)*(upper-lower)/float64(n-1)
}
