package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyPoints is returned when a point set holds no coordinates.
	ErrEmptyPoints = errors.New("models: point set is empty")

	// ErrLengthMismatch is returned when parallel arrays differ in length.
	ErrLengthMismatch = errors.New("models: coordinate arrays have different lengths")
)

// Points is an ordered set of 3D coordinates stored as parallel arrays.
// Upward is positive up, so sources below a survey have smaller Upward
// values than the observations.
type Points struct {
	// Easting coordinates in meters
	Easting []float64

	// Northing coordinates in meters
	Northing []float64

	// Upward coordinates in meters
	Upward []float64
}

// NewPoints builds a point set from three parallel arrays and validates it
func NewPoints(easting, northing, upward []float64) (Points, error) {
	p := Points{Easting: easting, Northing: northing, Upward: upward}
	if err := p.Validate(); err != nil {
		return Points{}, err
	}
	return p, nil
}

// Len returns the number of points
func (p Points) Len() int {
	return len(p.Easting)
}

// Validate checks that the point set is non-empty and that the three
// coordinate arrays have the same length.
func (p Points) Validate() error {
	if len(p.Easting) != len(p.Northing) || len(p.Easting) != len(p.Upward) {
		return fmt.Errorf("%w: easting=%d northing=%d upward=%d",
			ErrLengthMismatch, len(p.Easting), len(p.Northing), len(p.Upward))
	}
	if len(p.Easting) == 0 {
		return ErrEmptyPoints
	}
	return nil
}

// At returns the coordinates of point i
func (p Points) At(i int) (easting, northing, upward float64) {
	return p.Easting[i], p.Northing[i], p.Upward[i]
}

// Subset returns a new point set with the points at the given indices,
// in index order. The returned arrays do not alias the receiver.
func (p Points) Subset(indices []int) Points {
	out := Points{
		Easting:  make([]float64, len(indices)),
		Northing: make([]float64, len(indices)),
		Upward:   make([]float64, len(indices)),
	}
	for k, i := range indices {
		out.Easting[k] = p.Easting[i]
		out.Northing[k] = p.Northing[i]
		out.Upward[k] = p.Upward[i]
	}
	return out
}

// Shift returns a copy of the point set with dz added to every Upward value
func (p Points) Shift(dz float64) Points {
	out := p.Clone()
	for i := range out.Upward {
		out.Upward[i] += dz
	}
	return out
}

// Clone returns a deep copy of the point set
func (p Points) Clone() Points {
	out := Points{
		Easting:  make([]float64, len(p.Easting)),
		Northing: make([]float64, len(p.Northing)),
		Upward:   make([]float64, len(p.Upward)),
	}
	copy(out.Easting, p.Easting)
	copy(out.Northing, p.Northing)
	copy(out.Upward, p.Upward)
	return out
}

// Append returns the concatenation of the receiver and q
func (p Points) Append(q Points) Points {
	out := p.Clone()
	out.Easting = append(out.Easting, q.Easting...)
	out.Northing = append(out.Northing, q.Northing...)
	out.Upward = append(out.Upward, q.Upward...)
	return out
}

// Region returns the horizontal bounding box of the point set
func (p Points) Region() Region {
	r := Region{
		West:  math.Inf(1),
		East:  math.Inf(-1),
		South: math.Inf(1),
		North: math.Inf(-1),
	}
	for i := range p.Easting {
		r.West = math.Min(r.West, p.Easting[i])
		r.East = math.Max(r.East, p.Easting[i])
		r.South = math.Min(r.South, p.Northing[i])
		r.North = math.Max(r.North, p.Northing[i])
	}
	return r
}

// Region is a horizontal bounding box in easting/northing
type Region struct {
	West, East, South, North float64
}

// Width returns the east-west extent
func (r Region) Width() float64 { return r.East - r.West }

// Height returns the south-north extent
func (r Region) Height() float64 { return r.North - r.South }

// Area returns the horizontal area covered by the region
func (r Region) Area() float64 { return r.Width() * r.Height() }

// Contains reports whether the horizontal coordinate lies inside the
// region, boundaries included.
func (r Region) Contains(easting, northing float64) bool {
	return easting >= r.West && easting <= r.East &&
		northing >= r.South && northing <= r.North
}
