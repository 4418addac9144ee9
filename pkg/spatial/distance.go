// Package spatial holds the spatial helpers used to lay out equivalent
// sources: nearest-neighbour spacing of scattered data, block reduction and
// overlapping rolling windows. All operations work on the horizontal
// (easting, northing) coordinates only.
package spatial

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/kdtree"

	"eqsmagnetics/internal/models"
)

// ErrTooFewPoints is returned when a spacing cannot be estimated
var ErrTooFewPoints = errors.New("spatial: at least two points are required")

// Point2D is a horizontal location that satisfies kdtree.Comparable
type Point2D struct {
	Easting, Northing float64
}

// Compare implements the kdtree.Comparable interface
func (p Point2D) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(Point2D)
	switch d {
	case 0:
		return p.Easting - q.Easting
	case 1:
		return p.Northing - q.Northing
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point2D) Dims() int { return 2 }

// Distance returns the squared horizontal distance between two points
func (p Point2D) Distance(c kdtree.Comparable) float64 {
	q := c.(Point2D)
	de := p.Easting - q.Easting
	dn := p.Northing - q.Northing
	return de*de + dn*dn
}

// Points2D is a collection of Point2D that satisfies kdtree.Interface
type Points2D []Point2D

func (p Points2D) Index(i int) kdtree.Comparable         { return p[i] }
func (p Points2D) Len() int                              { return len(p) }
func (p Points2D) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p Points2D) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{Points2D: p, Dim: d}, kdtree.MedianOfRandoms(plane{Points2D: p, Dim: d}, 100))
}

// plane implements sort.Interface and kdtree.SortSlicer for Points2D
type plane struct {
	Points2D
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.Points2D[i].Easting < p.Points2D[j].Easting
	case 1:
		return p.Points2D[i].Northing < p.Points2D[j].Northing
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{Points2D: p.Points2D[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.Points2D[i], p.Points2D[j] = p.Points2D[j], p.Points2D[i]
}

// horizontal extracts the horizontal locations of a point set
func horizontal(points models.Points) Points2D {
	out := make(Points2D, points.Len())
	for i := range out {
		out[i] = Point2D{Easting: points.Easting[i], Northing: points.Northing[i]}
	}
	return out
}

// MedianDistance returns, for every point, the median horizontal distance to
// its k nearest neighbours (the point itself excluded).
func MedianDistance(points models.Points, k int) ([]float64, error) {
	if err := points.Validate(); err != nil {
		return nil, err
	}
	if points.Len() < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, points.Len())
	}
	if k < 1 {
		return nil, fmt.Errorf("spatial: number of neighbours must be positive, got %d", k)
	}
	if k > points.Len()-1 {
		k = points.Len() - 1
	}

	query := horizontal(points)
	// kdtree.New reorders its input so the tree gets its own copy
	tree := kdtree.New(slices.Clone(query), false)

	distances := make([]float64, points.Len())
	neighbours := make([]float64, 0, k+1)
	for i, p := range query {
		keeper := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(keeper, p)

		neighbours = neighbours[:0]
		for _, item := range keeper.Heap {
			// Skip the sentinel value
			if item.Comparable == nil {
				continue
			}
			neighbours = append(neighbours, math.Sqrt(item.Dist))
		}
		slices.Sort(neighbours)

		// The closest hit is the query point itself
		distances[i] = Median(neighbours[1:])
	}
	return distances, nil
}

// MedianSpacing is the median over all points of the distance to the
// nearest neighbour. It is the characteristic data spacing used to place
// sources.
func MedianSpacing(points models.Points) (float64, error) {
	distances, err := MedianDistance(points, 1)
	if err != nil {
		return 0, err
	}
	return Median(distances), nil
}

// Median returns the median of the values without modifying them. The median
// of an empty slice is NaN.
func Median[T constraints.Float](values []T) T {
	n := len(values)
	if n == 0 {
		return T(math.NaN())
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
