package spatial

import (
	"fmt"
	"math"

	"eqsmagnetics/internal/models"
)

// Window is a square tile centred on (Easting, Northing)
type Window struct {
	Easting  float64
	Northing float64
	Size     float64
}

// Bounds returns the horizontal extent of the window
func (w Window) Bounds() models.Region {
	half := w.Size / 2
	return models.Region{
		West:  w.Easting - half,
		East:  w.Easting + half,
		South: w.Northing - half,
		North: w.Northing + half,
	}
}

// Contains reports whether a horizontal location falls inside the window,
// boundaries included.
func (w Window) Contains(easting, northing float64) bool {
	half := w.Size / 2
	return math.Abs(easting-w.Easting) <= half && math.Abs(northing-w.Northing) <= half
}

// RollingWindows is a regular grid of overlapping square windows covering a
// region. Window centres span the region shrunk by half a window on every
// side, so windows never stick out of it; an axis shorter than the window
// gets a single centre in the middle.
type RollingWindows struct {
	size     float64
	easting  []float64
	northing []float64
}

// NewRollingWindows lays out windows of the given size over the region with
// centres roughly spacing apart. The spacing is adjusted so the centres fit
// the region exactly.
func NewRollingWindows(region models.Region, size, spacing float64) (*RollingWindows, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("spatial: window size must be positive, got %g", size)
	}
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return nil, fmt.Errorf("spatial: window spacing must be positive, got %g", spacing)
	}
	if region.Width() < 0 || region.Height() < 0 {
		return nil, fmt.Errorf("spatial: invalid region %+v", region)
	}

	return &RollingWindows{
		size:     size,
		easting:  centres(region.West, region.East, size, spacing),
		northing: centres(region.South, region.North, size, spacing),
	}, nil
}

// centres returns the window centres along one axis
func centres(lower, upper, size, spacing float64) []float64 {
	lower += size / 2
	upper -= size / 2
	if upper <= lower {
		return []float64{(lower + upper) / 2}
	}
	n := int(math.Round((upper-lower)/spacing)) + 1
	if n < 2 {
		return []float64{(lower + upper) / 2}
	}
	step := (upper - lower) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lower + float64(i)*step
	}
	out[n-1] = upper
	return out
}

// Len returns the number of windows
func (r *RollingWindows) Len() int {
	return len(r.easting) * len(r.northing)
}

// Shape returns the number of window centres along northing and easting
func (r *RollingWindows) Shape() (rows, cols int) {
	return len(r.northing), len(r.easting)
}

// Window returns window k, counted west to east then south to north
func (r *RollingWindows) Window(k int) Window {
	row, col := k/len(r.easting), k%len(r.easting)
	return Window{Easting: r.easting[col], Northing: r.northing[row], Size: r.size}
}

// Windows returns all windows in the same order as Window
func (r *RollingWindows) Windows() []Window {
	out := make([]Window, r.Len())
	for k := range out {
		out[k] = r.Window(k)
	}
	return out
}

// Partition returns, for every window, the indices of the points inside it
// in increasing order. A point can belong to several overlapping windows and
// points outside every window are left out. Windows may be empty.
func (r *RollingWindows) Partition(points models.Points) [][]int {
	indices := make([][]int, r.Len())
	half := r.size / 2
	for i := range points.Easting {
		e, n := points.Easting[i], points.Northing[i]
		rowStart, rowEnd := axisRange(r.northing, n, half)
		colStart, colEnd := axisRange(r.easting, e, half)
		for row := rowStart; row <= rowEnd; row++ {
			if math.Abs(n-r.northing[row]) > half {
				continue
			}
			for col := colStart; col <= colEnd; col++ {
				if math.Abs(e-r.easting[col]) > half {
					continue
				}
				k := row*len(r.easting) + col
				indices[k] = append(indices[k], i)
			}
		}
	}
	return indices
}

// axisRange returns the candidate range of centre indices within half of x.
// The range is padded by one on each side and clamped; callers do the exact
// check.
func axisRange(centres []float64, x, half float64) (int, int) {
	n := len(centres)
	if n == 1 {
		return 0, 0
	}
	step := centres[1] - centres[0]
	start := int(math.Ceil((x-half-centres[0])/step)) - 1
	end := int(math.Floor((x+half-centres[0])/step)) + 1
	if start < 0 {
		start = 0
	}
	if end > n-1 {
		end = n - 1
	}
	return start, end
}
