package spatial

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"

	"eqsmagnetics/internal/models"
)

// BlockReduce splits the horizontal footprint of the points into square
// blocks of the given spacing, anchored at the south-west corner of the data
// region, and keeps one point per occupied block whose coordinates are the
// medians of the coordinates of the block members. Blocks are returned
// south to north, then west to east.
func BlockReduce(points models.Points, spacing float64) (models.Points, error) {
	if err := points.Validate(); err != nil {
		return models.Points{}, err
	}
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return models.Points{}, fmt.Errorf("spatial: block spacing must be positive, got %g", spacing)
	}

	region := points.Region()
	cols := int(math.Floor(region.Width()/spacing)) + 1

	blocks := make(map[int][]int)
	for i := range points.Easting {
		col := int(math.Floor((points.Easting[i] - region.West) / spacing))
		row := int(math.Floor((points.Northing[i] - region.South) / spacing))
		key := row*cols + col
		blocks[key] = append(blocks[key], i)
	}

	keys := make([]int, 0, len(blocks))
	for key := range blocks {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	reduced := models.Points{
		Easting:  make([]float64, len(keys)),
		Northing: make([]float64, len(keys)),
		Upward:   make([]float64, len(keys)),
	}
	for b, key := range keys {
		members := points.Subset(blocks[key])
		reduced.Easting[b] = Median(members.Easting)
		reduced.Northing[b] = Median(members.Northing)
		reduced.Upward[b] = Median(members.Upward)
	}
	return reduced, nil
}
