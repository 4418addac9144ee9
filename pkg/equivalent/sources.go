package equivalent

import (
	"fmt"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/spatial"
)

// RecommendedSourceDepth estimates a source depth from the horizontal
// spacing of the data (Dampney, 1969): the midpoint between 2.5 and 6 times
// the median nearest-neighbour distance.
func RecommendedSourceDepth(points models.Points) (float64, error) {
	spacing, err := spatial.MedianSpacing(points)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate data spacing: %w", err)
	}
	lower := 2.5 * spacing
	upper := 6 * spacing
	return (lower + upper) / 2, nil
}

// placeSources returns the source layer for the given data coordinates and
// the depth that was used (zero for explicit sources).
func (p Params) placeSources(coords models.Points) (models.Points, float64, error) {
	if p.SourcePoints != nil {
		return p.SourcePoints.Clone(), 0, nil
	}

	depth := p.Depth
	if depth == 0 {
		var err error
		depth, err = RecommendedSourceDepth(coords)
		if err != nil {
			return models.Points{}, 0, err
		}
		if depth == 0 {
			return models.Points{}, 0, fmt.Errorf("%w: estimated source depth is zero, data points are duplicated", ErrInvalidParameter)
		}
	}

	points := coords
	if p.BlockSize > 0 {
		var err error
		// Only the reduced coordinates are kept
		points, err = spatial.BlockReduce(coords, p.BlockSize)
		if err != nil {
			return models.Points{}, 0, fmt.Errorf("failed to block reduce data: %w", err)
		}
	}
	return points.Shift(-depth), depth, nil
}
