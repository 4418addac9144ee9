package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eqsmagnetics/internal/models"
)

// gridPoints builds a rows×cols grid with the given spacing at zero height
func gridPoints(rows, cols int, spacing float64) models.Points {
	var p models.Points
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p.Easting = append(p.Easting, float64(j)*spacing)
			p.Northing = append(p.Northing, float64(i)*spacing)
			p.Upward = append(p.Upward, 0)
		}
	}
	return p
}

func TestMedian(t *testing.T) {
	values := []float64{5, 1, 3}
	assert.Equal(t, 3.0, Median(values))
	assert.Equal(t, []float64{5, 1, 3}, values, "input must not be reordered")
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
	assert.True(t, math.IsNaN(Median([]float64{})))
}

func TestMedianDistanceRegularGrid(t *testing.T) {
	points := gridPoints(6, 8, 250)

	distances, err := MedianDistance(points, 1)
	require.NoError(t, err)
	require.Len(t, distances, points.Len())
	for i, d := range distances {
		assert.InDelta(t, 250, d, 1e-9, "point %d", i)
	}

	spacing, err := MedianSpacing(points)
	require.NoError(t, err)
	assert.InDelta(t, 250, spacing, 1e-9)
}

func TestMedianDistanceIgnoresHeight(t *testing.T) {
	points := gridPoints(3, 3, 10)
	for i := range points.Upward {
		points.Upward[i] = float64(i) * 1000
	}

	spacing, err := MedianSpacing(points)
	require.NoError(t, err)
	assert.InDelta(t, 10, spacing, 1e-12)
}

func TestMedianDistanceNeighbours(t *testing.T) {
	// Points on a line: the two nearest neighbours of the middle point are 1
	// and 2 away, so the median is 1.5
	points := models.Points{
		Easting:  []float64{0, 1, 3},
		Northing: []float64{0, 0, 0},
		Upward:   []float64{0, 0, 0},
	}
	distances, err := MedianDistance(points, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2, distances[0], 1e-12)
	assert.InDelta(t, 1.5, distances[1], 1e-12)
	assert.InDelta(t, 2.5, distances[2], 1e-12)
}

func TestMedianDistanceTooFewPoints(t *testing.T) {
	_, err := MedianSpacing(models.Points{Easting: []float64{1}, Northing: []float64{1}, Upward: []float64{1}})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = MedianSpacing(models.Points{})
	assert.ErrorIs(t, err, models.ErrEmptyPoints)
}

func TestBlockReduce(t *testing.T) {
	points := gridPoints(10, 10, 10)
	for i := range points.Upward {
		points.Upward[i] = float64(i % 4)
	}

	reduced, err := BlockReduce(points, 20)
	require.NoError(t, err)
	require.Equal(t, 25, reduced.Len())

	// First block holds (0,0), (10,0), (0,10), (10,10)
	assert.Equal(t, 5.0, reduced.Easting[0])
	assert.Equal(t, 5.0, reduced.Northing[0])
	// Second block is east of the first
	assert.Equal(t, 25.0, reduced.Easting[1])
	assert.Equal(t, 5.0, reduced.Northing[1])
	// Last block is the north-east corner
	assert.Equal(t, 85.0, reduced.Easting[24])
	assert.Equal(t, 85.0, reduced.Northing[24])

	_, err = BlockReduce(points, 0)
	assert.Error(t, err)
}

func TestBlockReduceKeepsSparseBlocks(t *testing.T) {
	points := models.Points{
		Easting:  []float64{0, 1, 100},
		Northing: []float64{0, 1, 100},
		Upward:   []float64{5, 7, 9},
	}
	reduced, err := BlockReduce(points, 10)
	require.NoError(t, err)
	require.Equal(t, 2, reduced.Len())
	assert.Equal(t, []float64{0.5, 100}, reduced.Easting)
	assert.Equal(t, []float64{6, 9}, reduced.Upward)
}

func TestRollingWindowsLayout(t *testing.T) {
	region := models.Region{West: 0, East: 1000, South: 0, North: 500}
	windows, err := NewRollingWindows(region, 200, 100)
	require.NoError(t, err)

	rows, cols := windows.Shape()
	assert.Equal(t, 4, rows) // centres 100..400
	assert.Equal(t, 9, cols) // centres 100..900
	assert.Equal(t, rows*cols, windows.Len())

	first := windows.Window(0)
	assert.Equal(t, Window{Easting: 100, Northing: 100, Size: 200}, first)
	last := windows.Window(windows.Len() - 1)
	assert.InDelta(t, 900, last.Easting, 1e-9)
	assert.InDelta(t, 400, last.Northing, 1e-9)

	for _, w := range windows.Windows() {
		b := w.Bounds()
		assert.GreaterOrEqual(t, b.West, region.West-1e-9)
		assert.LessOrEqual(t, b.East, region.East+1e-9)
	}
}

func TestRollingWindowsLargerThanRegion(t *testing.T) {
	region := models.Region{West: 0, East: 100, South: 0, North: 100}
	windows, err := NewRollingWindows(region, 500, 250)
	require.NoError(t, err)
	require.Equal(t, 1, windows.Len())

	points := gridPoints(5, 5, 25)
	parts := windows.Partition(points)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0], points.Len())
}

func TestRollingWindowsPartitionMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var points models.Points
	for i := 0; i < 2000; i++ {
		points.Easting = append(points.Easting, rng.Float64()*3000)
		points.Northing = append(points.Northing, rng.Float64()*2000)
		points.Upward = append(points.Upward, 0)
	}

	windows, err := NewRollingWindows(points.Region(), 600, 300)
	require.NoError(t, err)
	parts := windows.Partition(points)
	require.Len(t, parts, windows.Len())

	covered := make([]bool, points.Len())
	for k, part := range parts {
		w := windows.Window(k)
		var expected []int
		for i := range points.Easting {
			if w.Contains(points.Easting[i], points.Northing[i]) {
				expected = append(expected, i)
			}
		}
		assert.Equal(t, expected, part, "window %d", k)
		for _, i := range part {
			covered[i] = true
		}
	}
	for i, c := range covered {
		assert.True(t, c, "point %d is not covered by any window", i)
	}
}

func TestRollingWindowsInvalid(t *testing.T) {
	region := models.Region{West: 0, East: 10, South: 0, North: 10}
	_, err := NewRollingWindows(region, 0, 1)
	assert.Error(t, err)
	_, err = NewRollingWindows(region, 1, -1)
	assert.Error(t, err)
}
