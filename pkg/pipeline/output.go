package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"eqsmagnetics/pkg/equivalent"
)

// gridHeader is the first row of a grid CSV file
var gridHeader = []string{"easting", "northing", "upward", "tfa"}

// WriteGridCSV saves a predicted grid as CSV, one node per row
func WriteGridCSV(path string, grid *equivalent.Grid) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating grid file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(gridHeader); err != nil {
		return fmt.Errorf("error writing grid file: %w", err)
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i, v := range grid.Anomaly {
		record := []string{
			format(grid.Points.Easting[i]),
			format(grid.Points.Northing[i]),
			format(grid.Points.Upward[i]),
			format(v),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("error writing grid file: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error writing grid file: %w", err)
	}
	return f.Close()
}
