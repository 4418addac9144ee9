// Package pipeline runs the end-to-end equivalent-source workflow used by the
// command line tool: it builds a synthetic survey, forward models its
// total-field anomaly, fits an equivalent-source layer to the noisy data,
// validates the fit against the noise-free field and predicts a grid at the
// requested height.
package pipeline

import (
	"fmt"
	"math/rand"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/config"
	"eqsmagnetics/pkg/dipole"
	"eqsmagnetics/pkg/equivalent"
	"eqsmagnetics/pkg/survey"
)

// Params holds the pipeline parameters. These control the survey geometry,
// the fit and the output grid.
type Params struct {
	// Region is the horizontal extent of the survey
	Region models.Region

	// Rows and Cols give the shape of a gridded survey
	Rows, Cols int

	// Scattered draws NumPoints random locations instead of a grid
	Scattered bool
	NumPoints int

	// Height is the observation height in meters
	Height float64

	// NoiseStd is the standard deviation of the noise added to the data, in nT
	NoiseStd float64

	// Seed seeds the generator used for scattered locations and noise
	Seed int64

	// Synthetic sets the magnetisation of the synthetic bodies
	Synthetic survey.SyntheticDirections

	// Field is the main field direction
	Field survey.Direction

	// Windowed selects the windowed estimator. Its embedded Params are used
	// by the single estimator otherwise.
	Windowed  bool
	Estimator equivalent.WindowedParams

	// GridSpacing and GridHeight describe the predicted output grid
	GridSpacing float64
	GridHeight  float64

	// OutputFile is the CSV file the grid is written to; empty skips writing
	OutputFile string

	// Verbose prints progress messages when no callback is set
	Verbose bool
}

// ParamsFromConfig converts a validated configuration to pipeline parameters
func ParamsFromConfig(cfg *config.Config) Params {
	estimator := equivalent.DefaultWindowedParams()
	estimator.Damping = cfg.Fit.Damping
	estimator.Depth = cfg.Fit.Depth
	estimator.BlockSize = cfg.Fit.BlockSize
	estimator.DipoleInclination = cfg.Fit.DipoleInclination
	estimator.DipoleDeclination = cfg.Fit.DipoleDeclination
	estimator.Workers = cfg.Processing.NumCores
	estimator.WindowSize = cfg.Fit.WindowSize
	estimator.PointsPerWindow = cfg.Fit.PointsPerWindow
	estimator.Repeat = cfg.Fit.Repeat
	estimator.Seed = cfg.Fit.Seed
	estimator.GlobalResidual = cfg.Fit.GlobalResidual

	p := Params{
		Scattered:   cfg.Survey.Scattered,
		NumPoints:   cfg.Survey.NumPoints,
		Height:      cfg.Survey.Height,
		NoiseStd:    cfg.Survey.NoiseStd,
		Seed:        cfg.Survey.Seed,
		Synthetic:   cfg.Synthetic,
		Field:       cfg.Field,
		Windowed:    cfg.Fit.Windowed,
		Estimator:   estimator,
		GridSpacing: cfg.Output.GridSpacing,
		GridHeight:  cfg.Output.GridHeight,
		OutputFile:  cfg.Output.File,
		Verbose:     cfg.Processing.Verbose,
	}
	if len(cfg.Survey.Region) == 4 {
		p.Region = models.Region{
			West: cfg.Survey.Region[0], East: cfg.Survey.Region[1],
			South: cfg.Survey.Region[2], North: cfg.Survey.Region[3],
		}
	}
	if len(cfg.Survey.Shape) == 2 {
		p.Rows, p.Cols = cfg.Survey.Shape[0], cfg.Survey.Shape[1]
	}
	return p
}

// Result holds everything produced by a pipeline run
type Result struct {
	// Coords are the survey locations
	Coords models.Points

	// Clean is the noise-free anomaly and Data the noisy one that was fitted
	Clean []float64
	Data  []float64

	// Model is the fitted equivalent-source layer
	Model *equivalent.Model

	// Metrics compares the model prediction with Clean at the survey locations
	Metrics Metrics

	// Grid is the prediction on the output grid and GridMetrics compares it
	// with the true anomaly of the synthetic model at the same nodes
	Grid        *equivalent.Grid
	GridMetrics Metrics
}

// Runner executes the pipeline
type Runner struct {
	params           Params
	progressCallback equivalent.ProgressCallback
}

// NewRunner creates a runner with the provided parameters
func NewRunner(params Params) *Runner {
	return &Runner{params: params}
}

// SetProgressCallback routes progress messages to callback instead of the
// standard output.
func (r *Runner) SetProgressCallback(callback equivalent.ProgressCallback) {
	r.progressCallback = callback
}

// Run executes the complete pipeline
func (r *Runner) Run() (*Result, error) {
	p := r.params
	rng := rand.New(rand.NewSource(p.Seed))
	fieldDirection := dipole.AnglesToVector(p.Field.Inclination, p.Field.Declination, 1)

	// Step 1: survey geometry
	r.logf("Step 1: Building survey geometry...")
	coords, err := r.surveyCoordinates(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to build survey: %w", err)
	}

	// Step 2: synthetic data
	r.logf("Step 2: Forward modelling %d observations...", coords.Len())
	sources, moments := survey.SimpleSynthetic(p.Synthetic)
	clean, err := anomaly(coords, sources, moments, fieldDirection, p.Estimator.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to forward model data: %w", err)
	}
	data := clean
	if p.NoiseStd > 0 {
		data = survey.AddNoise(clean, p.NoiseStd, rng)
	}

	// Step 3: fit
	r.logf("Step 3: Fitting equivalent sources...")
	model, err := r.fit(coords, data, fieldDirection)
	if err != nil {
		return nil, fmt.Errorf("failed to fit equivalent sources: %w", err)
	}
	r.logf("Fitted %d sources at depth %.1f m", model.Sources.Len(), model.Depth)

	// Step 4: validation
	r.logf("Step 4: Calculating validation metrics...")
	predicted, err := model.PredictAnomaly(coords, fieldDirection)
	if err != nil {
		return nil, fmt.Errorf("failed to predict data: %w", err)
	}
	metrics, err := CalculateMetrics(clean, predicted)
	if err != nil {
		return nil, err
	}

	// Step 5: gridding
	rows, cols, err := survey.GridShape(model.Region, p.GridSpacing)
	if err != nil {
		return nil, err
	}
	r.logf("Step 5: Predicting a %dx%d grid at %.1f m...", rows, cols, p.GridHeight)
	grid, err := model.Grid(rows, cols, p.GridHeight, fieldDirection)
	if err != nil {
		return nil, fmt.Errorf("failed to grid the model: %w", err)
	}
	truth, err := anomaly(grid.Points, sources, moments, fieldDirection, p.Estimator.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to forward model grid: %w", err)
	}
	gridMetrics, err := CalculateMetrics(truth, grid.Anomaly)
	if err != nil {
		return nil, err
	}

	if p.OutputFile != "" {
		r.logf("Saving grid to %s...", p.OutputFile)
		if err := WriteGridCSV(p.OutputFile, grid); err != nil {
			return nil, err
		}
	}

	return &Result{
		Coords:      coords,
		Clean:       clean,
		Data:        data,
		Model:       model,
		Metrics:     metrics,
		Grid:        grid,
		GridMetrics: gridMetrics,
	}, nil
}

// surveyCoordinates builds the observation locations
func (r *Runner) surveyCoordinates(rng *rand.Rand) (models.Points, error) {
	p := r.params
	if p.Scattered {
		return survey.ScatterPoints(p.Region, p.NumPoints, p.Height, rng)
	}
	return survey.GridCoordinates(p.Region, p.Rows, p.Cols, p.Height)
}

// fit runs the configured estimator
func (r *Runner) fit(coords models.Points, data []float64, fieldDirection [3]float64) (*equivalent.Model, error) {
	if !r.params.Windowed {
		return equivalent.New(r.params.Estimator.Params).Fit(coords, data, fieldDirection, nil)
	}

	estimator := equivalent.NewWindowed(r.params.Estimator)
	estimator.SetProgressCallback(func(completed, total int, message string) {
		// Per-window updates are only forwarded to a callback
		if total == 0 {
			r.logf("%s", message)
		} else if r.progressCallback != nil {
			r.progressCallback(completed, total, message)
		}
	})
	return estimator.Fit(coords, data, fieldDirection, nil)
}

// logf reports a message through the callback or, when verbose, stdout
func (r *Runner) logf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if r.progressCallback != nil {
		r.progressCallback(0, 0, message)
		return
	}
	if r.params.Verbose {
		fmt.Println(message)
	}
}

// anomaly forward models the total-field anomaly of a dipole set
func anomaly(coords, sources models.Points, moments models.Vectors, fieldDirection [3]float64, workers int) ([]float64, error) {
	field, err := dipole.MagneticField(coords, sources, moments, workers)
	if err != nil {
		return nil, err
	}
	return dipole.TotalFieldAnomaly(field, fieldDirection), nil
}
