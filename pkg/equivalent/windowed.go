package equivalent

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"eqsmagnetics/internal/models"
	"eqsmagnetics/pkg/dipole"
	"eqsmagnetics/pkg/solver"
	"eqsmagnetics/pkg/spatial"
)

// DefaultPointsPerWindow is the target number of data points per window
// when the window size is derived from the data density.
const DefaultPointsPerWindow = 5000

// WindowedParams configures the windowed estimator
type WindowedParams struct {
	Params

	// WindowSize is the edge length of the square windows in meters. Zero
	// means it is derived from the data density so that a window holds about
	// PointsPerWindow data points.
	WindowSize float64

	// PointsPerWindow is the density target used when WindowSize is zero
	PointsPerWindow int

	// Repeat is the number of passes over all windows
	Repeat int

	// Seed seeds the generator that shuffles the window order of every pass.
	// Two fits with the same seed and inputs are bit-identical.
	Seed int64

	// GlobalResidual subtracts the prediction of every fitted window at all
	// observations instead of only at the window's own data. The residual then
	// always equals the data minus the current model.
	GlobalResidual bool
}

// DefaultWindowedParams returns the single-pass defaults
func DefaultWindowedParams() WindowedParams {
	return WindowedParams{
		Params:          DefaultParams(),
		PointsPerWindow: DefaultPointsPerWindow,
		Repeat:          1,
	}
}

// Validate checks that all parameters are within range
func (p WindowedParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if p.WindowSize < 0 || math.IsNaN(p.WindowSize) || math.IsInf(p.WindowSize, 0) {
		return fmt.Errorf("%w: window size must be non-negative, got %g", ErrInvalidParameter, p.WindowSize)
	}
	if p.WindowSize == 0 && p.PointsPerWindow < 1 {
		return fmt.Errorf("%w: points per window must be positive, got %d", ErrInvalidParameter, p.PointsPerWindow)
	}
	if p.Repeat < 1 {
		return fmt.Errorf("%w: repeat must be at least 1, got %d", ErrInvalidParameter, p.Repeat)
	}
	return nil
}

// FitHistory records how the windowed fit progressed
type FitHistory struct {
	// WindowSize is the window edge length that was used
	WindowSize float64

	// Windows is the number of non-empty windows visited per pass
	Windows int

	// Passes is the number of passes over all windows
	Passes int

	// ResidualSumSquares holds the sum of squares of the tracked residual
	// after every processed window, in processing order. Unless
	// GlobalResidual is set, a window's prediction is only removed at its own
	// data, so this tracks the per-window misfit and not data minus model.
	ResidualSumSquares []float64

	// PassRMS holds the RMS of data minus the model prediction at the end of
	// every pass
	PassRMS []float64
}

// WindowedEquivalentSources fits a single global source layer window by
// window. Data and sources are split into square windows overlapping by
// half their size. Every pass visits the windows in a fresh random order and
// fits each window's sources to the current residual, accumulating moment
// amplitudes and removing the window's prediction from the residual before
// moving on.
type WindowedEquivalentSources struct {
	params           WindowedParams
	progressCallback ProgressCallback
}

// NewWindowed creates a windowed estimator
func NewWindowed(params WindowedParams) *WindowedEquivalentSources {
	return &WindowedEquivalentSources{params: params}
}

// Params returns the estimator configuration
func (w *WindowedEquivalentSources) Params() WindowedParams {
	return w.params
}

// SetProgressCallback sets a function to receive progress updates, one per
// processed window.
func (w *WindowedEquivalentSources) SetProgressCallback(callback ProgressCallback) {
	w.progressCallback = callback
}

// window pairs the data and source indices that fall inside one tile
type window struct {
	data    []int
	sources []int
}

// fitState is the state threaded through the sequential window loop
type fitState struct {
	// amplitudes accumulates the moment amplitude of every global source
	amplitudes []float64

	// residual is the data not yet explained by the fitted windows
	residual []float64
}

// problem holds the inputs shared by every window of a fit
type problem struct {
	coords          models.Points
	sources         models.Points
	weights         []float64
	momentDirection [3]float64
	fieldDirection  [3]float64
}

// Fit estimates the moment amplitudes window by window. See
// EquivalentSources.Fit for the meaning of the arguments.
func (w *WindowedEquivalentSources) Fit(coords models.Points, data []float64, fieldDirection [3]float64, weights []float64) (*Model, error) {
	if err := w.params.Validate(); err != nil {
		return nil, err
	}
	if err := checkFitInput(coords, data, weights); err != nil {
		return nil, err
	}

	sources, depth, err := w.params.placeSources(coords)
	if err != nil {
		return nil, err
	}

	size := w.windowSize(coords)
	windows, err := partition(coords, sources, size)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no window holds both data and sources", ErrInvalidParameter)
	}

	p := problem{
		coords:          coords,
		sources:         sources,
		weights:         weights,
		momentDirection: dipole.AnglesToVector(w.params.DipoleInclination, w.params.DipoleDeclination, 1),
		fieldDirection:  fieldDirection,
	}

	state := fitState{
		amplitudes: make([]float64, sources.Len()),
		residual:   append([]float64(nil), data...),
	}
	history := &FitHistory{
		WindowSize: size,
		Windows:    len(windows),
		Passes:     w.params.Repeat,
	}

	rng := rand.New(rand.NewSource(w.params.Seed))
	total := w.params.Repeat * len(windows)
	for pass := 0; pass < w.params.Repeat; pass++ {
		for k, idx := range rng.Perm(len(windows)) {
			state, err = w.fitWindow(state, p, windows[idx])
			if err != nil {
				return nil, fmt.Errorf("pass %d, window %d: %w", pass, idx, err)
			}
			history.ResidualSumSquares = append(history.ResidualSumSquares, floats.Dot(state.residual, state.residual))
			w.reportProgress(pass*len(windows)+k+1, total, "")
		}
		rms, err := w.misfitRMS(state, p, data)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		history.PassRMS = append(history.PassRMS, rms)
		w.reportProgress(0, 0, fmt.Sprintf("Pass %d/%d finished, residual RMS %.4g nT",
			pass+1, w.params.Repeat, history.PassRMS[pass]))
	}

	model := newModel(w.params.Params, sources, state.amplitudes, coords.Region(), depth)
	model.History = history
	return model, nil
}

// fitWindow fits the sources of one window to the current residual at the
// window's data, adds the amplitudes to the accumulator and removes the
// window's prediction from the residual. It takes ownership of the state and
// returns the updated state.
func (w *WindowedEquivalentSources) fitWindow(state fitState, p problem, win window) (fitState, error) {
	coords := p.coords.Subset(win.data)
	sources := p.sources.Subset(win.sources)

	residual := make([]float64, len(win.data))
	for k, i := range win.data {
		residual[k] = state.residual[i]
	}
	var weights []float64
	if p.weights != nil {
		weights = make([]float64, len(win.data))
		for k, i := range win.data {
			weights[k] = p.weights[i]
		}
	}

	jacobian, err := dipole.Jacobian(coords, sources, p.momentDirection, p.fieldDirection, w.params.Workers)
	if err != nil {
		return state, fmt.Errorf("failed to build jacobian: %w", err)
	}
	amplitudes, err := solver.DampedLeastSquares(jacobian, residual, weights, w.params.Damping)
	if err != nil {
		return state, fmt.Errorf("failed to estimate moment amplitudes: %w", err)
	}

	for k, j := range win.sources {
		state.amplitudes[j] += amplitudes[k]
	}

	if w.params.GlobalResidual {
		moments := dipole.AnglesToVectors(w.params.DipoleInclination, w.params.DipoleDeclination, amplitudes)
		field, err := dipole.MagneticField(p.coords, sources, moments, w.params.Workers)
		if err != nil {
			return state, fmt.Errorf("failed to predict window: %w", err)
		}
		floats.Sub(state.residual, dipole.TotalFieldAnomaly(field, p.fieldDirection))
		return state, nil
	}

	var predicted mat.VecDense
	predicted.MulVec(jacobian, mat.NewVecDense(len(amplitudes), amplitudes))
	for k, i := range win.data {
		state.residual[i] -= predicted.AtVec(k)
	}
	return state, nil
}

// misfitRMS returns the RMS of data minus the prediction of the accumulated
// amplitudes at every observation.
func (w *WindowedEquivalentSources) misfitRMS(state fitState, p problem, data []float64) (float64, error) {
	if w.params.GlobalResidual {
		return RMS(state.residual), nil
	}
	moments := dipole.AnglesToVectors(w.params.DipoleInclination, w.params.DipoleDeclination, state.amplitudes)
	field, err := dipole.MagneticField(p.coords, p.sources, moments, w.params.Workers)
	if err != nil {
		return 0, fmt.Errorf("failed to predict data: %w", err)
	}
	residual := make([]float64, len(data))
	floats.SubTo(residual, data, dipole.TotalFieldAnomaly(field, p.fieldDirection))
	return RMS(residual), nil
}

// windowSize returns the configured window size or one derived from the
// data density.
func (w *WindowedEquivalentSources) windowSize(coords models.Points) float64 {
	if w.params.WindowSize > 0 {
		return w.params.WindowSize
	}
	return WindowSizeForDensity(coords, w.params.PointsPerWindow)
}

// WindowSizeForDensity returns the edge of a square window that holds about
// pointsPerWindow of the given points, assuming a uniform density over their
// region. Degenerate regions get a window covering the whole region.
func WindowSizeForDensity(coords models.Points, pointsPerWindow int) float64 {
	region := coords.Region()
	extent := math.Max(region.Width(), region.Height())
	area := region.Area()
	if area <= 0 || coords.Len() <= pointsPerWindow {
		if extent <= 0 {
			return 1
		}
		return extent
	}
	density := float64(coords.Len()) / area
	return math.Min(math.Sqrt(float64(pointsPerWindow)/density), extent)
}

// partition splits data and sources into windows with 50% overlap. Both
// point sets share the same window centres, laid out over the data region.
// Windows missing either data or sources are dropped.
func partition(coords, sources models.Points, size float64) ([]window, error) {
	tiles, err := spatial.NewRollingWindows(coords.Region(), size, size/2)
	if err != nil {
		return nil, err
	}
	dataIndices := tiles.Partition(coords)
	sourceIndices := tiles.Partition(sources)

	windows := make([]window, 0, tiles.Len())
	for k := range dataIndices {
		if len(dataIndices[k]) == 0 || len(sourceIndices[k]) == 0 {
			continue
		}
		windows = append(windows, window{data: dataIndices[k], sources: sourceIndices[k]})
	}
	return windows, nil
}

// reportProgress calls the progress callback if one is set
func (w *WindowedEquivalentSources) reportProgress(completed, total int, message string) {
	if w.progressCallback != nil {
		w.progressCallback(completed, total, message)
	}
}
