// Package config provides configuration loading and management for eqsmag.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"eqsmagnetics/pkg/survey"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// Verbose prints progress of the fit
		Verbose bool `yaml:"verbose"`
	} `yaml:"processing"`

	// Survey geometry and data contamination
	Survey struct {
		// Region is the survey extent as [west, east, south, north] in meters
		Region []float64 `yaml:"region"`

		// Shape is the [rows, cols] of a gridded survey
		Shape []int `yaml:"shape"`

		// Height is the observation height in meters
		Height float64 `yaml:"height"`

		// Scattered draws NumPoints random locations instead of a grid
		Scattered bool `yaml:"scattered"`
		NumPoints int  `yaml:"numPoints"`

		// NoiseStd is the standard deviation of the Gaussian noise added to the data, in nT
		NoiseStd float64 `yaml:"noiseStd"`

		// Seed seeds the survey and noise generator
		Seed int64 `yaml:"seed"`
	} `yaml:"survey"`

	// Synthetic holds the magnetisation directions of the synthetic bodies
	Synthetic survey.SyntheticDirections `yaml:"synthetic"`

	// Field is the direction of the main geomagnetic field
	Field survey.Direction `yaml:"field"`

	// Equivalent-source fit parameters
	Fit struct {
		Damping float64 `yaml:"damping"`

		// Depth of the sources below the data; 0 estimates it from the data spacing
		Depth float64 `yaml:"depth"`

		// BlockSize block-reduces the source layout; 0 places one source per datum
		BlockSize float64 `yaml:"blockSize"`

		DipoleInclination float64 `yaml:"dipoleInclination"`
		DipoleDeclination float64 `yaml:"dipoleDeclination"`

		// Windowed switches to the windowed estimator
		Windowed bool `yaml:"windowed"`

		// WindowSize in meters; 0 derives it from PointsPerWindow
		WindowSize      float64 `yaml:"windowSize"`
		PointsPerWindow int     `yaml:"pointsPerWindow"`
		Repeat          int     `yaml:"repeat"`
		Seed            int64   `yaml:"seed"`
		GlobalResidual  bool    `yaml:"globalResidual"`
	} `yaml:"fit"`

	// Output parameters
	Output struct {
		// GridSpacing is the node spacing of the predicted grid in meters
		GridSpacing float64 `yaml:"gridSpacing"`

		// GridHeight is the height of the predicted grid; above the survey it
		// performs an upward continuation
		GridHeight float64 `yaml:"gridHeight"`

		// File is the CSV file the grid is written to; empty skips writing
		File string `yaml:"file"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Verbose = true

	// A 40×40 km survey around the synthetic model flown at 500 m
	cfg.Survey.Region = []float64{-20e3, 20e3, -20e3, 20e3}
	cfg.Survey.Shape = []int{41, 41}
	cfg.Survey.Height = 500
	cfg.Survey.Scattered = false
	cfg.Survey.NumPoints = 2000
	cfg.Survey.NoiseStd = 5
	cfg.Survey.Seed = 42

	cfg.Synthetic = survey.DefaultSyntheticDirections()
	cfg.Field = survey.Direction{Inclination: 65, Declination: 10}

	// Set default fit parameters
	cfg.Fit.Damping = 0
	cfg.Fit.Depth = 0
	cfg.Fit.BlockSize = 0
	cfg.Fit.DipoleInclination = 65
	cfg.Fit.DipoleDeclination = 10
	cfg.Fit.Windowed = false
	cfg.Fit.WindowSize = 0
	cfg.Fit.PointsPerWindow = 500
	cfg.Fit.Repeat = 1
	cfg.Fit.Seed = 0
	cfg.Fit.GlobalResidual = true

	// Set default output parameters
	cfg.Output.GridSpacing = 1000
	cfg.Output.GridHeight = 1000
	cfg.Output.File = ""

	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if len(c.Survey.Region) != 4 {
		return fmt.Errorf("%w: survey.region needs 4 values, got %d", ErrInvalidConfig, len(c.Survey.Region))
	}
	if c.Survey.Region[1] <= c.Survey.Region[0] || c.Survey.Region[3] <= c.Survey.Region[2] {
		return fmt.Errorf("%w: survey.region %v is empty", ErrInvalidConfig, c.Survey.Region)
	}
	if c.Survey.Scattered {
		if c.Survey.NumPoints < 2 {
			return fmt.Errorf("%w: survey.numPoints must be at least 2, got %d", ErrInvalidConfig, c.Survey.NumPoints)
		}
	} else {
		if len(c.Survey.Shape) != 2 {
			return fmt.Errorf("%w: survey.shape needs 2 values, got %d", ErrInvalidConfig, len(c.Survey.Shape))
		}
		if c.Survey.Shape[0] < 2 || c.Survey.Shape[1] < 2 {
			return fmt.Errorf("%w: survey.shape %v must be at least 2x2", ErrInvalidConfig, c.Survey.Shape)
		}
	}
	// The synthetic dikes sit at zero height
	if !(c.Survey.Height > 0) {
		return fmt.Errorf("%w: survey.height must be positive, got %g", ErrInvalidConfig, c.Survey.Height)
	}
	if !(c.Output.GridHeight > 0) {
		return fmt.Errorf("%w: output.gridHeight must be positive, got %g", ErrInvalidConfig, c.Output.GridHeight)
	}
	if c.Survey.NoiseStd < 0 {
		return fmt.Errorf("%w: survey.noiseStd must be non-negative, got %g", ErrInvalidConfig, c.Survey.NoiseStd)
	}
	if c.Fit.Damping < 0 {
		return fmt.Errorf("%w: fit.damping must be non-negative, got %g", ErrInvalidConfig, c.Fit.Damping)
	}
	if c.Fit.Depth < 0 || c.Fit.BlockSize < 0 || c.Fit.WindowSize < 0 {
		return fmt.Errorf("%w: fit.depth, fit.blockSize and fit.windowSize must be non-negative", ErrInvalidConfig)
	}
	if c.Fit.Windowed {
		if c.Fit.Repeat < 1 {
			return fmt.Errorf("%w: fit.repeat must be at least 1, got %d", ErrInvalidConfig, c.Fit.Repeat)
		}
		if c.Fit.WindowSize == 0 && c.Fit.PointsPerWindow < 1 {
			return fmt.Errorf("%w: fit.pointsPerWindow must be positive, got %d", ErrInvalidConfig, c.Fit.PointsPerWindow)
		}
	}
	if c.Output.GridSpacing <= 0 {
		return fmt.Errorf("%w: output.gridSpacing must be positive, got %g", ErrInvalidConfig, c.Output.GridSpacing)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
