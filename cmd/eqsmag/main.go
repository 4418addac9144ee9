package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"eqsmagnetics/pkg/config"
	"eqsmagnetics/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "eqsmag.yaml", "YAML configuration file (defaults are used if it does not exist)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: value from the configuration)")
	windowed := flag.Bool("windowed", false, "Fit with the windowed estimator")
	writeConfig := flag.String("write-config", "", "Write the default configuration to this file and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.CreateDefaultConfigFile(*writeConfig); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *writeConfig)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *windowed {
		cfg.Fit.Windowed = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	estimator := "single"
	if cfg.Fit.Windowed {
		estimator = "windowed"
	}

	fmt.Println("================================")
	fmt.Println("MAGNETIC EQUIVALENT SOURCES")
	fmt.Println("================================")

	runner := pipeline.NewRunner(pipeline.ParamsFromConfig(cfg))

	fmt.Printf("Starting %s equivalent-source fit with %d cores...\n", estimator, cfg.Processing.NumCores)
	startTime := time.Now()
	result, err := runner.Run()
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nFit completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Observations: %d\n", result.Coords.Len())
	fmt.Printf("Sources: %d at depth %.1f m\n", result.Model.Sources.Len(), result.Model.Depth)
	if h := result.Model.History; h != nil {
		fmt.Printf("Windows: %d of %.1f m, %d passes\n", h.Windows, h.WindowSize, h.Passes)
		for pass, rms := range h.PassRMS {
			fmt.Printf("- Pass %d misfit RMS (data - model): %.4f nT\n", pass+1, rms)
		}
	}

	printMetrics("Validation at the observations (against noise-free data)", result.Metrics)
	printMetrics(fmt.Sprintf("Validation on the %dx%d grid at %.1f m", result.Grid.Rows, result.Grid.Cols, cfg.Output.GridHeight), result.GridMetrics)

	if cfg.Output.File != "" {
		fmt.Printf("\nGrid saved to: %s\n", cfg.Output.File)
	}
}

func printMetrics(title string, m pipeline.Metrics) {
	fmt.Printf("\n%s:\n", title)
	fmt.Printf("=======================================\n")
	fmt.Printf("Root Mean Square Error (RMSE): %.4f nT\n", m.RMSE)
	fmt.Printf("Maximum absolute error: %.4f nT\n", m.MaxAbs)
	fmt.Printf("Correlation: %.4f\n", m.Correlation)
	fmt.Printf("Coefficient of determination (R2): %.4f\n", m.R2)
}
