package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"peakskew/internal/models"
	"peakskew/pkg/config"
	"peakskew/pkg/diagnostics"
	"peakskew/pkg/instrument"
	"peakskew/pkg/integration"
	"peakskew/pkg/peakstore"
)

func main() {
	// Parse command line arguments
	optionsFile := flag.String("options", "peakskew.yaml", "YAML file with integration options (defaults are used if missing)")
	datasetFile := flag.String("dataset", "", "YAML file with the instrument and its TOF spectra")
	dbPath := flag.String("db", "peakskew.db", "SQLite database holding peak tables and results")
	tableName := flag.String("table", "", "Name of the peak table to integrate")
	peaksFile := flag.String("peaks", "", "YAML peak table to import under -table before integrating")
	diagFile := flag.String("diagnostics", "", "PDF file for per-peak diagnostics (overrides the options file)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides the options file)")
	writeOptions := flag.String("write-options", "", "Write the effective options to this file and exit")
	flag.Parse()

	opts, err := config.Load(*optionsFile)
	if err != nil {
		log.Fatalf("Failed to load options: %v", err)
	}
	if *diagFile != "" {
		opts.Output.DiagnosticsFile = *diagFile
	}
	if *logLevel != "" {
		opts.Output.LogLevel = *logLevel
	}

	if *writeOptions != "" {
		if err := config.Save(opts, *writeOptions); err != nil {
			log.Fatalf("Failed to write options: %v", err)
		}
		fmt.Printf("Options written to: %s\n", *writeOptions)
		return
	}

	// Validate inputs
	if *datasetFile == "" || *tableName == "" {
		flag.Usage()
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(opts.Output.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", opts.Output.LogLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()

	fmt.Println("================================")
	fmt.Println("SKEW INTEGRATION OF SINGLE-CRYSTAL TOF PEAKS")
	fmt.Println("================================")

	store, err := peakstore.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open peak store: %v", err)
	}
	defer store.Close()

	if *peaksFile != "" {
		imported, err := peakstore.ReadPeakTableFile(*peaksFile)
		if err != nil {
			log.Fatalf("Failed to read peaks: %v", err)
		}
		if err := store.SavePeakTable(*tableName, imported); err != nil {
			log.Fatalf("Failed to import peaks: %v", err)
		}
		logger.Info().Str("table", *tableName).Int("peaks", imported.Len()).Msg("imported peak table")
	}

	peaks, err := store.LoadPeakTable(*tableName)
	if err != nil {
		log.Fatalf("Failed to load peak table: %v", err)
	}

	dataset, err := instrument.LoadDataset(*datasetFile)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	var doc diagnostics.Document
	if opts.Output.DiagnosticsFile != "" {
		pdf, err := diagnostics.NewPDF(opts.Output.DiagnosticsFile)
		if err != nil {
			log.Fatalf("Failed to create diagnostics document: %v", err)
		}
		doc = pdf
	}

	params := &integration.Params{
		Dataset:  dataset,
		Peaks:    peaks,
		Options:  opts,
		Logger:   &logger,
		Document: doc,
		Progress: func(completed, total int, message string) {
			if completed == total || completed%100 == 0 {
				logger.Info().Int("completed", completed).Int("total", total).Msg(message)
			}
		},
	}

	fmt.Printf("Integrating %d peaks from table %q...\n", peaks.Len(), *tableName)
	startTime := time.Now()
	result, err := integration.NewIntegrator(params).Process()
	if err != nil {
		log.Fatalf("Integration failed: %v", err)
	}
	processingTime := time.Since(startTime)

	runID, err := store.SaveResults(*tableName, opts, result)
	if err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}

	fmt.Printf("\nIntegration completed in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Results stored in %s as run %s\n\n", *dbPath, runID)

	fmt.Println("Peak outcomes:")
	fmt.Println("==============")
	fmt.Printf("%-12s %d\n", "total", result.Summary.Total)
	fmt.Printf("%-12s %d\n", "skipped", result.Summary.Skipped)
	for _, status := range models.Statuses() {
		if n := result.Summary.ByStatus[status]; n > 0 {
			fmt.Printf("%-12s %d\n", status, n)
		}
	}

	if opts.Output.DiagnosticsFile != "" {
		fmt.Printf("\nDiagnostics saved to: %s\n", opts.Output.DiagnosticsFile)
	}
}
