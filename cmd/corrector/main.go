package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"timeline-platform/internal/config"
	"timeline-platform/internal/engine"
	"timeline-platform/internal/repository"
	"timeline-platform/internal/services"
	"timeline-platform/pkg/database"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./logger_data", "Directory containing parser-output record files")
	batchSize := flag.Int("batch-size", 1000, "Number of corrected records to write in each batch")
	dryRun := flag.Bool("dry-run", false, "Run the correction without persisting results")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("timeline-corrector", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[CORRECTOR_START] Starting timestamp correction", logging.Fields{
		"version":    "1.0.0",
		"data_dir":   *dataDir,
		"batch_size": *batchSize,
		"dry_run":    *dryRun,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("timeline_corrector")

	// Load the offset transition table
	table, err := config.LoadTransitionTable(cfg.Engine.TransitionsFile)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to load transition table", logging.Fields{
			"transitions_file": cfg.Engine.TransitionsFile,
		}, err)
	}

	// Initialize the correction engine
	validatorConfig := cfg.Engine.ValidatorConfig()
	correctionEngine, err := engine.NewEngine(table, validatorConfig, cfg.Engine.Workers, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to initialize engine", logging.Fields{}, err)
	}

	// Initialize repository. A dry run never touches storage, so skip the
	// database connection entirely.
	var timelineRepo repository.TimelineRepository
	if !*dryRun {
		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[CORRECTOR_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		timelineRepo = repository.NewTimelineRepository(db, logger, metricsCollector)
	}

	// Initialize service
	correctionService := services.NewCorrectionService(timelineRepo, correctionEngine, logger, metricsCollector)

	// Run correction
	report, err := correctionService.CorrectDirectory(ctx, *dataDir, *batchSize, *dryRun)
	if err != nil {
		logger.Fatal(ctx, "[CORRECTION_ERROR] Correction failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("CORRECTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run ID:             %s\n", report.RunID)
	fmt.Printf("Total Files:        %d\n", report.TotalFiles)
	fmt.Printf("Parsed Records:     %d\n", report.ParsedRecords)
	fmt.Printf("Failed Records:     %d\n", report.FailedRecords)
	fmt.Printf("Logical Records:    %d\n", report.LogicalRecords)
	fmt.Printf("Chunks:             %d\n", report.ChunkCount)
	fmt.Printf("Corrected Records:  %d\n", report.CorrectedRecords)
	fmt.Printf("Skipped Chunks:     %d\n", report.SkippedChunks)
	fmt.Printf("Anomalies:          %d\n", report.AnomalyCount)
	fmt.Printf("Duration:           %v\n", report.Duration)
	if *dryRun {
		fmt.Println("\nDry run: nothing was persisted")
	}

	if len(report.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(report.Errors))
		for i, errMsg := range report.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(report.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(report.Errors)-10)
		}
	}

	logger.Info(ctx, "[CORRECTOR_COMPLETE] Correction completed successfully", logging.Fields{
		"run_id":            report.RunID,
		"parsed_records":    report.ParsedRecords,
		"corrected_records": report.CorrectedRecords,
		"anomaly_count":     report.AnomalyCount,
		"duration_seconds":  report.Duration.Seconds(),
	})
}
