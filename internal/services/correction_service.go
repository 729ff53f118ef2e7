package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"timeline-platform/internal/engine"
	"timeline-platform/internal/models"
	"timeline-platform/internal/repository"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// CorrectionService drives a full correction run: it reads parser-output
// record files, feeds them through the engine, and persists corrected
// records, chunks, and anomalies.
type CorrectionService struct {
	repo    repository.TimelineRepository
	engine  *engine.Engine
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// RunReport contains correction run statistics
type RunReport struct {
	RunID            string
	TotalFiles       int
	TotalLines       int
	ParsedRecords    int
	FailedRecords    int
	LogicalRecords   int
	ChunkCount       int
	CorrectedRecords int
	SkippedChunks    int
	AnomalyCount     int
	Duration         time.Duration
	Errors           []string
}

// NewCorrectionService creates a new correction service
func NewCorrectionService(repo repository.TimelineRepository, correctionEngine *engine.Engine, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CorrectionService {
	return &CorrectionService{
		repo:    repo,
		engine:  correctionEngine,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CorrectDirectory runs the pipeline over every record file in a directory.
// Each .csv file is one raw download; its file name is the provenance source
// identifier the chunk detector groups by. With dryRun set, nothing is
// persisted.
func (s *CorrectionService) CorrectDirectory(ctx context.Context, dataDir string, batchSize int, dryRun bool) (*RunReport, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[RUN_START] Starting correction run", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"dry_run":    dryRun,
		"stage":      "INITIALIZATION",
	})

	report := &RunReport{
		Errors: make([]string, 0),
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no record files found in %s", dataDir)
	}
	report.TotalFiles = len(files)

	s.logger.Info(ctx, "[RUN_FILES] Found record files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	var records []models.RawRecord
	for _, filePath := range files {
		fileRecords, lines, failed, err := s.readRecordFile(filePath)
		if err != nil {
			errMsg := fmt.Sprintf("failed to read %s: %v", filePath, err)
			report.Errors = append(report.Errors, errMsg)
			s.logger.Error(ctx, "[RUN_FILE_ERROR] Record file read failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_READING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}
		report.TotalLines += lines
		report.FailedRecords += failed
		records = append(records, fileRecords...)
	}
	report.ParsedRecords = len(records)
	s.metrics.RecordsIngestedTotal.Add(float64(len(records)))

	result, err := s.engine.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("correction failed: %w", err)
	}

	report.RunID = result.RunID
	report.LogicalRecords = result.LogicalRecords
	report.ChunkCount = len(result.Chunks)
	report.CorrectedRecords = len(result.Corrected)
	report.SkippedChunks = result.SkippedChunks
	report.AnomalyCount = len(result.Anomalies)

	runCtx := context.WithValue(ctx, "run_id", result.RunID)

	if !dryRun {
		if err := s.persistResult(runCtx, result, batchSize); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(startTime)

	s.logger.Info(runCtx, "[RUN_COMPLETE] Correction run completed", logging.Fields{
		"total_files":       report.TotalFiles,
		"parsed_records":    report.ParsedRecords,
		"failed_records":    report.FailedRecords,
		"logical_records":   report.LogicalRecords,
		"chunk_count":       report.ChunkCount,
		"corrected_records": report.CorrectedRecords,
		"skipped_chunks":    report.SkippedChunks,
		"anomaly_count":     report.AnomalyCount,
		"duration_seconds":  report.Duration.Seconds(),
		"dry_run":           dryRun,
		"stage":             "COMPLETE",
	})

	return report, nil
}

// persistResult stores a run's chunks, corrected records, and anomalies.
func (s *CorrectionService) persistResult(ctx context.Context, result *engine.Result, batchSize int) error {
	if err := s.repo.UpsertChunks(ctx, result.RunID, result.Chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	for start := 0; start < len(result.Corrected); start += batchSize {
		end := start + batchSize
		if end > len(result.Corrected) {
			end = len(result.Corrected)
		}
		if err := s.repo.CreateCorrectedBatch(ctx, result.Corrected[start:end]); err != nil {
			return fmt.Errorf("failed to store corrected batch: %w", err)
		}
	}

	if err := s.repo.CreateAnomaliesBatch(ctx, result.RunID, result.Anomalies); err != nil {
		return fmt.Errorf("failed to store anomalies: %w", err)
	}

	return nil
}

// readRecordFile reads one parser-output file. Every record in it carries the
// file's base name as its provenance source identifier.
func (s *CorrectionService) readRecordFile(filePath string) ([]models.RawRecord, int, int, error) {
	source := filepath.Base(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var records []models.RawRecord
	lines := 0
	failed := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines++

		// Optional header row
		if lines == 1 && strings.HasPrefix(strings.ToLower(line), "timestamp") {
			lines--
			continue
		}

		record, err := parseRecordLine(line, source)
		if err != nil {
			failed++
			s.metrics.RecordIngestionError("parse_error")
			continue
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, lines, failed, fmt.Errorf("error reading file: %w", err)
	}

	return records, lines, failed, nil
}

// parseRecordLine parses one parser-output line.
// Format: YYYY-MM-DD HH:MM:SS,<opaque payload>
func parseRecordLine(line, source string) (models.RawRecord, error) {
	idx := strings.Index(line, ",")
	if idx < 0 {
		return models.RawRecord{}, &models.ValidationError{
			Field:   "line",
			Value:   line,
			Message: "invalid line format: expected timestamp,payload",
		}
	}

	tsField := strings.TrimSpace(line[:idx])
	payload := line[idx+1:]

	ts, err := time.ParseInLocation(models.LocalTimestampLayout, tsField, time.UTC)
	if err != nil {
		return models.RawRecord{}, &models.ValidationError{
			Field:   "timestamp",
			Value:   tsField,
			Message: "invalid timestamp, expected YYYY-MM-DD HH:MM:SS",
		}
	}

	return models.RawRecord{
		LocalTimestamp: ts,
		Provenance:     models.NewProvenance(source),
		Payload:        payload,
	}, nil
}
