package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"timeline-platform/internal/models"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// Engine runs the full correction pipeline: dedupe, chunk detection, offset
// resolution, UTC projection, continuity validation. Detection is a single
// sequential pass; resolution and projection run per-chunk on a bounded
// worker group since chunks are independent; validation merges across chunk
// outputs last.
type Engine struct {
	resolver  *Resolver
	validator *Validator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	workers   int
}

// Result is one pipeline run's complete output. Corrected records are sorted
// by UTC timestamp and anomalies by local range, so two runs over identical
// input serialize identically.
type Result struct {
	RunID          string
	Chunks         []*models.Chunk
	Corrected      []models.CorrectedRecord
	Anomalies      []models.Anomaly
	InputRecords   int
	LogicalRecords int
	SkippedChunks  int
	Duration       time.Duration
}

// NewEngine wires the pipeline against an immutable transition table.
func NewEngine(
	table *models.TransitionTable,
	cfg ValidatorConfig,
	workers int,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) (*Engine, error) {
	resolver, err := NewResolver(table)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		resolver:  resolver,
		validator: NewValidator(table, cfg),
		logger:    logger,
		metrics:   metricsCollector,
		workers:   workers,
	}, nil
}

type chunkOutcome struct {
	corrected []models.CorrectedRecord
	anomalies []models.Anomaly
}

// Run corrects one ordered batch of raw records. The unit of failure
// isolation is the chunk: a chunk whose offset cannot be resolved is excluded
// from corrected output and listed, with reason, among the anomalies, while
// every other chunk still processes.
func (e *Engine) Run(ctx context.Context, records []models.RawRecord) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()

	e.logger.Info(ctx, "[CORRECT_START] Starting timeline correction", logging.Fields{
		"run_id":        runID,
		"input_records": len(records),
		"workers":       e.workers,
		"stage":         "INITIALIZATION",
	})

	deduped, anomalies := Dedupe(records)
	e.metrics.RecordsDedupedTotal.Add(float64(len(records) - len(deduped)))

	chunks, overlapAnomalies := DetectChunks(deduped)
	anomalies = append(anomalies, overlapAnomalies...)
	e.metrics.ChunksDetectedTotal.Add(float64(len(chunks)))

	e.logger.Info(ctx, "[CORRECT_CHUNKS] Deployment chunks detected", logging.Fields{
		"run_id":          runID,
		"logical_records": len(deduped),
		"chunk_count":     len(chunks),
		"stage":           "CHUNK_DETECTION",
	})

	outcomes := make([]chunkOutcome, len(chunks))
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			offset, warnings, err := e.resolver.Resolve(chunk)
			if err != nil {
				outcomes[i] = chunkOutcome{anomalies: append(warnings, models.Anomaly{
					Kind:       models.AnomalyBoundaryMismatch,
					ChunkID:    chunk.ID,
					LocalStart: chunk.Start(),
					LocalEnd:   chunk.End(),
					Details:    fmt.Sprintf("chunk excluded from corrected output: %v", err),
				})}
				return nil
			}
			chunk.UTCOffsetHours = offset
			chunk.OffsetResolved = true

			corrected, err := Project(chunk)
			if err != nil {
				outcomes[i] = chunkOutcome{anomalies: append(warnings, models.Anomaly{
					Kind:       models.AnomalyBoundaryMismatch,
					ChunkID:    chunk.ID,
					LocalStart: chunk.Start(),
					LocalEnd:   chunk.End(),
					Details:    fmt.Sprintf("chunk excluded from corrected output: %v", err),
				})}
				return nil
			}

			outcomes[i] = chunkOutcome{corrected: corrected, anomalies: warnings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("correction aborted: %w", err)
	}

	var corrected []models.CorrectedRecord
	for i, outcome := range outcomes {
		anomalies = append(anomalies, outcome.anomalies...)
		if outcome.corrected == nil && len(chunks[i].Records) > 0 {
			skipped++
			e.metrics.RecordChunkSkipped("offset_unresolved")
			e.logger.Warn(ctx, "[CORRECT_CHUNK_SKIPPED] Chunk excluded from corrected output", logging.Fields{
				"run_id":   runID,
				"chunk_id": chunks[i].ID,
				"stage":    "OFFSET_RESOLUTION",
			})
			continue
		}
		corrected = append(corrected, outcome.corrected...)
	}

	sort.SliceStable(corrected, func(i, j int) bool {
		if !corrected[i].UTCTimestamp.Equal(corrected[j].UTCTimestamp) {
			return corrected[i].UTCTimestamp.Before(corrected[j].UTCTimestamp)
		}
		if corrected[i].ChunkID != corrected[j].ChunkID {
			return corrected[i].ChunkID < corrected[j].ChunkID
		}
		return corrected[i].LocalTimestamp.Before(corrected[j].LocalTimestamp)
	})
	e.metrics.RecordsCorrectedTotal.Add(float64(len(corrected)))

	validationStarted := time.Now()
	anomalies = append(anomalies, e.validator.Validate(chunks)...)
	e.metrics.ValidationDuration.Observe(time.Since(validationStarted).Seconds())

	sortAnomalies(anomalies)
	for _, a := range anomalies {
		e.metrics.RecordAnomaly(string(a.Kind))
	}

	result := &Result{
		RunID:          runID,
		Chunks:         chunks,
		Corrected:      corrected,
		Anomalies:      anomalies,
		InputRecords:   len(records),
		LogicalRecords: len(deduped),
		SkippedChunks:  skipped,
		Duration:       time.Since(started),
	}
	e.metrics.CorrectionDuration.Observe(result.Duration.Seconds())

	e.logger.Info(ctx, "[CORRECT_COMPLETE] Timeline correction completed", logging.Fields{
		"run_id":            runID,
		"input_records":     result.InputRecords,
		"logical_records":   result.LogicalRecords,
		"corrected_records": len(result.Corrected),
		"chunk_count":       len(result.Chunks),
		"skipped_chunks":    result.SkippedChunks,
		"anomaly_count":     len(result.Anomalies),
		"duration_seconds":  result.Duration.Seconds(),
		"stage":             "COMPLETE",
	})

	return result, nil
}

func sortAnomalies(anomalies []models.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if !a.LocalStart.Equal(b.LocalStart) {
			return a.LocalStart.Before(b.LocalStart)
		}
		if a.ChunkID != b.ChunkID {
			return a.ChunkID < b.ChunkID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.LocalEnd.Before(b.LocalEnd)
	})
}
