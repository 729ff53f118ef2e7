package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"timeline-platform/internal/models"
	"timeline-platform/pkg/database"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// TimelineRepository provides data access for corrected timeline data
type TimelineRepository interface {
	// Chunk operations
	UpsertChunks(ctx context.Context, runID string, chunks []*models.Chunk) error
	GetChunks(ctx context.Context, limit, offset int) ([]*models.ChunkSummary, error)
	GetChunk(ctx context.Context, chunkID string) (*models.ChunkSummary, error)

	// Corrected record operations
	CreateCorrectedBatch(ctx context.Context, records []models.CorrectedRecord) error
	GetCorrected(ctx context.Context, filter CorrectedFilter) ([]*models.CorrectedRecord, int, error)

	// Anomaly operations
	CreateAnomaliesBatch(ctx context.Context, runID string, anomalies []models.Anomaly) error
	GetAnomalies(ctx context.Context, filter AnomalyFilter) ([]*models.Anomaly, int, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// CorrectedFilter defines filters for querying corrected records
type CorrectedFilter struct {
	ChunkID  *string
	StartUTC *time.Time
	EndUTC   *time.Time
	Limit    int
	Offset   int
}

// AnomalyFilter defines filters for querying anomalies
type AnomalyFilter struct {
	ChunkID *string
	Kind    *string
	Limit   int
	Offset  int
}

// timelineRepository implements TimelineRepository
type timelineRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTimelineRepository creates a new timeline repository
func NewTimelineRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) TimelineRepository {
	return &timelineRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// UpsertChunks stores the detected deployment chunks for a run. Re-running a
// correction over the same sources rewrites the same chunk rows.
func (r *timelineRepository) UpsertChunks(ctx context.Context, runID string, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			chunk_id, run_id, utc_offset_hours, record_count,
			local_start, local_end, utc_start, utc_end,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			utc_offset_hours = EXCLUDED.utc_offset_hours,
			record_count = EXCLUDED.record_count,
			local_start = EXCLUDED.local_start,
			local_end = EXCLUDED.local_end,
			utc_start = EXCLUDED.utc_start,
			utc_end = EXCLUDED.utc_end,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if !chunk.OffsetResolved || len(chunk.Records) == 0 {
			continue
		}
		shift := -time.Duration(chunk.UTCOffsetHours) * time.Hour
		_, err := stmt.ExecContext(ctx,
			chunk.ID,
			runID,
			chunk.UTCOffsetHours,
			len(chunk.Records),
			chunk.Start(),
			chunk.End(),
			chunk.Start().Add(shift),
			chunk.End().Add(shift),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_CHUNKS] Chunks stored", logging.Fields{
		"run_id": runID,
		"count":  len(chunks),
	})

	return nil
}

// GetChunks retrieves chunk summaries ordered by local start
func (r *timelineRepository) GetChunks(ctx context.Context, limit, offset int) ([]*models.ChunkSummary, error) {
	query := `
		SELECT chunk_id, utc_offset_hours, record_count,
		       local_start, local_end, utc_start, utc_end
		FROM chunks
		ORDER BY local_start, chunk_id
		LIMIT $1 OFFSET $2
	`

	var chunks []*models.ChunkSummary
	err := r.db.SelectContext(ctx, "list_chunks", &chunks, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	return chunks, nil
}

// GetChunk retrieves one chunk summary by ID
func (r *timelineRepository) GetChunk(ctx context.Context, chunkID string) (*models.ChunkSummary, error) {
	query := `
		SELECT chunk_id, utc_offset_hours, record_count,
		       local_start, local_end, utc_start, utc_end
		FROM chunks
		WHERE chunk_id = $1
	`

	var chunk models.ChunkSummary
	err := r.db.GetContext(ctx, "get_chunk", &chunk, query, chunkID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "chunk",
			ID:       chunkID,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}

	return &chunk, nil
}

// CreateCorrectedBatch inserts corrected records in a single transaction.
// Conflicting rows from a re-run update in place, keeping persistence
// idempotent to match the engine.
func (r *timelineRepository) CreateCorrectedBatch(ctx context.Context, records []models.CorrectedRecord) error {
	if len(records) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.PersistBatchSize.Observe(float64(len(records)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Corrected batch insert completed", logging.Fields{
			"count":       len(records),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corrected_records (
			chunk_id, local_timestamp, utc_timestamp, utc_offset_hours, payload, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_id, local_timestamp) DO UPDATE SET
			utc_timestamp = EXCLUDED.utc_timestamp,
			utc_offset_hours = EXCLUDED.utc_offset_hours,
			payload = EXCLUDED.payload
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ChunkID,
			rec.LocalTimestamp,
			rec.UTCTimestamp,
			rec.UTCOffsetHours,
			rec.Payload,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert corrected record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCorrected retrieves corrected records with filtering and pagination
func (r *timelineRepository) GetCorrected(ctx context.Context, filter CorrectedFilter) ([]*models.CorrectedRecord, int, error) {
	query := `
		SELECT chunk_id, local_timestamp, utc_timestamp, utc_offset_hours, payload
		FROM corrected_records
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.ChunkID != nil {
		query += fmt.Sprintf(" AND chunk_id = $%d", argNum)
		args = append(args, *filter.ChunkID)
		argNum++
	}

	if filter.StartUTC != nil {
		query += fmt.Sprintf(" AND utc_timestamp >= $%d", argNum)
		args = append(args, *filter.StartUTC)
		argNum++
	}

	if filter.EndUTC != nil {
		query += fmt.Sprintf(" AND utc_timestamp <= $%d", argNum)
		args = append(args, *filter.EndUTC)
		argNum++
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_corrected", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count corrected records: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY utc_timestamp, chunk_id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.CorrectedRecord
	err = r.db.SelectContext(ctx, "get_corrected", &records, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get corrected records: %w", err)
	}

	return records, totalCount, nil
}

// CreateAnomaliesBatch inserts the anomalies surfaced by a run. Anomaly
// output is append-only; prior runs keep their findings.
func (r *timelineRepository) CreateAnomaliesBatch(ctx context.Context, runID string, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anomalies (
			run_id, kind, chunk_id, local_start, local_end, magnitude_hours, details, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range anomalies {
		_, err := stmt.ExecContext(ctx,
			runID,
			string(a.Kind),
			a.ChunkID,
			a.LocalStart,
			a.LocalEnd,
			a.MagnitudeHours,
			a.Details,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_ANOMALIES] Anomalies stored", logging.Fields{
		"run_id": runID,
		"count":  len(anomalies),
	})

	return nil
}

// GetAnomalies retrieves anomalies with filtering and pagination
func (r *timelineRepository) GetAnomalies(ctx context.Context, filter AnomalyFilter) ([]*models.Anomaly, int, error) {
	query := `
		SELECT kind, chunk_id, local_start, local_end, magnitude_hours, details
		FROM anomalies
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.ChunkID != nil {
		query += fmt.Sprintf(" AND chunk_id = $%d", argNum)
		args = append(args, *filter.ChunkID)
		argNum++
	}

	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argNum)
		args = append(args, *filter.Kind)
		argNum++
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_anomalies", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count anomalies: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY local_start, chunk_id, kind"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var anomalies []*models.Anomaly
	err = r.db.SelectContext(ctx, "get_anomalies", &anomalies, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get anomalies: %w", err)
	}

	return anomalies, totalCount, nil
}

// HealthCheck performs a repository health check
func (r *timelineRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
