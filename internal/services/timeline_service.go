package services

import (
	"context"
	"fmt"

	"timeline-platform/internal/models"
	"timeline-platform/internal/repository"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// TimelineService provides read access to stored correction output
type TimelineService struct {
	repo    repository.TimelineRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTimelineService creates a new timeline service
func NewTimelineService(repo repository.TimelineRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *TimelineService {
	return &TimelineService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetCorrected retrieves corrected records matching the filter
func (s *TimelineService) GetCorrected(ctx context.Context, filter repository.CorrectedFilter) ([]*models.CorrectedRecord, int, error) {
	records, total, err := s.repo.GetCorrected(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get corrected records: %w", err)
	}
	return records, total, nil
}

// GetChunks retrieves stored chunk summaries
func (s *TimelineService) GetChunks(ctx context.Context, limit, offset int) ([]*models.ChunkSummary, error) {
	chunks, err := s.repo.GetChunks(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk retrieves one chunk summary by its identifier
func (s *TimelineService) GetChunk(ctx context.Context, chunkID string) (*models.ChunkSummary, error) {
	chunk, err := s.repo.GetChunk(ctx, chunkID)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetAnomalies retrieves anomalies matching the filter
func (s *TimelineService) GetAnomalies(ctx context.Context, filter repository.AnomalyFilter) ([]*models.Anomaly, int, error) {
	anomalies, total, err := s.repo.GetAnomalies(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get anomalies: %w", err)
	}
	return anomalies, total, nil
}

// HealthCheck verifies the storage layer is reachable
func (s *TimelineService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
