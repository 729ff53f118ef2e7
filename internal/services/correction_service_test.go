package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-platform/internal/engine"
	"timeline-platform/internal/models"
	"timeline-platform/internal/repository"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

var testMetrics = metrics.NewCollector("services_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("services-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// fakeRepository records everything persisted to it.
type fakeRepository struct {
	chunks    []*models.Chunk
	corrected []models.CorrectedRecord
	anomalies []models.Anomaly
	batches   []int
	runIDs    []string
}

func (f *fakeRepository) UpsertChunks(ctx context.Context, runID string, chunks []*models.Chunk) error {
	f.runIDs = append(f.runIDs, runID)
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeRepository) GetChunks(ctx context.Context, limit, offset int) ([]*models.ChunkSummary, error) {
	return nil, nil
}

func (f *fakeRepository) GetChunk(ctx context.Context, chunkID string) (*models.ChunkSummary, error) {
	return nil, &repository.NotFoundError{Resource: "chunk", ID: chunkID}
}

func (f *fakeRepository) CreateCorrectedBatch(ctx context.Context, records []models.CorrectedRecord) error {
	f.batches = append(f.batches, len(records))
	f.corrected = append(f.corrected, records...)
	return nil
}

func (f *fakeRepository) GetCorrected(ctx context.Context, filter repository.CorrectedFilter) ([]*models.CorrectedRecord, int, error) {
	return nil, 0, nil
}

func (f *fakeRepository) CreateAnomaliesBatch(ctx context.Context, runID string, anomalies []models.Anomaly) error {
	f.anomalies = append(f.anomalies, anomalies...)
	return nil
}

func (f *fakeRepository) GetAnomalies(ctx context.Context, filter repository.AnomalyFilter) ([]*models.Anomaly, int, error) {
	return nil, 0, nil
}

func (f *fakeRepository) HealthCheck(ctx context.Context) error {
	return nil
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewEngine(models.USEasternTable(), engine.DefaultValidatorConfig(), 2, testLogger(), testMetrics)
	require.NoError(t, err)
	return e
}

func writeRecordFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	content := "timestamp,value\n"
	for _, line := range lines {
		content += line + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCorrectDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, "dl1.csv",
		"2022-02-01 00:00:00,12.1",
		"2022-02-01 01:00:00,12.3",
		"2022-02-01 02:00:00,12.2",
	)
	writeRecordFile(t, dir, "dl2.csv",
		"2022-06-01 00:00:00,19.8",
		"2022-06-01 01:00:00,19.5",
	)

	repo := &fakeRepository{}
	svc := NewCorrectionService(repo, newTestEngine(t), testLogger(), testMetrics)

	report, err := svc.CorrectDirectory(context.Background(), dir, 2, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalFiles)
	assert.Equal(t, 5, report.ParsedRecords)
	assert.Equal(t, 0, report.FailedRecords)
	assert.Equal(t, 2, report.ChunkCount)
	assert.Equal(t, 5, report.CorrectedRecords)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, repo.chunks, 2)
	assert.Len(t, repo.corrected, 5)
	// 5 records at batch size 2: batches of 2, 2, 1.
	assert.Equal(t, []int{2, 2, 1}, repo.batches)

	// Winter deployment projected at -5, summer at -4.
	for _, rec := range repo.corrected {
		switch rec.ChunkID {
		case "dl1.csv":
			assert.Equal(t, -5, rec.UTCOffsetHours)
			assert.True(t, rec.UTCTimestamp.Equal(rec.LocalTimestamp.Add(5*time.Hour)))
		case "dl2.csv":
			assert.Equal(t, -4, rec.UTCOffsetHours)
			assert.True(t, rec.UTCTimestamp.Equal(rec.LocalTimestamp.Add(4*time.Hour)))
		default:
			t.Fatalf("unexpected chunk %s", rec.ChunkID)
		}
	}
}

func TestCorrectDirectoryDryRun(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, "dl1.csv",
		"2022-02-01 00:00:00,12.1",
		"2022-02-01 01:00:00,12.3",
	)

	repo := &fakeRepository{}
	svc := NewCorrectionService(repo, newTestEngine(t), testLogger(), testMetrics)

	report, err := svc.CorrectDirectory(context.Background(), dir, 100, true)
	require.NoError(t, err)

	assert.Equal(t, 2, report.CorrectedRecords)
	assert.Empty(t, repo.chunks)
	assert.Empty(t, repo.corrected)
	assert.Empty(t, repo.anomalies)
}

func TestCorrectDirectorySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	writeRecordFile(t, dir, "dl1.csv",
		"2022-02-01 00:00:00,12.1",
		"not-a-timestamp,12.3",
		"2022-02-01 01:00:00",
		"2022-02-01 02:00:00,12.2",
	)

	repo := &fakeRepository{}
	svc := NewCorrectionService(repo, newTestEngine(t), testLogger(), testMetrics)

	report, err := svc.CorrectDirectory(context.Background(), dir, 100, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.ParsedRecords)
	assert.Equal(t, 2, report.FailedRecords)
	assert.Len(t, repo.corrected, 2)
}

func TestCorrectDirectoryEmptyDir(t *testing.T) {
	repo := &fakeRepository{}
	svc := NewCorrectionService(repo, newTestEngine(t), testLogger(), testMetrics)

	_, err := svc.CorrectDirectory(context.Background(), t.TempDir(), 100, false)
	assert.Error(t, err)
}

func TestParseRecordLine(t *testing.T) {
	t.Run("payload keeps embedded commas", func(t *testing.T) {
		rec, err := parseRecordLine("2022-02-01 00:00:00,12.1,98,1013", "dl1.csv")
		require.NoError(t, err)
		assert.Equal(t, "12.1,98,1013", rec.Payload)
		assert.Equal(t, []string{"dl1.csv"}, rec.Provenance.Sources())
	})

	t.Run("rejects missing separator", func(t *testing.T) {
		_, err := parseRecordLine("2022-02-01 00:00:00", "dl1.csv")
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("rejects bad timestamp", func(t *testing.T) {
		_, err := parseRecordLine("02/01/2022 00:00,12.1", "dl1.csv")
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}
