package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-platform/internal/models"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(models.USEasternTable(), DefaultValidatorConfig(), 4, testLogger(), testMetrics)
	require.NoError(t, err)
	return e
}

func TestEngineRunEndToEnd(t *testing.T) {
	e := newTestEngine(t)

	// Two deployments around the 2022 spring transition, with the second
	// download re-reading the tail of the first window.
	var records []models.RawRecord
	records = append(records, hourlyRecords(localTime(2022, time.February, 1, 0, 0), 48, time.Hour, "dl1.csv")...)
	records = append(records, hourlyRecords(localTime(2022, time.February, 2, 0, 0), 24, time.Hour, "dl1.csv", "dl2.csv")...)
	records = append(records, hourlyRecords(localTime(2022, time.April, 1, 0, 0), 48, time.Hour, "dl2.csv")...)

	result, err := e.Run(context.Background(), records)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 120, result.InputRecords)
	// The 24 re-read records merge with dl1.csv records by payload equality,
	// and the merged records carry the union signature, so the overlap window
	// becomes its own chunk.
	assert.Equal(t, 96, result.LogicalRecords)
	assert.Equal(t, 0, result.SkippedChunks)
	require.Len(t, result.Chunks, 3)

	byID := map[string]*models.Chunk{}
	for _, chunk := range result.Chunks {
		require.True(t, chunk.OffsetResolved)
		byID[chunk.ID] = chunk
	}
	require.Contains(t, byID, "dl1.csv")
	require.Contains(t, byID, "dl1.csv+dl2.csv")
	require.Contains(t, byID, "dl2.csv")
	assert.Equal(t, -5, byID["dl1.csv"].UTCOffsetHours)
	assert.Equal(t, -5, byID["dl1.csv+dl2.csv"].UTCOffsetHours)
	assert.Equal(t, -4, byID["dl2.csv"].UTCOffsetHours)

	require.Len(t, result.Corrected, 96)
	for i := 1; i < len(result.Corrected); i++ {
		assert.False(t, result.Corrected[i].UTCTimestamp.Before(result.Corrected[i-1].UTCTimestamp),
			"corrected output must be UTC-ordered at index %d", i)
	}
}

func TestEngineRunIsIdempotent(t *testing.T) {
	e := newTestEngine(t)

	var records []models.RawRecord
	records = append(records, hourlyRecords(localTime(2022, time.February, 1, 0, 0), 24, time.Hour, "a.csv")...)
	records = append(records, hourlyRecords(localTime(2022, time.June, 1, 0, 0), 24, time.Hour, "b.csv")...)
	// A gap and a conflict to produce anomalies.
	records = append(records, record(localTime(2022, time.June, 3, 0, 0), "late", "b.csv"))
	records = append(records, record(localTime(2022, time.February, 1, 5, 0), "conflict", "a.csv"))

	first, err := e.Run(context.Background(), records)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, first.Corrected, second.Corrected)
	assert.Equal(t, first.Anomalies, second.Anomalies)
	assert.Equal(t, first.LogicalRecords, second.LogicalRecords)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEngineRunEmptyInput(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Corrected)
	assert.Empty(t, result.Anomalies)
}

func TestEngineRunReportsConflictsAndGaps(t *testing.T) {
	e := newTestEngine(t)

	var records []models.RawRecord
	records = append(records, hourlyRecords(localTime(2022, time.June, 1, 6, 0), 5, time.Hour, "a.csv")...)
	records = append(records, hourlyRecords(localTime(2022, time.June, 1, 14, 0), 5, time.Hour, "a.csv")...)
	records = append(records, record(localTime(2022, time.June, 1, 7, 0), "different", "a.csv"))

	result, err := e.Run(context.Background(), records)
	require.NoError(t, err)

	kinds := map[models.AnomalyKind]int{}
	for _, a := range result.Anomalies {
		kinds[a.Kind]++
	}
	assert.Equal(t, 1, kinds[models.AnomalyDuplicateHours], "conflicting re-read should be reported once")
	assert.Equal(t, 1, kinds[models.AnomalyContinuityGap], "the 4h hole should be one finding")
	assert.Equal(t, 10, len(result.Corrected), "the conflicting record is dropped, not duplicated")
}

func TestEngineRunCancelledContext(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := hourlyRecords(localTime(2022, time.June, 1, 0, 0), 24, time.Hour, "a.csv")
	_, err := e.Run(ctx, records)
	assert.Error(t, err)
}
