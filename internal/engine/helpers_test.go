package engine

import (
	"io"
	"time"

	"timeline-platform/internal/models"
	"timeline-platform/pkg/logging"
	"timeline-platform/pkg/metrics"
)

// One collector for the whole test binary; prometheus rejects duplicate
// registrations in the default registry.
var testMetrics = metrics.NewCollector("engine_test")

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("engine-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func localTime(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func record(ts time.Time, payload string, sources ...string) models.RawRecord {
	return models.RawRecord{
		LocalTimestamp: ts,
		Provenance:     models.NewProvenance(sources...),
		Payload:        payload,
	}
}

// hourlyRecords generates count records at a fixed interval starting at start,
// all from the same sources.
func hourlyRecords(start time.Time, count int, interval time.Duration, sources ...string) []models.RawRecord {
	records := make([]models.RawRecord, 0, count)
	for i := 0; i < count; i++ {
		ts := start.Add(time.Duration(i) * interval)
		records = append(records, record(ts, ts.Format(models.LocalTimestampLayout), sources...))
	}
	return records
}
