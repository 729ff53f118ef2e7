package engine

import (
	"fmt"
	"time"

	"timeline-platform/internal/models"
)

// Project applies the chunk's frozen offset to every record, producing the
// ordered corrected sequence. utc = local - offset_hours, so a -5 chunk has
// its timestamps shifted five hours forward. Pure and total: it depends only
// on the chunk, never on the wall clock, and re-running it yields identical
// output. Projection is all-or-nothing per chunk, which is why an unresolved
// chunk is rejected outright instead of partially projected.
func Project(chunk *models.Chunk) ([]models.CorrectedRecord, error) {
	if !chunk.OffsetResolved {
		return nil, fmt.Errorf("chunk %s has no resolved offset", chunk.ID)
	}

	shift := -time.Duration(chunk.UTCOffsetHours) * time.Hour
	corrected := make([]models.CorrectedRecord, 0, len(chunk.Records))
	for _, rec := range chunk.Records {
		corrected = append(corrected, models.CorrectedRecord{
			ChunkID:        chunk.ID,
			LocalTimestamp: rec.LocalTimestamp,
			UTCTimestamp:   rec.LocalTimestamp.Add(shift),
			UTCOffsetHours: chunk.UTCOffsetHours,
			Payload:        rec.Payload,
		})
	}
	return corrected, nil
}
