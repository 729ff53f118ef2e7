package engine

import (
	"errors"
	"fmt"
	"time"

	"timeline-platform/internal/models"
)

// ErrEmptyChunk is returned when a chunk carries no records and therefore has
// no first timestamp to resolve an offset from.
var ErrEmptyChunk = errors.New("chunk has no records to resolve an offset from")

// Resolver determines the single fixed UTC offset for a chunk from the DST
// transition table. The offset is resolved from the chunk's FIRST local
// timestamp and never re-evaluated against later timestamps: the field device
// is deaf to transitions that happen under it, so freezing on the chunk start
// is the only policy consistent with observed device behavior.
type Resolver struct {
	table *models.TransitionTable
}

// NewResolver builds a resolver over an immutable transition table.
func NewResolver(table *models.TransitionTable) (*Resolver, error) {
	if table == nil {
		return nil, errors.New("transition table is required")
	}
	return &Resolver{table: table}, nil
}

// Resolve returns the chunk's fixed offset in signed hours from UTC, plus any
// coverage warnings. A chunk starting outside the table's coverage still gets
// the nearest boundary offset; stale coverage is a configuration defect to
// surface, not a crash.
func (r *Resolver) Resolve(chunk *models.Chunk) (int, []models.Anomaly, error) {
	if len(chunk.Records) == 0 {
		return 0, nil, ErrEmptyChunk
	}

	start := chunk.Start()
	offset := r.OffsetAt(start)

	var anomalies []models.Anomaly
	first, last, ok := r.table.Coverage()
	switch {
	case !ok:
		anomalies = append(anomalies, models.Anomaly{
			Kind:       models.AnomalyBoundaryMismatch,
			ChunkID:    chunk.ID,
			LocalStart: start,
			LocalEnd:   start,
			Details:    "transition table holds no events, baseline standard offset assumed",
		})
	case start.Before(first):
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyBoundaryMismatch,
			ChunkID:        chunk.ID,
			LocalStart:     start,
			LocalEnd:       first,
			MagnitudeHours: first.Sub(start).Hours(),
			Details:        fmt.Sprintf("chunk start predates table coverage (first transition %s), baseline offset %+d used", first.Format(models.LocalTimestampLayout), offset),
		})
	case start.After(last):
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyBoundaryMismatch,
			ChunkID:        chunk.ID,
			LocalStart:     last,
			LocalEnd:       start,
			MagnitudeHours: start.Sub(last).Hours(),
			Details:        fmt.Sprintf("chunk start postdates table coverage (last transition %s), offset %+d carried forward", last.Format(models.LocalTimestampLayout), offset),
		})
	}

	return offset, anomalies, nil
}

// OffsetAt returns the offset in force at the given naive local instant. A
// transition's effective instant marks the first instant AFTER which the new
// offset applies, so a timestamp exactly at the transition still resolves
// under the prior offset.
func (r *Resolver) OffsetAt(local time.Time) int {
	daylight := false
	for _, ev := range r.table.Events() {
		if ev.EffectiveLocal.After(local) {
			break
		}
		if local.After(ev.EffectiveLocal) {
			daylight = ev.Direction == models.SpringForward
		}
	}
	if daylight {
		return r.table.DaylightOffsetHours()
	}
	return r.table.StandardOffsetHours()
}
