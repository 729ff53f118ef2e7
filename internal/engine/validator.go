package engine

import (
	"fmt"
	"sort"
	"time"

	"timeline-platform/internal/models"
)

// ValidatorConfig parameterizes the continuity checks. The source analysis
// scripts re-derived these thresholds with inconsistent values per report;
// they live in one place now.
type ValidatorConfig struct {
	// MissingHourFactor times the nominal sampling interval is the smallest
	// local-time gap reported as a missing period.
	MissingHourFactor float64
	// LargeGapThreshold is the gap size attributed to a sensor or power
	// outage rather than a timezone defect.
	LargeGapThreshold time.Duration
	// BoundaryTolerance is how far a chunk boundary may sit from a known
	// transition before an offset change across that boundary is suspicious.
	BoundaryTolerance time.Duration
}

// DefaultValidatorConfig returns the operating thresholds used in production.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MissingHourFactor: 1.5,
		LargeGapThreshold: 2 * time.Hour,
		BoundaryTolerance: time.Hour,
	}
}

// Validator runs the post-hoc continuity analysis over resolved chunks. Every
// check is advisory: findings are reported for human review and never block
// downstream consumption of corrected records.
type Validator struct {
	table *models.TransitionTable
	cfg   ValidatorConfig
}

// NewValidator builds a validator against the same transition table the
// resolver used.
func NewValidator(table *models.TransitionTable, cfg ValidatorConfig) *Validator {
	if cfg.MissingHourFactor <= 0 {
		cfg.MissingHourFactor = 1.5
	}
	if cfg.LargeGapThreshold <= 0 {
		cfg.LargeGapThreshold = 2 * time.Hour
	}
	if cfg.BoundaryTolerance <= 0 {
		cfg.BoundaryTolerance = time.Hour
	}
	return &Validator{table: table, cfg: cfg}
}

// Validate runs all checks against chunks ordered by start time and returns
// the combined findings.
func (v *Validator) Validate(chunks []*models.Chunk) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, chunk := range chunks {
		anomalies = append(anomalies, v.checkGaps(chunk)...)
		anomalies = append(anomalies, v.checkDuplicates(chunk)...)
	}
	anomalies = append(anomalies, v.checkBoundaries(chunks)...)
	return anomalies
}

// NominalInterval infers a chunk's sampling interval as the predominant
// inter-record delta. Ties resolve to the smaller delta. Zero when fewer than
// two distinct timestamps exist.
func NominalInterval(chunk *models.Chunk) time.Duration {
	counts := make(map[time.Duration]int)
	for i := 1; i < len(chunk.Records); i++ {
		delta := chunk.Records[i].LocalTimestamp.Sub(chunk.Records[i-1].LocalTimestamp)
		if delta > 0 {
			counts[delta]++
		}
	}

	var nominal time.Duration
	best := 0
	deltas := make([]time.Duration, 0, len(counts))
	for delta := range counts {
		deltas = append(deltas, delta)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	for _, delta := range deltas {
		if counts[delta] > best {
			best = counts[delta]
			nominal = delta
		}
	}
	return nominal
}

// checkGaps reports missing periods and outage-sized gaps within one chunk.
// A gap beyond LargeGapThreshold is a continuity gap (likely the sensor was
// offline); smaller gaps beyond MissingHourFactor x nominal are missing
// periods. One finding per gap regardless of how many samples it swallowed.
func (v *Validator) checkGaps(chunk *models.Chunk) []models.Anomaly {
	nominal := NominalInterval(chunk)
	var anomalies []models.Anomaly

	for i := 1; i < len(chunk.Records); i++ {
		prev := chunk.Records[i-1].LocalTimestamp
		cur := chunk.Records[i].LocalTimestamp
		gap := cur.Sub(prev)

		switch {
		case gap >= v.cfg.LargeGapThreshold:
			anomalies = append(anomalies, models.Anomaly{
				Kind:           models.AnomalyContinuityGap,
				ChunkID:        chunk.ID,
				LocalStart:     prev,
				LocalEnd:       cur,
				MagnitudeHours: gap.Hours(),
				Details:        fmt.Sprintf("gap of %.1fh exceeds outage threshold %.1fh", gap.Hours(), v.cfg.LargeGapThreshold.Hours()),
			})
		case nominal > 0 && gap > time.Duration(v.cfg.MissingHourFactor*float64(nominal)):
			anomalies = append(anomalies, models.Anomaly{
				Kind:           models.AnomalyMissingHours,
				ChunkID:        chunk.ID,
				LocalStart:     prev,
				LocalEnd:       cur,
				MagnitudeHours: gap.Hours(),
				Details:        fmt.Sprintf("gap of %.2fh against nominal interval %s", gap.Hours(), nominal),
			})
		}
	}
	return anomalies
}

// checkDuplicates reports local timestamps recorded more than once with
// differing payloads inside one chunk. Frozen offsets make real fall-back
// re-reads collapse into one chunk, so any survivor here points at a data or
// chunking defect.
func (v *Validator) checkDuplicates(chunk *models.Chunk) []models.Anomaly {
	var anomalies []models.Anomaly
	for i := 1; i < len(chunk.Records); i++ {
		prev := chunk.Records[i-1]
		cur := chunk.Records[i]
		if cur.LocalTimestamp.Equal(prev.LocalTimestamp) && cur.Payload != prev.Payload {
			anomalies = append(anomalies, models.Anomaly{
				Kind:       models.AnomalyDuplicateHours,
				ChunkID:    chunk.ID,
				LocalStart: cur.LocalTimestamp,
				LocalEnd:   cur.LocalTimestamp,
				Details:    fmt.Sprintf("local timestamp %s recorded with differing payloads", cur.LocalTimestamp.Format(models.LocalTimestampLayout)),
			})
		}
	}
	return anomalies
}

// checkBoundaries cross-checks consecutive chunk boundaries against the
// transition table. An offset change between adjacent chunks should coincide
// with a known transition within the tolerance; field visits do not have to
// land on DST dates, so a mismatch is reported, not fatal.
func (v *Validator) checkBoundaries(chunks []*models.Chunk) []models.Anomaly {
	var anomalies []models.Anomaly

	var prev *models.Chunk
	for _, chunk := range chunks {
		if len(chunk.Records) == 0 || !chunk.OffsetResolved {
			continue
		}
		if prev != nil && prev.UTCOffsetHours != chunk.UTCOffsetHours {
			windowStart := prev.End().Add(-v.cfg.BoundaryTolerance)
			windowEnd := chunk.Start().Add(v.cfg.BoundaryTolerance)
			if !v.transitionWithin(windowStart, windowEnd) {
				anomalies = append(anomalies, models.Anomaly{
					Kind:           models.AnomalyBoundaryMismatch,
					ChunkID:        chunk.ID,
					LocalStart:     prev.End(),
					LocalEnd:       chunk.Start(),
					MagnitudeHours: chunk.Start().Sub(prev.End()).Hours(),
					Details: fmt.Sprintf("offset changed %+d to %+d across boundary with chunk %s but no transition lies within %s of it",
						prev.UTCOffsetHours, chunk.UTCOffsetHours, prev.ID, v.cfg.BoundaryTolerance),
				})
			}
		}
		prev = chunk
	}
	return anomalies
}

func (v *Validator) transitionWithin(start, end time.Time) bool {
	for _, ev := range v.table.Events() {
		if !ev.EffectiveLocal.Before(start) && !ev.EffectiveLocal.After(end) {
			return true
		}
	}
	return false
}
