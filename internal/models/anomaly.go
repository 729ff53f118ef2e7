package models

import "time"

// AnomalyKind classifies a diagnostic finding.
type AnomalyKind string

const (
	// AnomalyMissingHours is a local-time gap exceeding the missing-hour
	// factor times the chunk's nominal sampling interval.
	AnomalyMissingHours AnomalyKind = "missing_hours"
	// AnomalyDuplicateHours is a local timestamp recorded more than once with
	// differing payloads.
	AnomalyDuplicateHours AnomalyKind = "duplicate_hours"
	// AnomalyBoundaryMismatch covers chunk-boundary and table-coverage
	// defects: overlapping chunk spans, chunk boundaries with an offset
	// change that aligns with no known transition, chunk starts outside
	// table coverage, and chunks excluded because no offset could be
	// resolved.
	AnomalyBoundaryMismatch AnomalyKind = "boundary_mismatch"
	// AnomalyContinuityGap is a chunk-internal gap large enough to indicate
	// a sensor or power outage rather than a timezone defect.
	AnomalyContinuityGap AnomalyKind = "continuity_gap"
)

// Anomaly is a non-fatal diagnostic finding surfaced for human review. It
// never feeds back into correction.
type Anomaly struct {
	Kind           AnomalyKind `json:"kind" db:"kind"`
	ChunkID        string      `json:"chunk_id" db:"chunk_id"`
	LocalStart     time.Time   `json:"local_start" db:"local_start"`
	LocalEnd       time.Time   `json:"local_end" db:"local_end"`
	MagnitudeHours float64     `json:"magnitude_hours" db:"magnitude_hours"`
	Details        string      `json:"details" db:"details"`
}
