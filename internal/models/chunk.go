package models

import "time"

// Chunk is the maximal set of raw records sharing one provenance signature,
// treated as one fixed-clock-offset deployment period. Created by the chunk
// detector; read-only for every downstream stage.
type Chunk struct {
	ID             string // the canonical provenance signature
	Provenance     Provenance
	Records        []RawRecord // ascending by LocalTimestamp
	UTCOffsetHours int
	OffsetResolved bool
}

// Start returns the chunk's minimum local timestamp. Zero time for an empty
// chunk.
func (c *Chunk) Start() time.Time {
	if len(c.Records) == 0 {
		return time.Time{}
	}
	return c.Records[0].LocalTimestamp
}

// End returns the chunk's maximum local timestamp. Zero time for an empty
// chunk.
func (c *Chunk) End() time.Time {
	if len(c.Records) == 0 {
		return time.Time{}
	}
	return c.Records[len(c.Records)-1].LocalTimestamp
}

// OverlapsSpan reports whether the local-time spans of two non-empty chunks
// intersect. Legitimate deployments never overlap; an intersection is an
// anomaly to surface, not to merge.
func (c *Chunk) OverlapsSpan(other *Chunk) bool {
	if len(c.Records) == 0 || len(other.Records) == 0 {
		return false
	}
	return !c.End().Before(other.Start()) && !other.End().Before(c.Start())
}

// ChunkSummary is the per-chunk aggregate exposed by the repository and the
// read API.
type ChunkSummary struct {
	ChunkID        string    `json:"chunk_id" db:"chunk_id"`
	UTCOffsetHours int       `json:"utc_offset_hours" db:"utc_offset_hours"`
	RecordCount    int       `json:"record_count" db:"record_count"`
	LocalStart     time.Time `json:"local_start" db:"local_start"`
	LocalEnd       time.Time `json:"local_end" db:"local_end"`
	UTCStart       time.Time `json:"utc_start" db:"utc_start"`
	UTCEnd         time.Time `json:"utc_end" db:"utc_end"`
}
