package models

import (
	"time"
)

// LocalTimestampLayout is the interchange format for naive logger-local
// timestamps handed over by the parsing layer.
const LocalTimestampLayout = "2006-01-02 15:04:05"

// RawRecord is a single logger reading as produced by the external parser.
// LocalTimestamp is a naive wall-clock value: the logger attached no offset,
// so it is stored in time.UTC purely as a fixed reference location and does
// NOT mean the instant is UTC. Immutable once produced.
type RawRecord struct {
	LocalTimestamp time.Time
	Provenance     Provenance
	Payload        string // opaque sensor fields, passed through untouched
}

// CorrectedRecord is a RawRecord projected onto the UTC timeline using its
// chunk's frozen offset. Append-only output, never revised.
type CorrectedRecord struct {
	ChunkID        string    `json:"chunk_id" db:"chunk_id"`
	LocalTimestamp time.Time `json:"local_timestamp" db:"local_timestamp"`
	UTCTimestamp   time.Time `json:"utc_timestamp" db:"utc_timestamp"`
	UTCOffsetHours int       `json:"utc_offset_hours" db:"utc_offset_hours"`
	Payload        string    `json:"payload" db:"payload"`
}

// ValidationError represents a data validation error on an input record.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent.
func (e *ValidationError) IsTransient() bool {
	return false
}
