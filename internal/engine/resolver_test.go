package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-platform/internal/models"
)

func TestNewResolverRequiresTable(t *testing.T) {
	_, err := NewResolver(nil)
	assert.Error(t, err)
}

func TestOffsetAtTransitionBoundaries(t *testing.T) {
	resolver, err := NewResolver(models.USEasternTable())
	require.NoError(t, err)

	tests := []struct {
		name  string
		local time.Time
		want  int
	}{
		{"midwinter", localTime(2022, time.January, 15, 12, 0), -5},
		{"minute before spring transition", localTime(2022, time.March, 13, 1, 59), -5},
		{"exactly at spring transition", localTime(2022, time.March, 13, 2, 0), -5},
		{"minute after spring transition", localTime(2022, time.March, 13, 2, 1), -4},
		{"midsummer", localTime(2022, time.July, 4, 12, 0), -4},
		{"exactly at fall transition", localTime(2022, time.November, 6, 2, 0), -4},
		{"minute after fall transition", localTime(2022, time.November, 6, 2, 1), -5},
		{"following winter", localTime(2022, time.December, 25, 0, 0), -5},
		{"spring of a different year", localTime(2025, time.March, 9, 3, 0), -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.OffsetAt(tt.local))
		})
	}
}

func TestResolveFreezesOffsetOnChunkStart(t *testing.T) {
	resolver, err := NewResolver(models.USEasternTable())
	require.NoError(t, err)

	// Deployed in February, collected in July: the span crosses the March
	// transition but the device clock never moved, so the whole chunk stays
	// on the winter offset.
	chunk := &models.Chunk{
		ID:         "feb.csv",
		Provenance: models.NewProvenance("feb.csv"),
		Records:    hourlyRecords(localTime(2022, time.February, 1, 0, 0), 24*150, time.Hour, "feb.csv"),
	}

	offset, warnings, err := resolver.Resolve(chunk)
	require.NoError(t, err)
	assert.Equal(t, -5, offset)
	assert.Empty(t, warnings)
}

func TestResolveSummerChunk(t *testing.T) {
	resolver, err := NewResolver(models.USEasternTable())
	require.NoError(t, err)

	chunk := &models.Chunk{
		ID:         "jun.csv",
		Provenance: models.NewProvenance("jun.csv"),
		Records:    hourlyRecords(localTime(2022, time.June, 1, 0, 0), 48, time.Hour, "jun.csv"),
	}

	offset, warnings, err := resolver.Resolve(chunk)
	require.NoError(t, err)
	assert.Equal(t, -4, offset)
	assert.Empty(t, warnings)
}

func TestResolveEmptyChunk(t *testing.T) {
	resolver, err := NewResolver(models.USEasternTable())
	require.NoError(t, err)

	_, _, err = resolver.Resolve(&models.Chunk{ID: "empty"})
	assert.ErrorIs(t, err, ErrEmptyChunk)
}

func TestResolveOutsideCoverage(t *testing.T) {
	resolver, err := NewResolver(models.USEasternTable())
	require.NoError(t, err)

	t.Run("predates coverage", func(t *testing.T) {
		chunk := &models.Chunk{
			ID:      "old.csv",
			Records: hourlyRecords(localTime(2019, time.June, 1, 0, 0), 3, time.Hour, "old.csv"),
		}
		offset, warnings, err := resolver.Resolve(chunk)
		require.NoError(t, err)
		assert.Equal(t, -5, offset)
		require.Len(t, warnings, 1)
		assert.Equal(t, models.AnomalyBoundaryMismatch, warnings[0].Kind)
	})

	t.Run("postdates coverage", func(t *testing.T) {
		chunk := &models.Chunk{
			ID:      "future.csv",
			Records: hourlyRecords(localTime(2031, time.June, 1, 0, 0), 3, time.Hour, "future.csv"),
		}
		offset, warnings, err := resolver.Resolve(chunk)
		require.NoError(t, err)
		// The last known event is a fall-back, so the standard offset
		// carries forward.
		assert.Equal(t, -5, offset)
		require.Len(t, warnings, 1)
		assert.Equal(t, models.AnomalyBoundaryMismatch, warnings[0].Kind)
	})
}
