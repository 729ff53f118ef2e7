package models

import (
	"fmt"
	"time"
)

// TransitionDirection says which way the civil clock moved at a DST
// transition.
type TransitionDirection int

const (
	SpringForward TransitionDirection = iota
	FallBack
)

// String returns the configuration spelling of the direction.
func (d TransitionDirection) String() string {
	switch d {
	case SpringForward:
		return "spring_forward"
	case FallBack:
		return "fall_back"
	default:
		return "unknown"
	}
}

// ParseTransitionDirection parses the configuration spelling of a direction.
func ParseTransitionDirection(s string) (TransitionDirection, error) {
	switch s {
	case "spring_forward":
		return SpringForward, nil
	case "fall_back":
		return FallBack, nil
	default:
		return 0, fmt.Errorf("invalid transition direction %q, expected spring_forward or fall_back", s)
	}
}

// TransitionEvent is one civil DST change. EffectiveLocal is the naive local
// wall-clock instant of the change; it marks the first instant AFTER which
// the new offset applies.
type TransitionEvent struct {
	EffectiveLocal time.Time
	Direction      TransitionDirection
}

// TransitionTable is the ordered, immutable list of civil DST transitions for
// the deployment region, together with the region's standard and daylight
// offsets in signed hours from UTC (e.g. -5/-4 for US Eastern). Constructed
// once at process start and passed to the resolver explicitly, never a hidden
// global.
type TransitionTable struct {
	standardOffsetHours int
	daylightOffsetHours int
	events              []TransitionEvent
}

// NewTransitionTable validates and builds a table. Events must be strictly
// ascending by effective local instant.
func NewTransitionTable(standardOffsetHours, daylightOffsetHours int, events []TransitionEvent) (*TransitionTable, error) {
	if standardOffsetHours == daylightOffsetHours {
		return nil, fmt.Errorf("standard and daylight offsets are both %+d, table would be inert", standardOffsetHours)
	}
	for i := 1; i < len(events); i++ {
		if !events[i].EffectiveLocal.After(events[i-1].EffectiveLocal) {
			return nil, fmt.Errorf("transition events out of order at index %d: %s is not after %s",
				i,
				events[i].EffectiveLocal.Format(LocalTimestampLayout),
				events[i-1].EffectiveLocal.Format(LocalTimestampLayout))
		}
	}
	copied := make([]TransitionEvent, len(events))
	copy(copied, events)
	return &TransitionTable{
		standardOffsetHours: standardOffsetHours,
		daylightOffsetHours: daylightOffsetHours,
		events:              copied,
	}, nil
}

// StandardOffsetHours returns the non-DST offset from UTC.
func (t *TransitionTable) StandardOffsetHours() int { return t.standardOffsetHours }

// DaylightOffsetHours returns the DST offset from UTC.
func (t *TransitionTable) DaylightOffsetHours() int { return t.daylightOffsetHours }

// Events returns a copy of the transition events in ascending order.
func (t *TransitionTable) Events() []TransitionEvent {
	out := make([]TransitionEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of transition events.
func (t *TransitionTable) Len() int { return len(t.events) }

// Coverage returns the first and last effective instants of the table. ok is
// false when the table holds no events.
func (t *TransitionTable) Coverage() (first, last time.Time, ok bool) {
	if len(t.events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.events[0].EffectiveLocal, t.events[len(t.events)-1].EffectiveLocal, true
}

// USEasternTable returns the built-in US Eastern transition table for
// 2021-2030 with EST -5 and EDT -4. Operators normally supply the table from
// configuration; this is the fallback for the region the loggers actually
// run in.
func USEasternTable() *TransitionTable {
	local := func(y int, m time.Month, d, h int) time.Time {
		return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	}
	springDays := map[int]int{2021: 14, 2022: 13, 2023: 12, 2024: 10, 2025: 9, 2026: 8, 2027: 14, 2028: 12, 2029: 11, 2030: 10}
	fallDays := map[int]int{2021: 7, 2022: 6, 2023: 5, 2024: 3, 2025: 2, 2026: 1, 2027: 7, 2028: 5, 2029: 4, 2030: 3}

	var events []TransitionEvent
	for year := 2021; year <= 2030; year++ {
		events = append(events,
			TransitionEvent{EffectiveLocal: local(year, time.March, springDays[year], 2), Direction: SpringForward},
			TransitionEvent{EffectiveLocal: local(year, time.November, fallDays[year], 2), Direction: FallBack},
		)
	}

	table, err := NewTransitionTable(-5, -4, events)
	if err != nil {
		// The literal data above is ascending by construction.
		panic(err)
	}
	return table
}
