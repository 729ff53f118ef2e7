package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"timeline-platform/internal/models"
)

// transitionsFile mirrors the operator-maintained YAML transition table:
//
//	standard_offset_hours: -5
//	daylight_offset_hours: -4
//	transitions:
//	  - local: "2022-03-13 02:00:00"
//	    direction: spring_forward
//	  - local: "2022-11-06 02:00:00"
//	    direction: fall_back
type transitionsFile struct {
	StandardOffsetHours int               `yaml:"standard_offset_hours"`
	DaylightOffsetHours int               `yaml:"daylight_offset_hours"`
	Transitions         []transitionEntry `yaml:"transitions"`
}

type transitionEntry struct {
	Local     string `yaml:"local"`
	Direction string `yaml:"direction"`
}

// LoadTransitionTable reads and validates a YAML transition table. An empty
// path falls back to the built-in US Eastern table the deployments run under.
func LoadTransitionTable(path string) (*models.TransitionTable, error) {
	if path == "" {
		return models.USEasternTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transition table %s: %w", path, err)
	}

	var file transitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse transition table %s: %w", path, err)
	}

	events := make([]models.TransitionEvent, 0, len(file.Transitions))
	for i, entry := range file.Transitions {
		local, err := time.ParseInLocation(models.LocalTimestampLayout, entry.Local, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("transition %d: invalid local instant %q: %w", i, entry.Local, err)
		}
		direction, err := models.ParseTransitionDirection(entry.Direction)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		events = append(events, models.TransitionEvent{EffectiveLocal: local, Direction: direction})
	}

	table, err := models.NewTransitionTable(file.StandardOffsetHours, file.DaylightOffsetHours, events)
	if err != nil {
		return nil, fmt.Errorf("invalid transition table %s: %w", path, err)
	}
	return table, nil
}
