package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "", cfg.Engine.TransitionsFile)
	assert.Equal(t, 1.5, cfg.Engine.MissingHourFactor)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_CONN_MAX_LIFETIME", "10m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_WORKERS", "8")
	t.Setenv("ENGINE_LARGE_GAP_HOURS", "3.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 3.5, cfg.Engine.LargeGapHours)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad server port", func(c *Config) { c.Server.Port = 0 }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"no open conns", func(c *Config) { c.Database.MaxOpenConns = 0 }},
		{"no workers", func(c *Config) { c.Engine.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfigValidatorConfig(t *testing.T) {
	ec := EngineConfig{
		MissingHourFactor: 2.0,
		LargeGapHours:     3,
		BoundaryTolHours:  0.5,
	}

	vc := ec.ValidatorConfig()
	assert.Equal(t, 2.0, vc.MissingHourFactor)
	assert.Equal(t, 3*time.Hour, vc.LargeGapThreshold)
	assert.Equal(t, 30*time.Minute, vc.BoundaryTolerance)
}

func TestLoadTransitionTable(t *testing.T) {
	t.Run("empty path uses built-in table", func(t *testing.T) {
		table, err := LoadTransitionTable("")
		require.NoError(t, err)
		assert.Equal(t, -5, table.StandardOffsetHours())
		assert.Equal(t, -4, table.DaylightOffsetHours())
		assert.Equal(t, 20, table.Len())
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "transitions.yaml")
		content := `standard_offset_hours: -5
daylight_offset_hours: -4
transitions:
  - local: "2022-03-13 02:00:00"
    direction: spring_forward
  - local: "2022-11-06 02:00:00"
    direction: fall_back
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := LoadTransitionTable(path)
		require.NoError(t, err)
		assert.Equal(t, 2, table.Len())

		first, last, ok := table.Coverage()
		require.True(t, ok)
		assert.Equal(t, "2022-03-13 02:00:00", first.Format("2006-01-02 15:04:05"))
		assert.Equal(t, "2022-11-06 02:00:00", last.Format("2006-01-02 15:04:05"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTransitionTable(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad direction", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "transitions.yaml")
		content := `standard_offset_hours: -5
daylight_offset_hours: -4
transitions:
  - local: "2022-03-13 02:00:00"
    direction: sideways
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadTransitionTable(path)
		assert.Error(t, err)
	})

	t.Run("out of order transitions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "transitions.yaml")
		content := `standard_offset_hours: -5
daylight_offset_hours: -4
transitions:
  - local: "2022-11-06 02:00:00"
    direction: fall_back
  - local: "2022-03-13 02:00:00"
    direction: spring_forward
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadTransitionTable(path)
		assert.Error(t, err)
	})
}
