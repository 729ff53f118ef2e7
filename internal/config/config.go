package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"timeline-platform/internal/engine"
)

// Config holds runtime configuration for the timeline platform.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string
}

// EngineConfig holds correction-engine settings.
type EngineConfig struct {
	// Workers bounds per-chunk parallelism during offset resolution and
	// projection.
	Workers int
	// TransitionsFile is the YAML transition table. Empty means the built-in
	// US Eastern table.
	TransitionsFile   string
	MissingHourFactor float64
	LargeGapHours     float64
	BoundaryTolHours  float64
}

// ValidatorConfig translates the hour-denominated engine settings into the
// validator's thresholds.
func (e EngineConfig) ValidatorConfig() engine.ValidatorConfig {
	return engine.ValidatorConfig{
		MissingHourFactor: e.MissingHourFactor,
		LargeGapThreshold: time.Duration(e.LargeGapHours * float64(time.Hour)),
		BoundaryTolerance: time.Duration(e.BoundaryTolHours * float64(time.Hour)),
	}
}

// LoadConfig reads configuration from environment variables (optionally .env).
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Host:         envString("SERVER_HOST", "0.0.0.0"),
			Port:         envInt("SERVER_PORT", 8080),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            envString("DB_HOST", "localhost"),
			Port:            envInt("DB_PORT", 5432),
			User:            envString("DB_USER", "timeline"),
			Password:        envString("DB_PASSWORD", ""),
			Database:        envString("DB_NAME", "timeline"),
			SSLMode:         envString("DB_SSLMODE", "disable"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: envDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: envString("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			Workers:           envInt("ENGINE_WORKERS", 4),
			TransitionsFile:   envString("ENGINE_TRANSITIONS_FILE", ""),
			MissingHourFactor: envFloat("ENGINE_MISSING_HOUR_FACTOR", 1.5),
			LargeGapHours:     envFloat("ENGINE_LARGE_GAP_HOURS", 2),
			BoundaryTolHours:  envFloat("ENGINE_BOUNDARY_TOLERANCE_HOURS", 1),
		},
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", c.Database.MaxOpenConns)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("ENGINE_WORKERS must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.MissingHourFactor <= 0 {
		return fmt.Errorf("ENGINE_MISSING_HOUR_FACTOR must be positive, got %g", c.Engine.MissingHourFactor)
	}
	if c.Engine.LargeGapHours <= 0 {
		return fmt.Errorf("ENGINE_LARGE_GAP_HOURS must be positive, got %g", c.Engine.LargeGapHours)
	}
	if c.Engine.BoundaryTolHours <= 0 {
		return fmt.Errorf("ENGINE_BOUNDARY_TOLERANCE_HOURS must be positive, got %g", c.Engine.BoundaryTolHours)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
