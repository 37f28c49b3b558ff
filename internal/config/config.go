package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultMaxDistanceKm is the association cutoff applied when nothing else is
// configured: nearest points farther than this are discarded with a warning.
const DefaultMaxDistanceKm = 5.0

// Config holds all settings for a preparation run. Values are layered:
// environment variables first, then an optional YAML job file, then CLI
// flags, each overriding the previous layer.
type Config struct {
	// Inputs and output.
	PointFiles   []string
	SitesFile    string
	ExposureFile string
	OutputPath   string

	// Site-source and acceptance knobs.
	GridSpacingKm float64
	MaxDistanceKm float64

	// Optional derived columns.
	DeriveZ1pt0        bool
	DeriveZ2pt5        bool
	DeriveVs30Measured bool

	// Execution.
	Workers         int
	LogLevel        string
	LogFormat       string
	MetricsAddr     string // empty disables the HTTP listener
	ShutdownTimeout time.Duration

	// Optional Kafka warning stream.
	KafkaBrokers       []string
	KafkaWarningsTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	maxDistance, err := parseFloatEnv("MAX_ASSOC_DISTANCE_KM", DefaultMaxDistanceKm)
	if err != nil {
		return nil, err
	}
	gridSpacing, err := parseFloatEnv("GRID_SPACING_KM", 0)
	if err != nil {
		return nil, err
	}
	workers, err := parseIntEnv("PREPARE_WORKERS", runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		MaxDistanceKm:      maxDistance,
		GridSpacingKm:      gridSpacing,
		Workers:            workers,
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:        os.Getenv("METRICS_ADDR"),
		ShutdownTimeout:    shutdownTimeout,
		KafkaBrokers:       brokers,
		KafkaWarningsTopic: envOrDefault("KAFKA_WARNINGS_TOPIC", "site-model-warnings"),
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// jobFile mirrors the YAML job description. Pointer fields distinguish "not
// present" from zero values so the file only overrides what it names.
type jobFile struct {
	PointFiles    []string `yaml:"point_files"`
	Sites         *string  `yaml:"sites"`
	Exposure      *string  `yaml:"exposure"`
	Output        *string  `yaml:"output"`
	GridSpacingKm *float64 `yaml:"grid_spacing_km"`
	MaxDistanceKm *float64 `yaml:"max_distance_km"`
	Z1pt0         *bool    `yaml:"z1pt0"`
	Z2pt5         *bool    `yaml:"z2pt5"`
	Vs30Measured  *bool    `yaml:"vs30measured"`
	Workers       *int     `yaml:"workers"`
}

// ApplyJobFile overlays settings from a YAML job file onto the config.
func (c *Config) ApplyJobFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	var jf jobFile
	if err := yaml.Unmarshal(data, &jf); err != nil {
		return fmt.Errorf("parse job file %s: %w", path, err)
	}

	if len(jf.PointFiles) > 0 {
		c.PointFiles = jf.PointFiles
	}
	if jf.Sites != nil {
		c.SitesFile = *jf.Sites
	}
	if jf.Exposure != nil {
		c.ExposureFile = *jf.Exposure
	}
	if jf.Output != nil {
		c.OutputPath = *jf.Output
	}
	if jf.GridSpacingKm != nil {
		c.GridSpacingKm = *jf.GridSpacingKm
	}
	if jf.MaxDistanceKm != nil {
		c.MaxDistanceKm = *jf.MaxDistanceKm
	}
	if jf.Z1pt0 != nil {
		c.DeriveZ1pt0 = *jf.Z1pt0
	}
	if jf.Z2pt5 != nil {
		c.DeriveZ2pt5 = *jf.Z2pt5
	}
	if jf.Vs30Measured != nil {
		c.DeriveVs30Measured = *jf.Vs30Measured
	}
	if jf.Workers != nil {
		c.Workers = *jf.Workers
	}

	return nil
}

// Validate checks that the layered configuration describes a runnable job.
func (c *Config) Validate() error {
	if len(c.PointFiles) == 0 {
		return errors.New("at least one ground-condition file is required")
	}
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	if c.SitesFile == "" && c.ExposureFile == "" {
		return errors.New("either a sites file or an exposure file is required")
	}
	if c.MaxDistanceKm <= 0 {
		return errors.New("max association distance must be positive")
	}
	if c.GridSpacingKm < 0 {
		return errors.New("grid spacing must be zero or positive")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
