package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// NASA POWER client.
	PowerBaseURL     string
	PowerTimeout     time.Duration
	PowerMaxAttempts int
	PowerBackoff     time.Duration
	PowerMaxBackoff  time.Duration

	// OpenCage geocoding. Enabled when a key is present (or forced via
	// GEOCODE_ENABLED); a run that needs geocoding without a key is a
	// configuration error, surfaced before any network activity.
	OpenCageKey      string
	OpenCageBaseURL  string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Simulation defaults, overridable per request.
	BlockDays      int
	HorizonDays    int
	DefaultTargets []float64

	// Optional stage-event publishing. Disabled when no brokers are set.
	KafkaBrokers    []string
	KafkaStageTopic string
}

// KafkaEnabled reports whether stage-event publishing is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	powerTimeout, err := envDuration("POWER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	powerBackoff, err := envDuration("POWER_RETRY_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	powerMaxBackoff, err := envDuration("POWER_RETRY_MAX_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := envDuration("GEOCODE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := envInt("POWER_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	blockDays, err := envInt("BLOCK_DAYS", 30)
	if err != nil {
		return nil, err
	}
	horizonDays, err := envInt("HORIZON_DAYS", 3*365)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	targets, err := ParseTargets(envOrDefault("DEFAULT_TARGETS", "100,300,500,1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TARGETS: %w", err)
	}

	openCageKey := os.Getenv("OPENCAGE_API_KEY")
	geocodeEnabled := openCageKey != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PowerBaseURL:     envOrDefault("POWER_BASE_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		PowerTimeout:     powerTimeout,
		PowerMaxAttempts: maxAttempts,
		PowerBackoff:     powerBackoff,
		PowerMaxBackoff:  powerMaxBackoff,

		OpenCageKey:      openCageKey,
		OpenCageBaseURL:  envOrDefault("OPENCAGE_BASE_URL", "https://api.opencagedata.com/geocode/v1/json"),
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: cacheSize,

		BlockDays:      blockDays,
		HorizonDays:    horizonDays,
		DefaultTargets: targets,

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaStageTopic: envOrDefault("KAFKA_STAGE_TOPIC", "gdd-stage-events"),
	}

	if cfg.PowerMaxAttempts < 1 {
		return nil, errors.New("POWER_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.BlockDays < 1 {
		return nil, errors.New("BLOCK_DAYS must be at least 1")
	}
	if cfg.GeocodeEnabled && cfg.OpenCageKey == "" {
		return nil, errors.New("GEOCODE_ENABLED is true but OPENCAGE_API_KEY is not set")
	}

	return cfg, nil
}

// ParseTargets parses a comma-separated list of GDD thresholds.
// Distinctness and positivity are checked by domain.NewStages at run setup.
func ParseTargets(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	targets := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("target %q is not a number", p)
		}
		targets = append(targets, v)
	}
	if len(targets) == 0 {
		return nil, errors.New("no targets given")
	}
	return targets, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
