// Package config loads process configuration from the environment, after
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/stationhub/weatheraggregator/internal/database"
	"github.com/stationhub/weatheraggregator/internal/worker"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the configuration shared by the API and worker processes.
type Config struct {
	Port       string
	Env        string
	Storage    string
	RequireTLS bool

	Database  database.Config
	Telemetry TelemetryConfig
	Ingest    IngestConfig
	PubSub    PubSubConfig
	Poll      worker.PollConfig
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// IngestConfig holds ingestion token settings. An empty SigningKey leaves
// the ingestion endpoints open.
type IngestConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// PubSubConfig holds the worker's subscription. An empty ProjectID disables
// the consumer.
type PubSubConfig struct {
	ProjectID    string
	Subscription string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:     getEnvOrDefault("APP_PORT", "8080"),
		Env:      getEnvOrDefault("APP_ENV", "development"),
		Storage:  strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StoragePostgres)),
		Database: database.ConfigFromEnv(),
		Ingest: IngestConfig{
			SigningKey: os.Getenv("INGEST_SIGNING_KEY"),
			Issuer:     getEnvOrDefault("INGEST_TOKEN_ISSUER", "weather-aggregator"),
			Audience:   getEnvOrDefault("INGEST_TOKEN_AUDIENCE", "weather-ingest"),
		},
		PubSub: PubSubConfig{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "weather-readings"),
		},
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: want %s or %s", cfg.Storage, StoragePostgres, StorageMemory)
	}

	var err error
	if cfg.RequireTLS, err = getBool("REQUIRE_TLS", cfg.IsProduction()); err != nil {
		return nil, err
	}

	cfg.Telemetry.OTLPEndpoint = getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	if cfg.Telemetry.Enabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Telemetry.SampleRatio, err = getFloat("OTEL_SAMPLE_RATIO", 1); err != nil {
		return nil, err
	}

	if cfg.Poll, err = pollFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func pollFromEnv() (worker.PollConfig, error) {
	poll := worker.DefaultPollConfig()

	feeds, err := worker.ParseFeeds(os.Getenv("FEED_URLS"))
	if err != nil {
		return poll, fmt.Errorf("invalid FEED_URLS: %w", err)
	}
	poll.Feeds = feeds

	if poll.Interval, err = getDuration("FEED_INTERVAL", poll.Interval); err != nil {
		return poll, err
	}
	if poll.Timeout, err = getDuration("FEED_TIMEOUT", poll.Timeout); err != nil {
		return poll, err
	}
	if poll.Concurrency, err = getInt("FEED_CONCURRENCY", poll.Concurrency); err != nil {
		return poll, err
	}
	if poll.Interval <= 0 || poll.Timeout <= 0 || poll.Concurrency <= 0 {
		return poll, errors.New("FEED_INTERVAL, FEED_TIMEOUT and FEED_CONCURRENCY must be positive")
	}
	return poll, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
