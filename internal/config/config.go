// Package config loads service configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/database"
	"github.com/routopia/routeengine/internal/provider/resilience"
)

// Preference store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the complete service configuration.
type Config struct {
	App       AppConfig
	Telemetry TelemetryConfig
	Database  database.Config
	Providers ProvidersConfig
	Engine    EngineConfig
	Worker    WorkerConfig
}

// AppConfig holds process level settings.
type AppConfig struct {
	Port     string
	Env      string
	LogLevel zerolog.Level

	// PreferenceStore is StoreMemory or StorePostgres.
	PreferenceStore string
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// ProvidersConfig holds condition and directions provider settings. A
// provider without an API key is replaced by its static development stand-in.
type ProvidersConfig struct {
	OpenWeatherMapAPIKey  string
	OpenWeatherMapBaseURL string

	TomTomAPIKey  string
	TomTomBaseURL string

	OpenMeteoBaseURL string
	UseOpenMeteo     bool

	OpenRouteServiceAPIKey  string
	OpenRouteServiceBaseURL string

	// HTTPTimeout bounds each upstream HTTP call.
	HTTPTimeout time.Duration

	// Retry is applied by the cached provider services.
	Retry resilience.RetryPolicy

	WeatherCacheTTL    time.Duration
	TrafficCacheTTL    time.Duration
	TerrainCacheTTL    time.Duration
	DirectionsCacheTTL time.Duration
	StaleIfErrorTTL    time.Duration
}

// EngineConfig holds route engine settings.
type EngineConfig struct {
	OptimizerTimeout   time.Duration
	MaxAlternatives    int
	SegmentConcurrency int
	PredictionInterval time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Port               string
	PubSubProject      string
	PubSubSubscription string
	RefreshConcurrency int
	RefreshTimeout     time.Duration

	// RefreshInterval drives refreshes from a local ticker when no Pub/Sub
	// project is configured.
	RefreshInterval time.Duration
}

// Load reads configuration from the environment. Variables are first loaded
// from files (default: .env) when present; variables already set win.
func Load(files ...string) (*Config, error) {
	// Missing files are not an error.
	_ = godotenv.Load(files...)

	var e env

	cfg := &Config{
		App: AppConfig{
			Port:            e.str("APP_PORT", "8080"),
			Env:             e.str("APP_ENV", "development"),
			LogLevel:        e.level("LOG_LEVEL", zerolog.InfoLevel),
			PreferenceStore: strings.ToLower(e.str("PREFERENCE_STORE", StoreMemory)),
		},
		Telemetry: TelemetryConfig{
			Enabled:      e.boolean("OTEL_ENABLED", false),
			OTLPEndpoint: e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  e.float("OTEL_SAMPLE_RATIO", 1),
		},
		Providers: ProvidersConfig{
			OpenWeatherMapAPIKey:    os.Getenv("OPENWEATHERMAP_API_KEY"),
			OpenWeatherMapBaseURL:   os.Getenv("OPENWEATHERMAP_BASE_URL"),
			TomTomAPIKey:            os.Getenv("TOMTOM_API_KEY"),
			TomTomBaseURL:           os.Getenv("TOMTOM_BASE_URL"),
			OpenMeteoBaseURL:        os.Getenv("OPENMETEO_BASE_URL"),
			UseOpenMeteo:            e.boolean("OPENMETEO_ENABLED", true),
			OpenRouteServiceAPIKey:  os.Getenv("ORS_API_KEY"),
			OpenRouteServiceBaseURL: os.Getenv("ORS_BASE_URL"),
			HTTPTimeout:             e.duration("PROVIDER_HTTP_TIMEOUT", 10*time.Second),
			Retry: resilience.RetryPolicy{
				MaxAttempts:     uint64(e.integer("PROVIDER_RETRY_ATTEMPTS", 3)), //nolint:gosec // validated below
				InitialInterval: e.duration("PROVIDER_RETRY_INITIAL_INTERVAL", 100*time.Millisecond),
				MaxInterval:     e.duration("PROVIDER_RETRY_MAX_INTERVAL", 2*time.Second),
				Multiplier:      2,
				AttemptTimeout:  e.duration("PROVIDER_ATTEMPT_TIMEOUT", 800*time.Millisecond),
			},
			WeatherCacheTTL:    e.duration("WEATHER_CACHE_TTL", 15*time.Minute),
			TrafficCacheTTL:    e.duration("TRAFFIC_CACHE_TTL", 2*time.Minute),
			TerrainCacheTTL:    e.duration("TERRAIN_CACHE_TTL", 6*time.Hour),
			DirectionsCacheTTL: e.duration("DIRECTIONS_CACHE_TTL", 5*time.Minute),
			StaleIfErrorTTL:    e.duration("STALE_IF_ERROR_TTL", time.Hour),
		},
		Engine: EngineConfig{
			OptimizerTimeout:   e.duration("OPTIMIZER_TIMEOUT", 10*time.Second),
			MaxAlternatives:    e.integer("MAX_ALTERNATIVES", 2),
			SegmentConcurrency: e.integer("SEGMENT_CONCURRENCY", 8),
			PredictionInterval: e.duration("PREDICTION_INTERVAL", 15*time.Minute),
		},
		Worker: WorkerConfig{
			Port:               e.str("WORKER_PORT", "8081"),
			PubSubProject:      os.Getenv("PUBSUB_PROJECT_ID"),
			PubSubSubscription: e.str("PUBSUB_SUBSCRIPTION", "routopia-worker-jobs"),
			RefreshConcurrency: e.integer("REFRESH_CONCURRENCY", 3),
			RefreshTimeout:     e.duration("REFRESH_TIMEOUT", 30*time.Second),
			RefreshInterval:    e.duration("REFRESH_INTERVAL", 10*time.Minute),
		},
	}

	db, err := database.ConfigFromEnv()
	if err != nil {
		e.errs = append(e.errs, err)
	}
	cfg.Database = db

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that parse but make no sense.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.PreferenceStore {
	case StoreMemory, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("invalid PREFERENCE_STORE: %q", c.App.PreferenceStore))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("invalid OTEL_SAMPLE_RATIO: %v", c.Telemetry.SampleRatio))
	}
	if c.Providers.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("PROVIDER_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.Engine.OptimizerTimeout <= 0 {
		errs = append(errs, errors.New("OPTIMIZER_TIMEOUT must be positive"))
	}
	if c.Engine.MaxAlternatives < 1 {
		errs = append(errs, errors.New("MAX_ALTERNATIVES must be at least 1"))
	}
	if c.Engine.SegmentConcurrency < 1 {
		errs = append(errs, errors.New("SEGMENT_CONCURRENCY must be at least 1"))
	}
	if c.Worker.RefreshInterval < time.Minute {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be at least 1m"))
	}
	if c.Engine.PredictionInterval < time.Minute {
		errs = append(errs, errors.New("PREDICTION_INTERVAL must be at least 1m"))
	}

	return errors.Join(errs...)
}

// env reads typed variables and collects parse errors.
type env struct {
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return f
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return d
}

func (e *env) boolean(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
	return def
}

func (e *env) level(key string, def zerolog.Level) zerolog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	l, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %q", key, v))
		return def
	}
	return l
}
