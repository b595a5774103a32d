package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
// Invalid or missing required values are fatal at load time; nothing here is
// re-read after startup.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	IngestInterval  time.Duration

	// Upstream endpoints.
	CWFISBaseURL  string
	GeoMetBaseURL string
	AQHIFeedURL   string
	AQHIPageURL   string
	FetchTimeout  time.Duration
	RetryMinWait  time.Duration
	RetryMaxWait  time.Duration

	// Region and model parameters.
	Bounds             domain.Bounds
	AgencyFilter       string
	DedupeThresholdKm  float64
	ForecastHorizon    int
	InfluenceRadiusKm  float64
	FireSaturationHa   float64
	BackgroundPM25     float64
	MaxFirePM25        float64
	DefaultBaseline    int
	BaselineMaxAge     time.Duration
	WeatherConcurrency int
	CommunitiesFile    string

	// Artifact output.
	ArtifactDir string

	// Kafka publication (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	ingestInterval, err := envDuration("INGEST_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retryMinWait, err := envDuration("RETRY_MIN_WAIT", time.Second)
	if err != nil {
		return nil, err
	}
	retryMaxWait, err := envDuration("RETRY_MAX_WAIT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	baselineMaxAge, err := envDuration("BASELINE_MAX_AGE", 3*time.Hour)
	if err != nil {
		return nil, err
	}

	bounds := domain.Bounds{
		MinLat: envFloat("BOUNDS_MIN_LAT", 46.5),
		MaxLat: envFloat("BOUNDS_MAX_LAT", 60.5),
		MinLon: envFloat("BOUNDS_MIN_LON", -67.5),
		MaxLon: envFloat("BOUNDS_MAX_LON", -52.5),
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		IngestInterval:  ingestInterval,

		CWFISBaseURL:  envOrDefault("CWFIS_BASE_URL", "https://cwfis.cfs.nrcan.gc.ca"),
		GeoMetBaseURL: envOrDefault("GEOMET_BASE_URL", "https://api.weather.gc.ca"),
		AQHIFeedURL:   envOrDefault("AQHI_FEED_URL", "https://weather.gc.ca/rss/aqhi/nl-1_e.xml"),
		AQHIPageURL:   envOrDefault("AQHI_PAGE_URL", "https://weather.gc.ca/city/pages/nl-24_metric_e.html"),
		FetchTimeout:  fetchTimeout,
		RetryMinWait:  retryMinWait,
		RetryMaxWait:  retryMaxWait,

		Bounds:             bounds,
		AgencyFilter:       os.Getenv("AGENCY_FILTER"),
		DedupeThresholdKm:  envFloat("DEDUPE_THRESHOLD_KM", 10),
		ForecastHorizon:    envInt("FORECAST_HORIZON_HOURS", 12),
		InfluenceRadiusKm:  envFloat("INFLUENCE_RADIUS_KM", 200),
		FireSaturationHa:   envFloat("FIRE_SATURATION_HA", 1000),
		BackgroundPM25:     envFloat("BACKGROUND_PM25", 8),
		MaxFirePM25:        envFloat("MAX_FIRE_PM25", 50),
		DefaultBaseline:    envInt("DEFAULT_BASELINE_AQHI", 2),
		BaselineMaxAge:     baselineMaxAge,
		WeatherConcurrency: envInt("WEATHER_CONCURRENCY", 4),
		CommunitiesFile:    os.Getenv("COMMUNITIES_FILE"),

		ArtifactDir: envOrDefault("ARTIFACT_DIR", "./static-data"),

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "smoke-datasets"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if !c.Bounds.Valid() {
		return fmt.Errorf("invalid region bounds: %+v", c.Bounds)
	}
	if c.DedupeThresholdKm <= 0 {
		return errors.New("DEDUPE_THRESHOLD_KM must be positive")
	}
	if c.ForecastHorizon < 1 {
		return errors.New("FORECAST_HORIZON_HOURS must be at least 1")
	}
	if c.InfluenceRadiusKm <= 0 {
		return errors.New("INFLUENCE_RADIUS_KM must be positive")
	}
	if c.FireSaturationHa <= 0 {
		return errors.New("FIRE_SATURATION_HA must be positive")
	}
	if c.BaselineMaxAge <= 0 {
		return errors.New("BASELINE_MAX_AGE must be positive")
	}
	if c.DefaultBaseline < 1 {
		return errors.New("DEFAULT_BASELINE_AQHI must be at least 1")
	}
	if c.WeatherConcurrency < 1 {
		return errors.New("WEATHER_CONCURRENCY must be at least 1")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return fallback
}

func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
