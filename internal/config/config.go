package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DatabaseURL   string
	MigrationsDir string
	AutoMigrate   bool

	// Upstream open-data APIs.
	GeocodeBaseURL    string
	DVFBaseURL        string
	ADEMEBaseURL      string
	UpstreamTimeout   time.Duration
	UpstreamRateLimit float64 // requests per second, per upstream
	SearchRadius      float64 // meters

	BatchConcurrency int           // 0 launches every user at once
	BatchInterval    time.Duration // 0 disables the scheduled persist run
	TargetDPEClass   string

	// Kafka publishing of enrichment events.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("BATCH_INTERVAL", "0s"))
	if err != nil || batchInterval < 0 {
		return nil, errors.New("invalid BATCH_INTERVAL")
	}

	rateLimit, err := parsePositiveFloat("UPSTREAM_RATE_LIMIT", "10")
	if err != nil {
		return nil, err
	}

	radius, err := parsePositiveFloat("SEARCH_RADIUS_METERS", "100")
	if err != nil {
		return nil, err
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("BATCH_CONCURRENCY", "0"))
	if err != nil || concurrency < 0 {
		return nil, errors.New("invalid BATCH_CONCURRENCY")
	}

	targetClass := strings.ToUpper(sharedcfg.EnvOrDefault("TARGET_DPE_CLASS", "B"))
	if len(targetClass) != 1 || targetClass < "A" || targetClass > "G" {
		return nil, fmt.Errorf("invalid TARGET_DPE_CLASS %q: must be A-G", targetClass)
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	autoMigrate := os.Getenv("AUTO_MIGRATE") == "true"

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MigrationsDir: sharedcfg.EnvOrDefault("MIGRATIONS_DIR", "migrations"),
		AutoMigrate:   autoMigrate,

		GeocodeBaseURL:    sharedcfg.EnvOrDefault("GEOCODE_BASE_URL", "https://api-adresse.data.gouv.fr/search/"),
		DVFBaseURL:        sharedcfg.EnvOrDefault("DVF_BASE_URL", "https://api.cquest.org/dvf"),
		ADEMEBaseURL:      sharedcfg.EnvOrDefault("ADEME_BASE_URL", "https://data.ademe.fr/data-fair/api/v1/datasets/dpe-v2-logements-existants/lines"),
		UpstreamTimeout:   upstreamTimeout,
		UpstreamRateLimit: rateLimit,
		SearchRadius:      radius,

		BatchConcurrency: concurrency,
		BatchInterval:    batchInterval,
		TargetDPEClass:   targetClass,

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "dpe-enrichment-results"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}
