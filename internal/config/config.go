// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from AGRI_RISK_* environment
// variables.
type Config struct {
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaSourceTopic string   `envconfig:"KAFKA_SOURCE_TOPIC" default:"risk-assessment-requests"`
	KafkaSinkTopic   string   `envconfig:"KAFKA_SINK_TOPIC" default:"risk-assessment-results"`
	KafkaGroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"agri-risk-assessment"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	BatchSize          int           `envconfig:"BATCH_SIZE" default:"25"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"5s"`

	// Upstream collector service. Empty base URL means simulator-only mode.
	CollectorBaseURL string        `envconfig:"COLLECTOR_BASE_URL"`
	CollectorTimeout time.Duration `envconfig:"COLLECTOR_TIMEOUT" default:"10s"`

	// Raw data cache.
	CacheDir      string        `envconfig:"CACHE_DIR" default:"data/cache"`
	CacheShortTTL time.Duration `envconfig:"CACHE_SHORT_TTL" default:"24h"`
	CacheLongTTL  time.Duration `envconfig:"CACHE_LONG_TTL" default:"168h"`

	// Model artifacts and training.
	ModelPath      string   `envconfig:"MODEL_PATH" default:"data/model.json"`
	ScalerPath     string   `envconfig:"SCALER_PATH" default:"data/scalers.json"`
	LookbackDays   int      `envconfig:"LOOKBACK_DAYS" default:"365"`
	TrainRegions   []string `envconfig:"TRAIN_REGIONS" default:"punjab,maharashtra,karnataka,uttar pradesh,gujarat"`
	TrainCrops     []string `envconfig:"TRAIN_CROPS" default:"wheat,rice,cotton,sugarcane"`
	RetrainCron    string   `envconfig:"RETRAIN_CRON" default:"0 2 * * *"`
	Seed           int64    `envconfig:"SEED" default:"42"`
	ForestTrees    int      `envconfig:"FOREST_TREES" default:"100"`
	ForestMaxDepth int      `envconfig:"FOREST_MAX_DEPTH" default:"6"`
	Attribution    string   `envconfig:"ATTRIBUTION" default:"path"`
}

// Load reads configuration from the environment, applying defaults where
// unset, and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("AGRI_RISK", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.BatchSize <= 0 {
		return errors.New("BATCH_SIZE must be positive")
	}
	if c.BatchFlushInterval <= 0 {
		return errors.New("BATCH_FLUSH_INTERVAL must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.LookbackDays <= 0 {
		return errors.New("LOOKBACK_DAYS must be positive")
	}
	if (c.ModelPath == "") != (c.ScalerPath == "") {
		return errors.New("MODEL_PATH and SCALER_PATH must be set together")
	}
	if len(c.TrainRegions) == 0 || len(c.TrainCrops) == 0 {
		return errors.New("TRAIN_REGIONS and TRAIN_CROPS must be non-empty")
	}
	if c.Attribution != "path" && c.Attribution != "importance" {
		return fmt.Errorf("ATTRIBUTION must be path or importance, got %q", c.Attribution)
	}
	return nil
}
