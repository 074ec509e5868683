package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	API        APIConfig        `mapstructure:"api"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Scenario   ScenarioConfig   `mapstructure:"scenario"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string          `mapstructure:"host"`
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// Per-client rate limit on the simulation routes
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Brokers  []string            `mapstructure:"brokers"`
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
	Producer KafkaProducerConfig `mapstructure:"producer"`
	Topics   KafkaTopicsConfig   `mapstructure:"topics"`
}

// Kafka consumer configuration
type KafkaConsumerConfig struct {
	GroupID           string        `mapstructure:"group_id"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	Workers           int           `mapstructure:"workers"`
}

// Kafka producer configuration
type KafkaProducerConfig struct {
	Acks            string        `mapstructure:"acks"`
	CompressionType string        `mapstructure:"compression_type"`
	BatchSize       int           `mapstructure:"batch_size"`
	LingerMs        int           `mapstructure:"linger_ms"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	MaxRetries      int           `mapstructure:"max_retries"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

// Circuit breaker guarding result publication
type BreakerConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// Kafka topics configuration
type KafkaTopicsConfig struct {
	PricingRequests string `mapstructure:"pricing_requests"`
	PricingResults  string `mapstructure:"pricing_results"`
}

// Configuration for path simulation
type SimulationConfig struct {
	// Seed fixes the random source for requests that carry no seed. Zero
	// means a fresh seed per run unless FixedSeed is set.
	Seed               uint64 `mapstructure:"seed"`
	FixedSeed          bool   `mapstructure:"fixed_seed"`
	BatchSize          int    `mapstructure:"batch_size"`
	Workers            int    `mapstructure:"workers"`
	MaxSteps           int    `mapstructure:"max_steps"`
	MaxSimulations     int    `mapstructure:"max_simulations"`
	MaxCells           int    `mapstructure:"max_cells"`
	DefaultSteps       int    `mapstructure:"default_steps"`
	DefaultSimulations int    `mapstructure:"default_simulations"`
	HistogramBins      int    `mapstructure:"histogram_bins"`
	SamplePaths        int    `mapstructure:"sample_paths"`
}

// Configuration for scenario analysis
type ScenarioConfig struct {
	Workers       int `mapstructure:"workers"`
	MaxConditions int `mapstructure:"max_conditions"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SeedPointer returns the configured fixed seed, or nil when runs should be
// seeded randomly
func (s SimulationConfig) SeedPointer() *uint64 {
	if !s.FixedSeed && s.Seed == 0 {
		return nil
	}
	seed := s.Seed
	return &seed
}

// Loads the configuration from a file and environment variables. A missing
// config file is not an error; defaults and the environment still apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configPath := GetConfigPath()
	v.SetConfigName(strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath)))
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Dir(configPath))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OPTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "option-pricing-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "30s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("api.rate_limit.enabled", true)
	v.SetDefault("api.rate_limit.requests_per_second", 5)
	v.SetDefault("api.rate_limit.burst", 10)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer.group_id", "option-pricing-engine")
	v.SetDefault("kafka.consumer.auto_offset_reset", "earliest")
	v.SetDefault("kafka.consumer.session_timeout", "30s")
	v.SetDefault("kafka.consumer.heartbeat_interval", "3s")
	v.SetDefault("kafka.consumer.workers", 4)
	v.SetDefault("kafka.producer.acks", "all")
	v.SetDefault("kafka.producer.compression_type", "snappy")
	v.SetDefault("kafka.producer.batch_size", 100)
	v.SetDefault("kafka.producer.linger_ms", 5)
	v.SetDefault("kafka.producer.retry_backoff", "100ms")
	v.SetDefault("kafka.producer.max_retries", 3)
	v.SetDefault("kafka.producer.breaker.timeout", "30s")
	v.SetDefault("kafka.producer.breaker.failure_ratio", 0.5)
	v.SetDefault("kafka.producer.breaker.min_requests", 5)
	v.SetDefault("kafka.topics.pricing_requests", "pricing.requests")
	v.SetDefault("kafka.topics.pricing_results", "pricing.results")

	// Simulation defaults
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.fixed_seed", false)
	v.SetDefault("simulation.batch_size", 4096)
	v.SetDefault("simulation.workers", 4)
	v.SetDefault("simulation.max_steps", 10000)
	v.SetDefault("simulation.max_simulations", 2000000)
	v.SetDefault("simulation.max_cells", 100000000)
	v.SetDefault("simulation.default_steps", 252)
	v.SetDefault("simulation.default_simulations", 10000)
	v.SetDefault("simulation.histogram_bins", 50)
	v.SetDefault("simulation.sample_paths", 10)

	// Scenario defaults
	v.SetDefault("scenario.workers", 4)
	v.SetDefault("scenario.max_conditions", 10000)

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
}

func GetConfigPath() string {
	configPath := os.Getenv("OPTION_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
