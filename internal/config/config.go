// Package config loads service configuration from the environment, with an
// optional .env file for local development. Configuration is read once at
// startup and immutable afterwards.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level service configuration.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"cargowatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server    ServerConfig
	Gateway   GatewayConfig
	Risk      RiskConfig
	Database  DatabaseConfig
	PubSub    PubSubConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// GatewayConfig holds weather/hazard gateway connection settings.
type GatewayConfig struct {
	BaseURL    string        `envconfig:"GATEWAY_BASE_URL" validate:"required,url"`
	APIKey     string        `envconfig:"GATEWAY_API_KEY"`
	Timeout    time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
	MaxRetries uint64        `envconfig:"GATEWAY_MAX_RETRIES" default:"2"`
}

// RiskConfig holds risk engine and monitor tuning.
type RiskConfig struct {
	// UseSyntheticFallback engages the fallback synthesizer when the
	// gateway forecast is unavailable. Defaults on; production deployments
	// that prefer hard errors turn it off.
	UseSyntheticFallback bool `envconfig:"USE_SYNTHETIC_FALLBACK" default:"true"`

	// PollInterval between monitor refreshes, bounded to [5m, 10m].
	PollInterval time.Duration `envconfig:"RISK_POLL_INTERVAL" default:"5m"`

	// AssessmentCacheTTL for completed route assessments.
	AssessmentCacheTTL time.Duration `envconfig:"ASSESSMENT_CACHE_TTL" default:"5m"`

	// WeatherCacheTTL for gateway weather data.
	WeatherCacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"10m"`

	// MaxSamplePoints caps the timeline resolution.
	MaxSamplePoints int `envconfig:"MAX_SAMPLE_POINTS" default:"24" validate:"min=2"`
}

// DatabaseConfig holds PostgreSQL settings. When disabled the service runs
// with in-memory persistence.
type DatabaseConfig struct {
	Enabled         bool          `envconfig:"DB_ENABLED" default:"false"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"cargowatch"`
	Password        string        `envconfig:"DB_PASSWORD" default:"localdev"`
	Name            string        `envconfig:"DB_NAME" default:"cargowatch"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
}

// PubSubConfig holds the job subscription settings for the worker.
type PubSubConfig struct {
	Enabled        bool   `envconfig:"PUBSUB_ENABLED" default:"false"`
	ProjectID      string `envconfig:"PUBSUB_PROJECT_ID"`
	SubscriptionID string `envconfig:"PUBSUB_SUBSCRIPTION" default:"cargowatch-jobs"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled      bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

// RateLimitConfig holds API rate limits per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120" validate:"min=1"`
	AssessPerMinute   int `envconfig:"RATE_LIMIT_ASSESS_PER_MINUTE" default:"20" validate:"min=1"`
}

// Monitor poll bounds, mirrored from the risk package.
const (
	minPollInterval = 5 * time.Minute
	maxPollInterval = 10 * time.Minute
)

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first and never overrides real environment
// variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags plus the bounds envconfig cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	if c.Risk.PollInterval < minPollInterval || c.Risk.PollInterval > maxPollInterval {
		return fmt.Errorf("RISK_POLL_INTERVAL must be between %s and %s, got %s",
			minPollInterval, maxPollInterval, c.Risk.PollInterval)
	}

	if c.PubSub.Enabled && c.PubSub.ProjectID == "" {
		return fmt.Errorf("PUBSUB_PROJECT_ID is required when PUBSUB_ENABLED is set")
	}

	return nil
}

// IsLocal reports whether the service runs in the local environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
