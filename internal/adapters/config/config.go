package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"athena/pkg/errors"
)

type Config struct {
	App           AppConfig
	Backends      BackendsConfig
	Orchestrator  OrchestratorConfig
	RateLimits    RateLimitConfig
	Redis         RedisConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"athena"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// BackendsConfig points the adapters at their model runtimes. A backend
// family is enabled when its endpoint (or model path) is configured.
type BackendsConfig struct {
	GeneralURL string `envconfig:"GENERAL_RUNTIME_URL"`
	GeneralKey string `envconfig:"GENERAL_RUNTIME_API_KEY"`

	VisionURL string `envconfig:"VISION_RUNTIME_URL"`
	VisionKey string `envconfig:"VISION_RUNTIME_API_KEY"`

	CodeURL string `envconfig:"CODE_RUNTIME_URL"`
	CodeKey string `envconfig:"CODE_RUNTIME_API_KEY"`

	ClassifierModelPath string   `envconfig:"CLASSIFIER_MODEL_PATH"`
	ClassifierLabels    []string `envconfig:"CLASSIFIER_LABELS" default:"positive,negative,neutral,spam,toxic"`

	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"60s"`
}

// OrchestratorConfig tunes routing and fallback behavior.
type OrchestratorConfig struct {
	// FailureThreshold is the number of consecutive transient failures
	// after which a model is marked unavailable.
	FailureThreshold int `envconfig:"ORCHESTRATOR_FAILURE_THRESHOLD" default:"3"`

	// DefaultTimeout applies when a request carries no per-call timeout.
	DefaultTimeout time.Duration `envconfig:"ORCHESTRATOR_DEFAULT_TIMEOUT" default:"30s"`

	// UseRegistryOrder selects by catalog order instead of preferring the
	// least-privileged capable model.
	UseRegistryOrder bool `envconfig:"ORCHESTRATOR_USE_REGISTRY_ORDER" default:"false"`
}

// RateLimitConfig carries per-backend request budgets.
type RateLimitConfig struct {
	Enabled bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	GeneralReqPerMinute int `envconfig:"RATE_LIMIT_GENERAL_RPM" default:"300"`
	VisionReqPerMinute  int `envconfig:"RATE_LIMIT_VISION_RPM" default:"60"`
	CodeReqPerMinute    int `envconfig:"RATE_LIMIT_CODE_RPM" default:"120"`

	// Distributed switches to the Redis token bucket so limits hold
	// across replicas; requires Redis to be configured.
	Distributed bool `envconfig:"RATE_LIMIT_DISTRIBUTED" default:"false"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
