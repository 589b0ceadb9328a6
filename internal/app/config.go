package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Cache drivers accepted by CACHE_DRIVER.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Config holds runtime configuration for the dashboard gateway and worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	BackendURL     string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	CacheDriver    string        `envconfig:"CACHE_DRIVER" default:"memory"`
	CacheTTL       time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSize      int           `envconfig:"CACHE_SIZE" default:"1024"`
	CacheStaleTime time.Duration `envconfig:"CACHE_STALE_TIME" default:"0s"`
	CacheSweepCron string        `envconfig:"CACHE_SWEEP_CRON" default:"*/10 * * * *"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CSRFSecret string        `envconfig:"CSRF_SECRET" required:"true"`

	AccessPolicyFile string `envconfig:"ACCESS_POLICY_FILE"`

	AuditPGDSN      string `envconfig:"AUDIT_PG_DSN"`
	AuditPGMaxConns int32  `envconfig:"AUDIT_PG_MAX_CONNS" default:"4"`

	RateLimit         int `envconfig:"RATE_LIMIT" default:"300"`
	LoginRateLimit    int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if c.BackendURL == "" {
		return errors.New("backend url must be provided")
	}
	switch c.CacheDriver {
	case CacheDriverMemory, CacheDriverRedis:
	default:
		return fmt.Errorf("unsupported cache driver %q", c.CacheDriver)
	}
	if c.CacheSize <= 0 {
		return errors.New("cache size must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
