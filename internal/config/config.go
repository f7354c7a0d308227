package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Increment strategies for GET /update
const (
	StrategyAtomic     = "atomic"
	StrategyOptimistic = "optimistic"
	StrategyUnguarded  = "unguarded"
)

// Config holds all configuration for the counter service
type Config struct {
	// Server configuration
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"3000"`
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"3001"`
	GRPCEnabled bool   `env:"GRPC_ENABLED" envDefault:"true"`
	PublicDir   string `env:"PUBLIC_DIR" envDefault:"public"`

	// Logging
	Log LogConfig

	// Redis configuration
	Redis RedisConfig

	// Counter behaviour
	Counters CounterConfig

	// Health monitoring
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"15s"`

	// Timeouts
	Timeouts TimeoutConfig
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// File enables a rotating JSON log file alongside stderr
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// CounterConfig holds counter storage settings
type CounterConfig struct {
	KeyPrefix         string `env:"COUNTER_KEY_PREFIX"`
	IncrementStrategy string `env:"COUNTER_INCREMENT_STRATEGY" envDefault:"atomic"`
	CASRetries        int    `env:"COUNTER_CAS_RETRIES" envDefault:"8"`
	EventsPrefix      string `env:"COUNTER_EVENTS_PREFIX" envDefault:"layoutcounter"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	InitTimeout     time.Duration `env:"TIMEOUT_INIT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"10s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCEnabled {
		if c.GRPCPort < 1 || c.GRPCPort > 65535 {
			return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
		}
		if c.GRPCPort == c.HTTPPort {
			return fmt.Errorf("gRPC port %d collides with HTTP port", c.GRPCPort)
		}
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate counter config
	switch c.Counters.IncrementStrategy {
	case StrategyAtomic, StrategyOptimistic, StrategyUnguarded:
	default:
		return fmt.Errorf("invalid increment strategy: %s (must be atomic, optimistic, or unguarded)", c.Counters.IncrementStrategy)
	}
	if c.Counters.CASRetries < 1 {
		return fmt.Errorf("CAS retries must be at least 1")
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
