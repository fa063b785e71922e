package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/baccarun/internal/combine"
)

// Storage backends for session snapshots
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// Environment overrides applied after the file is read
const (
	EnvHTTPPort = "BACCARUN_HTTP_PORT"
	EnvRedis    = "REDIS_ADDR"
	EnvPostgres = "BACCARUN_PG_DSN"
	EnvAMQP     = "BACCARUN_AMQP_URL"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Circuit   CircuitConfig   `yaml:"circuit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Engine    EngineConfig    `yaml:"engine"`
}

// ServerConfig represents the HTTP listener
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	ReadTimeoutMS  int      `yaml:"read_timeout_ms"`
	WriteTimeoutMS int      `yaml:"write_timeout_ms"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

// RateLimitConfig is the per-client token bucket
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`   // Requests per second
	Burst int     `yaml:"burst"` // Burst capacity
}

// StorageConfig selects where session snapshots live
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, file or redis
	Dir     string `yaml:"dir"`     // Snapshot directory for the file backend
}

// RedisConfig is shared by the snapshot store and the prediction cache
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	CacheTTL  int    `yaml:"cache_ttl_secs"`
}

// PostgresConfig is the ledger database. An empty DSN disables it.
type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// AMQPConfig is the event bus. An empty URL disables publishing.
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// CircuitConfig guards the external stores
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // Consecutive failures to open circuit
	OpenTimeoutMS    int `yaml:"open_timeout_ms"`   // Time before a half-open probe
}

// SchedulerConfig drives the periodic snapshot flush
type SchedulerConfig struct {
	FlushSchedule string `yaml:"flush_schedule"` // cron spec with seconds field
}

// EngineConfig tunes prediction
type EngineConfig struct {
	DefaultMode     string  `yaml:"default_mode"`
	PatternHalfLife float64 `yaml:"pattern_half_life"` // 0 disables decay
	WeightsFile     string  `yaml:"weights_file"`      // Optional mode weight tables
}

// DefaultAppConfig returns a configuration that runs locally without external services
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8088,
			ReadTimeoutMS:  5000,
			WriteTimeoutMS: 5000,
			CORSOrigins:    []string{"*"},
		},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
		Storage:   StorageConfig{Backend: StorageFile, Dir: filepath.Join("data", "sessions")},
		Redis:     RedisConfig{KeyPrefix: "baccarun", CacheTTL: 300},
		Postgres:  PostgresConfig{TimeoutMS: 3000},
		AMQP:      AMQPConfig{Exchange: "baccarun.events"},
		Circuit:   CircuitConfig{FailureThreshold: 5, OpenTimeoutMS: 30000},
		Scheduler: SchedulerConfig{FlushSchedule: "0 */1 * * * *"},
		Engine:    EngineConfig{DefaultMode: string(combine.Balanced)},
	}
}

// LoadAppConfig loads application configuration from a YAML file over the defaults
func LoadAppConfig(configPath string) (*AppConfig, error) {
	config := DefaultAppConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read app config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse app config: %w", err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %w", err)
	}
	return config, nil
}

// ApplyEnv overlays the environment variables read through lookup
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHTTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHTTPPort, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(EnvRedis); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvPostgres); ok {
		c.Postgres.DSN = v
	}
	if v, ok := lookup(EnvAMQP); ok {
		c.AMQP.URL = v
	}
	return nil
}

// Validate ensures the configuration is valid and consistent
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutMS <= 0 || c.Server.WriteTimeoutMS <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit rps must be positive, got %f", c.RateLimit.RPS)
	}
	if float64(c.RateLimit.Burst) < c.RateLimit.RPS {
		return fmt.Errorf("rate_limit burst (%d) must be >= rps (%.1f)", c.RateLimit.Burst, c.RateLimit.RPS)
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir cannot be empty for the file backend")
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage backend redis requires redis addr or %s", EnvRedis)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis cache_ttl_secs cannot be negative, got %d", c.Redis.CacheTTL)
	}
	if c.Postgres.DSN != "" && c.Postgres.TimeoutMS <= 0 {
		return fmt.Errorf("postgres timeout_ms must be positive, got %d", c.Postgres.TimeoutMS)
	}
	if c.AMQP.URL != "" && c.AMQP.Exchange == "" {
		return fmt.Errorf("amqp exchange cannot be empty")
	}
	if c.Circuit.FailureThreshold <= 0 {
		return fmt.Errorf("circuit failure_threshold must be positive, got %d", c.Circuit.FailureThreshold)
	}
	if c.Circuit.OpenTimeoutMS <= 0 {
		return fmt.Errorf("circuit open_timeout_ms must be positive, got %d", c.Circuit.OpenTimeoutMS)
	}

	if c.Scheduler.FlushSchedule != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Scheduler.FlushSchedule); err != nil {
			return fmt.Errorf("scheduler flush_schedule: %w", err)
		}
	}

	mode, err := combine.ParseMode(c.Engine.DefaultMode)
	if err != nil {
		return fmt.Errorf("engine default_mode: %w", err)
	}
	c.Engine.DefaultMode = string(mode)
	if c.Engine.PatternHalfLife < 0 {
		return fmt.Errorf("engine pattern_half_life cannot be negative, got %f", c.Engine.PatternHalfLife)
	}
	return nil
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetReadTimeout returns the read timeout as a time.Duration
func (s ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// GetWriteTimeout returns the write timeout as a time.Duration
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// GetCacheTTL returns the prediction cache TTL as a time.Duration
func (r RedisConfig) GetCacheTTL() time.Duration {
	return time.Duration(r.CacheTTL) * time.Second
}

// GetTimeout returns the ledger query timeout as a time.Duration
func (p PostgresConfig) GetTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// GetOpenTimeout returns how long an open circuit waits before probing
func (c CircuitConfig) GetOpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMS) * time.Millisecond
}

// Mode returns the validated default mode
func (e EngineConfig) Mode() combine.Mode {
	mode, err := combine.ParseMode(e.DefaultMode)
	if err != nil {
		return combine.Balanced
	}
	return mode
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return filepath.Join("config", "baccarun.yaml")
}
