package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/reactflow/pkg/common/validation"
	"github.com/vnykmshr/reactflow/pkg/metrics"
	"github.com/vnykmshr/reactflow/pkg/scheduling/scheduler"
)

// EnvPrefix prefixes every environment override, e.g. REACTFLOW_SERVER_ADDR.
const EnvPrefix = "REACTFLOW"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the salesd configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RateLimit caps sales requests per second; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ReportConfig configures the periodic sales report.
type ReportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "reactflow",
				Timeout: 2 * time.Second,
			},
		},
		Report: ReportConfig{
			Enabled:  true,
			Schedule: "@every 1m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: metrics.DefaultNamespace,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	env := func(name string) (string, bool) {
		return os.LookupEnv(EnvPrefix + "_" + name)
	}

	if val, ok := env("SERVER_ADDR"); ok {
		c.Server.Addr = val
	}
	if val, ok := env("SERVER_RATE_LIMIT"); ok {
		rate, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%s_SERVER_RATE_LIMIT: %w", EnvPrefix, err)
		}
		c.Server.RateLimit = rate
	}
	if val, ok := env("SERVER_BURST"); ok {
		burst, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_SERVER_BURST: %w", EnvPrefix, err)
		}
		c.Server.Burst = burst
	}
	if val, ok := env("STORE_BACKEND"); ok {
		c.Store.Backend = val
	}
	if val, ok := env("REDIS_ADDR"); ok {
		c.Store.Redis.Addr = val
	}
	if val, ok := env("REDIS_PASSWORD"); ok {
		c.Store.Redis.Password = val
	}
	if val, ok := env("REDIS_DB"); ok {
		db, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_REDIS_DB: %w", EnvPrefix, err)
		}
		c.Store.Redis.DB = db
	}
	if val, ok := env("REPORT_ENABLED"); ok {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_REPORT_ENABLED: %w", EnvPrefix, err)
		}
		c.Report.Enabled = enabled
	}
	if val, ok := env("REPORT_SCHEDULE"); ok {
		c.Report.Schedule = val
	}
	if val, ok := env("LOG_LEVEL"); ok {
		c.Log.Level = val
	}
	if val, ok := env("LOG_FORMAT"); ok {
		c.Log.Format = val
	}
	if val, ok := env("METRICS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%s_METRICS_ENABLED: %w", EnvPrefix, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	check(validation.ValidateNotEmpty("server", "addr", c.Server.Addr))
	check(validation.ValidatePositiveDuration("server", "read_timeout", c.Server.ReadTimeout))
	check(validation.ValidatePositiveDuration("server", "write_timeout", c.Server.WriteTimeout))
	check(validation.ValidatePositiveDuration("server", "shutdown_timeout", c.Server.ShutdownTimeout))
	check(validation.ValidateNonNegative("server", "rate_limit", c.Server.RateLimit))
	if c.Server.RateLimit > 0 {
		check(validation.ValidatePositive("server", "burst", c.Server.Burst))
	}

	check(validation.ValidateOneOf("store", "backend", c.Store.Backend, BackendMemory, BackendRedis))
	if c.Store.Backend == BackendRedis {
		check(validation.ValidateNotEmpty("store", "redis.addr", c.Store.Redis.Addr))
		check(validation.ValidateNonNegativeInt("store", "redis.db", c.Store.Redis.DB))
		check(validation.ValidatePositiveDuration("store", "redis.timeout", c.Store.Redis.Timeout))
	}

	if c.Report.Enabled {
		if err := scheduler.ParseSpec(c.Report.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("report.schedule: %w", err))
		}
	}

	check(validation.ValidateOneOf("log", "level", c.Log.Level, "debug", "info", "warn", "error"))
	check(validation.ValidateOneOf("log", "format", c.Log.Format, "text", "json"))

	return errors.Join(errs...)
}

// NewMetrics builds a dedicated Prometheus registry with the runtime
// collectors and, when enabled, the reactflow metrics registered on it. The
// returned *metrics.Registry is nil when metrics are disabled.
func (c *Config) NewMetrics() (*metrics.Registry, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cfg := metrics.DefaultConfig()
	cfg.Enabled = c.Metrics.Enabled
	cfg.Namespace = c.Metrics.Namespace
	cfg.Registry = reg
	return metrics.NewWithConfig(cfg), reg
}

// String renders the configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Store.Redis.Password != "" {
		masked.Store.Redis.Password = "****"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
