// Package config loads exl-loader configuration from flags, environment and
// an optional YAML file.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirilvk/exl-loader/pkg/drivers/redis"
	"github.com/sirilvk/exl-loader/pkg/exl"
	"github.com/sirilvk/exl-loader/pkg/loader"
	"github.com/sirilvk/exl-loader/pkg/observability"
	"github.com/spf13/viper"
)

// Config holds the exl-loader configuration
type Config struct {
	InputDir  string        `mapstructure:"idir" yaml:"idir"`
	Threads   int           `mapstructure:"threads" yaml:"threads"`
	Extension string        `mapstructure:"ext" yaml:"ext"`
	Logging   LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Redis     redis.Config  `mapstructure:"redis" yaml:"redis"`
	Metrics   MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing   TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Watch     WatchConfig   `mapstructure:"watch" yaml:"watch"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// WatchConfig holds settings for the watch command
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// File is the config file name searched for in $HOME and the working directory.
const File = ".exl-loader"

// EnvPrefix prefixes every environment override (EXL_REDIS_ADDRESS).
const EnvPrefix = "EXL"

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("idir", "")
	v.SetDefault("threads", loader.DefaultWorkers)
	v.SetDefault("ext", loader.DefaultExtension)
	v.SetDefault("logging.level", "error")
	v.SetDefault("logging.format", "text")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.atomic_index_writes", false)
	v.SetDefault("redis.writes_per_second", 0)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("watch.debounce", time.Second)
}

// Load reads and validates the configuration.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := Read(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read resolves the configuration without validating it. The config file is
// the one named by the "config" key, or File in $HOME or the working
// directory when that key is empty.
func Read(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(File)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, exl.ErrConfiguration("config", "Unable to read config file").WithCause(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, exl.ErrConfiguration("config", "Unable to decode configuration").WithCause(err)
	}
	// One connection per worker unless the pool is sized explicitly
	if cfg.Redis.PoolSize == 0 && cfg.Threads > 0 {
		cfg.Redis.PoolSize = cfg.Threads
	}
	return &cfg, nil
}

// Validate checks the options that must be right before any work starts
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return exl.ErrConfiguration("idir", "Input directory is required (-i/--idir)")
	}
	if c.Threads < 1 {
		return exl.ErrConfiguration("threads", "Worker count must be at least 1").
			WithContext("value", c.Threads)
	}
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return exl.ErrConfiguration("logging.format", "Log format must be text or json").
			WithContext("value", c.Logging.Format)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return exl.ErrConfiguration("metrics.port", "Metrics port out of range").
			WithContext("value", c.Metrics.Port)
	}
	if c.Redis.WritesPerSecond < 0 {
		return exl.ErrConfiguration("redis.writes_per_second", "Write rate cannot be negative").
			WithContext("value", c.Redis.WritesPerSecond)
	}
	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Redis.Password != "" {
		c.Redis.Password = "********"
	}
	return c
}
