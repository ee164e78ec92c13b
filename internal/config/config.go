package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Registry backends.
const (
	BackendFS    = "fs"
	BackendMinio = "minio"
)

type Config struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	AppEnv   string `mapstructure:"app_env"`

	History  HistoryConfig  `mapstructure:"history"`
	Registry RegistryConfig `mapstructure:"registry"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Reload   ReloadConfig   `mapstructure:"reload"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Train    TrainConfig    `mapstructure:"train"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// HistoryConfig locates the historical dataset: a file path or an http(s) URL.
type HistoryConfig struct {
	Source  string        `mapstructure:"source"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RegistryConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// ReloadConfig controls the periodic history refresh. Zero disables it.
type ReloadConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type ForecastConfig struct {
	// Workers bounds per-day fan-out in batch forecasts.
	Workers int `mapstructure:"workers"`
}

type TrainConfig struct {
	ReportPath string `mapstructure:"report_path"`
}

type CORSConfig struct {
	AllowOrigins string `mapstructure:"allow_origins"`
}

// Load reads configuration from .env and the environment with sensible
// defaults. Nested keys map to underscored variables, so history.source is
// read from HISTORY_SOURCE.
func Load() (*Config, error) {
	// A missing .env is fine; the environment and defaults still apply.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("app_env", "development")

	v.SetDefault("history.source", "new_merged_data.csv")
	v.SetDefault("history.timeout", 30*time.Second)

	v.SetDefault("registry.backend", BackendFS)
	v.SetDefault("registry.dir", "models")

	// Registered so AutomaticEnv picks them up on Unmarshal.
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "weather-models")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("reload.interval", time.Duration(0))
	v.SetDefault("forecast.workers", 8)
	v.SetDefault("train.report_path", "")
	v.SetDefault("cors.allow_origins", "http://localhost:3000")
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.History.Source == "" {
		return fmt.Errorf("HISTORY_SOURCE must not be empty")
	}
	if cfg.Forecast.Workers < 0 {
		return fmt.Errorf("FORECAST_WORKERS must not be negative")
	}
	if cfg.Reload.Interval < 0 {
		return fmt.Errorf("RELOAD_INTERVAL must not be negative")
	}

	switch cfg.Registry.Backend {
	case BackendFS:
		if cfg.Registry.Dir == "" {
			return fmt.Errorf("REGISTRY_DIR must not be empty")
		}
	case BackendMinio:
		if cfg.Minio.Endpoint == "" || cfg.Minio.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown REGISTRY_BACKEND %q", cfg.Registry.Backend)
	}
	return nil
}

// Addr returns the listen address in the format ":port".
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
