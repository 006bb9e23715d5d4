// Package config loads the application configuration from an optional
// YAML file plus BARPROVIDER_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Polygon  PolygonConfig `mapstructure:"polygon"`
	Cache    CacheConfig   `mapstructure:"cache"`
	Output   OutputConfig  `mapstructure:"output"`
	Store    StoreConfig   `mapstructure:"store"`
	Server   ServerConfig  `mapstructure:"server"`
}

// PolygonConfig holds the vendor transport settings.
type PolygonConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxPages       int           `mapstructure:"max_pages"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
	Burst          int           `mapstructure:"burst"`
}

type CacheConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int           `mapstructure:"max_items"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads the config file at path (optional; pass "" to use defaults
// and environment only) and applies BARPROVIDER_* overrides, e.g.
// BARPROVIDER_POLYGON_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("log_level", "info")
	v.SetDefault("polygon.base_url", "https://api.polygon.io")
	// Registered empty so AutomaticEnv can surface the key through
	// Unmarshal; viper only maps env values for keys it already knows.
	v.SetDefault("polygon.api_key", "")
	v.SetDefault("polygon.timeout", 30*time.Second)
	v.SetDefault("polygon.max_retries", 3)
	v.SetDefault("polygon.max_concurrency", 4)
	v.SetDefault("polygon.max_pages", 50)
	v.SetDefault("polygon.requests_per_min", 0)
	v.SetDefault("polygon.burst", 1)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_items", 256)
	v.SetDefault("output.format", "json")
	v.SetDefault("output.dir", ".")
	v.SetDefault("store.path", "")
	v.SetDefault("server.addr", ":8080")

	v.SetEnvPrefix("barprovider")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Polygon.BaseURL == "" {
		return fmt.Errorf("config: polygon.base_url cannot be empty")
	}
	if cfg.Polygon.Timeout <= 0 {
		return fmt.Errorf("config: polygon.timeout must be positive")
	}
	if cfg.Polygon.MaxConcurrency < 1 {
		return fmt.Errorf("config: polygon.max_concurrency must be at least 1")
	}
	if cfg.Polygon.MaxPages < 1 {
		return fmt.Errorf("config: polygon.max_pages must be at least 1")
	}
	if cfg.Polygon.RequestsPerMin < 0 {
		return fmt.Errorf("config: polygon.requests_per_min cannot be negative")
	}
	switch strings.ToLower(cfg.Output.Format) {
	case "csv", "json", "parquet":
	default:
		return fmt.Errorf("config: unsupported output.format %q", cfg.Output.Format)
	}
	return nil
}
