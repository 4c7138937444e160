// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/revendis/catalog-collector/internal/collector"
	"github.com/revendis/catalog-collector/internal/discovery"
	collyfetcher "github.com/revendis/catalog-collector/internal/fetcher/colly"
	"github.com/revendis/catalog-collector/internal/policy/robots"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Collector CollectorConfig `mapstructure:"collector"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIKey          string        `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CollectorConfig governs discovery, fetching and the worker pool.
type CollectorConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxPagesDefault int           `mapstructure:"max_pages_default"`
	Concurrency     int           `mapstructure:"concurrency"`
	MaxSitemapFiles int           `mapstructure:"max_sitemap_files"`
	MaxLandingLinks int           `mapstructure:"max_landing_links"`
	MaxPageBytes    int           `mapstructure:"max_page_bytes"`
	RespectRobots   bool          `mapstructure:"respect_robots"`
	RobotsSitemaps  bool          `mapstructure:"robots_sitemaps"`
	RobotsAgent     string        `mapstructure:"robots_agent"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := collector.DefaultOptions()
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("collector.user_agent", collyfetcher.DefaultUserAgent)
	v.SetDefault("collector.timeout", defaults.Timeout)
	v.SetDefault("collector.max_pages_default", defaults.DefaultMaxPages)
	v.SetDefault("collector.concurrency", defaults.Concurrency)
	v.SetDefault("collector.max_sitemap_files", discovery.DefaultMaxSitemapFiles)
	v.SetDefault("collector.max_landing_links", discovery.DefaultMaxLandingLinks)
	v.SetDefault("collector.max_page_bytes", collyfetcher.DefaultMaxBodySize)
	v.SetDefault("collector.respect_robots", false)
	v.SetDefault("collector.robots_sitemaps", true)
	v.SetDefault("collector.robots_agent", robots.DefaultAgent)
	v.SetDefault("collector.rate_limit_rps", 0)
	v.SetDefault("collector.rate_limit_burst", 1)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Collector.Concurrency <= 0 {
		return fmt.Errorf("collector.concurrency must be > 0")
	}
	if c.Collector.Timeout < time.Second {
		return fmt.Errorf("collector.timeout must be >= 1s")
	}
	if c.Collector.MaxPagesDefault < 1 || c.Collector.MaxPagesDefault > collector.DefaultOptions().MaxPagesLimit {
		return fmt.Errorf("collector.max_pages_default must be between 1 and %d", collector.DefaultOptions().MaxPagesLimit)
	}
	if c.Collector.MaxSitemapFiles <= 0 {
		return fmt.Errorf("collector.max_sitemap_files must be > 0")
	}
	if c.Collector.MaxLandingLinks <= 0 {
		return fmt.Errorf("collector.max_landing_links must be > 0")
	}
	if c.Collector.MaxPageBytes <= 0 {
		return fmt.Errorf("collector.max_page_bytes must be > 0")
	}
	if c.Collector.RateLimitRPS < 0 {
		return fmt.Errorf("collector.rate_limit_rps must be >= 0")
	}
	if c.Collector.RateLimitRPS > 0 && c.Collector.RateLimitBurst <= 0 {
		return fmt.Errorf("collector.rate_limit_burst must be > 0 when rate limiting is enabled")
	}
	if c.Collector.RespectRobots && strings.TrimSpace(c.Collector.RobotsAgent) == "" {
		return fmt.Errorf("collector.robots_agent must be set when robots.txt is respected")
	}
	return nil
}

// CollectorOptions maps the configuration onto collector limits.
func (c Config) CollectorOptions() collector.Options {
	opts := collector.DefaultOptions()
	opts.DefaultMaxPages = c.Collector.MaxPagesDefault
	opts.Timeout = c.Collector.Timeout
	opts.Concurrency = c.Collector.Concurrency
	return opts
}
