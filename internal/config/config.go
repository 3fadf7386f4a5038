// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Chart   ChartConfig   `mapstructure:"chart"`
	Links   LinksConfig   `mapstructure:"links"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the outbound access layer.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	AcceptLanguage string  `mapstructure:"accept_language"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
	PerHostBurst   int     `mapstructure:"per_host_burst"`
}

// ChartConfig governs chart retrieval and extraction.
type ChartConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	DefaultSize int    `mapstructure:"default_size"`
	MaxSize     int    `mapstructure:"max_size"`
}

// LinksConfig governs the link-resolution chain.
type LinksConfig struct {
	ITunesBaseURL      string `mapstructure:"itunes_base_url"`
	ITunesCountry      string `mapstructure:"itunes_country"`
	OdesliBaseURL      string `mapstructure:"odesli_base_url"`
	Platform           string `mapstructure:"platform"`
	SearchBaseURL      string `mapstructure:"search_base_url"`
	StepTimeoutSeconds int    `mapstructure:"step_timeout_seconds"`
}

// CacheConfig sets the orchestrator's TTL windows.
type CacheConfig struct {
	ChartTTLMinutes int `mapstructure:"chart_ttl_minutes"`
	LinkTTLMinutes  int `mapstructure:"link_ttl_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MINERVA")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 8)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; minerva/1.0)")
	v.SetDefault("http.accept_language", "en-US,en;q=0.9")
	v.SetDefault("http.per_host_rps", 2.0)
	v.SetDefault("http.per_host_burst", 1)
	v.SetDefault("chart.base_url", "https://www.billboard.com/charts/hot-100")
	v.SetDefault("chart.default_size", 10)
	v.SetDefault("chart.max_size", 100)
	v.SetDefault("links.itunes_base_url", "https://itunes.apple.com/search")
	v.SetDefault("links.itunes_country", "US")
	v.SetDefault("links.odesli_base_url", "https://api.song.link/v1-alpha.1/links")
	v.SetDefault("links.platform", "spotify")
	v.SetDefault("links.search_base_url", "https://open.spotify.com/search")
	v.SetDefault("links.step_timeout_seconds", 8)
	v.SetDefault("cache.chart_ttl_minutes", 60)
	v.SetDefault("cache.link_ttl_minutes", 360)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Chart.BaseURL == "" {
		return fmt.Errorf("chart.base_url must be set")
	}
	if c.Chart.DefaultSize <= 0 {
		return fmt.Errorf("chart.default_size must be > 0")
	}
	if c.Chart.MaxSize < c.Chart.DefaultSize {
		return fmt.Errorf("chart.max_size must be >= chart.default_size")
	}
	if c.Links.StepTimeoutSeconds <= 0 {
		return fmt.Errorf("links.step_timeout_seconds must be > 0")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// StepTimeout bounds each resolver chain step.
func (c Config) StepTimeout() time.Duration {
	return time.Duration(c.Links.StepTimeoutSeconds) * time.Second
}

// ChartTTL is the chart cache validity window.
func (c Config) ChartTTL() time.Duration {
	return time.Duration(c.Cache.ChartTTLMinutes) * time.Minute
}

// LinkTTL is the link cache validity window.
func (c Config) LinkTTL() time.Duration {
	return time.Duration(c.Cache.LinkTTLMinutes) * time.Minute
}
