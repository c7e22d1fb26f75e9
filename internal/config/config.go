package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	SourcesPath  string
	DBPath       string
	SettingsPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Fetch settings
	FeedTimeout    time.Duration
	ImageTimeout   time.Duration
	RetryBackoff   time.Duration
	ProxyOverride  string
	ProxyRateLimit float64

	// Cache settings
	CacheTTL      time.Duration
	ImageCacheTTL time.Duration
	MaxEnrich     int

	// Refresh settings
	Interval time.Duration

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)
	logLevel = GetEnvLogLevel(EnvPrefix+"LOG_LEVEL", logLevel)

	return &Config{
		SourcesPath:    DefaultSourcesPath,
		DBPath:         DefaultDBPath,
		ServerHost:     DefaultServerHost,
		ServerPort:     DefaultServerPort,
		APIKey:         GetEnvString(EnvPrefix+"API_KEY", ""),
		FeedTimeout:    DefaultFeedTimeout,
		ImageTimeout:   DefaultImageTimeout,
		RetryBackoff:   DefaultRetryBackoff,
		ProxyOverride:  GetEnvString(EnvPrefix+"PROXY", ""),
		ProxyRateLimit: DefaultProxyRateLimit,
		CacheTTL:       DefaultCacheTTL,
		ImageCacheTTL:  DefaultImageCacheTTL,
		MaxEnrich:      DefaultMaxEnrich,
		Interval:       time.Duration(DefaultInterval) * time.Minute,
		LogLevel:       logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("feed timeout must be positive, got %s", c.FeedTimeout)
	}
	if c.ImageTimeout <= 0 {
		return fmt.Errorf("image timeout must be positive, got %s", c.ImageTimeout)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.CacheTTL <= 0 || c.ImageCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.MaxEnrich < 0 {
		return fmt.Errorf("max enrich cannot be negative")
	}
	if c.ProxyRateLimit < 0 {
		return fmt.Errorf("proxy rate limit cannot be negative")
	}
	return nil
}
