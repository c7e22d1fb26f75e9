package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

const maxSettingsFileSize = 1024 * 1024 // 1MB

// ApplySettingsFile overlays a YAML settings file onto cfg. Keys use the same
// names as the command line flags (feed_timeout, proxy, max_enrich, ...).
// NEWSWIRE_* environment variables take precedence over the file, and keys
// listed in explicit (flags given on the command line) are never touched.
func ApplySettingsFile(cfg *Config, path string, explicit map[string]bool) error {
	k := koanf.New(".")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxSettingsFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	if len(content) > maxSettingsFileSize {
		return fmt.Errorf("settings file %s exceeds %d bytes", path, maxSettingsFileSize)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	// NEWSWIRE_FEED_TIMEOUT -> feed_timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key == "config" {
			return ""
		}
		return key
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	set := func(key string) bool {
		return k.Exists(key) && !explicit[key]
	}

	if set("sources") {
		cfg.SourcesPath = k.String("sources")
	}
	if set("db") {
		cfg.DBPath = k.String("db")
	}
	if set("host") {
		cfg.ServerHost = k.String("host")
	}
	if set("port") {
		cfg.ServerPort = k.Int("port")
	}
	if set("api_key") {
		cfg.APIKey = k.String("api_key")
	}
	if set("proxy") {
		cfg.ProxyOverride = k.String("proxy")
	}
	if set("proxy_rate_limit") {
		cfg.ProxyRateLimit = k.Float64("proxy_rate_limit")
	}
	if set("max_enrich") {
		cfg.MaxEnrich = k.Int("max_enrich")
	}
	if set("interval") {
		cfg.Interval = time.Duration(k.Int("interval")) * time.Minute
	}
	if set("log_level") {
		if level, err := zerolog.ParseLevel(k.String("log_level")); err == nil {
			cfg.LogLevel = level
		}
	}

	durations := map[string]*time.Duration{
		"feed_timeout":    &cfg.FeedTimeout,
		"image_timeout":   &cfg.ImageTimeout,
		"retry_backoff":   &cfg.RetryBackoff,
		"cache_ttl":       &cfg.CacheTTL,
		"image_cache_ttl": &cfg.ImageCacheTTL,
	}
	for key, target := range durations {
		if !set(key) {
			continue
		}
		d, err := parseDuration(k.String(key))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*target = d
	}

	return cfg.Validate()
}

// parseDuration accepts Go duration strings or bare milliseconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
