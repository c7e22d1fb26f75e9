package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultSourcesPath = "" // Empty means use the built-in source list
	DefaultDBPath      = "./newswire.db"

	RemoteSourcesURL = "https://raw.githubusercontent.com/reddot-watch/newswire-sources/main/sources.csv"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultInterval = 15 // Minutes between refresh runs, 0 for one-shot

	DefaultFeedTimeout    = 10 * time.Second
	DefaultImageTimeout   = 2500 * time.Millisecond
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultCacheTTL       = 5 * time.Minute
	DefaultImageCacheTTL  = 24 * time.Hour
	DefaultMaxEnrich      = 10
	DefaultProxyRateLimit = 0 // Requests per second across all proxies, 0 means unlimited

	DefaultLogLevel = "info"

	// EnvPrefix prefixes every environment variable read by the application.
	EnvPrefix = "NEWSWIRE_"
)
