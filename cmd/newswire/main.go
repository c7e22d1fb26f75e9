package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/config"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// commonFlags registers the options shared by every command and returns the
// destination of the log level flag.
func commonFlags(fs *flag.FlagSet, cfg *config.Config) *string {
	fs.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSWIRE_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite file holding the local caches (env: NEWSWIRE_DB_PATH)")
	fs.StringVar(&cfg.SourcesPath, "sources", config.GetEnvString("NEWSWIRE_SOURCES", config.DefaultSourcesPath),
		"Path to a name,url,site CSV of feed sources, downloaded if missing; empty for the built-in list (env: NEWSWIRE_SOURCES)")
	fs.StringVar(&cfg.SettingsPath, "config", config.GetEnvString("NEWSWIRE_CONFIG", ""),
		"Optional YAML settings file (env: NEWSWIRE_CONFIG)")
	fs.StringVar(&cfg.ProxyOverride, "proxy", cfg.ProxyOverride,
		"Pin fetching to one proxy: a name (direct, allorigins, corsproxy, codetabs) or a URL template with {url} (env: NEWSWIRE_PROXY)")
	fs.Float64Var(&cfg.ProxyRateLimit, "proxy-rate-limit", config.GetEnvFloat("NEWSWIRE_PROXY_RATE_LIMIT", config.DefaultProxyRateLimit),
		"Maximum proxied requests per second, 0 for unlimited (env: NEWSWIRE_PROXY_RATE_LIMIT)")
	fs.DurationVar(&cfg.FeedTimeout, "feed-timeout", config.GetEnvDuration("NEWSWIRE_FEED_TIMEOUT", config.DefaultFeedTimeout),
		"Timeout of a single feed request (env: NEWSWIRE_FEED_TIMEOUT)")
	fs.DurationVar(&cfg.ImageTimeout, "image-timeout", config.GetEnvDuration("NEWSWIRE_IMAGE_TIMEOUT", config.DefaultImageTimeout),
		"Timeout of a single article page request during image enrichment (env: NEWSWIRE_IMAGE_TIMEOUT)")
	fs.IntVar(&cfg.MaxEnrich, "max-enrich", config.GetEnvInt("NEWSWIRE_MAX_ENRICH", config.DefaultMaxEnrich),
		"Articles looked up per image enrichment pass, 0 disables enrichment (env: NEWSWIRE_MAX_ENRICH)")

	logLevel := new(string)
	fs.StringVar(logLevel, "log-level", config.GetEnvString("NEWSWIRE_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSWIRE_LOG_LEVEL)")
	return logLevel
}

// finishConfig applies the log level and the optional settings file after
// the command line has been parsed. Flags given explicitly win over the file.
func finishConfig(fs *flag.FlagSet, cfg *config.Config, logLevelStr string) error {
	// Handle log level parsing separately since it needs conversion
	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}

	if cfg.SettingsPath != "" {
		explicit := map[string]bool{}
		fs.Visit(func(f *flag.Flag) {
			explicit[strings.ReplaceAll(f.Name, "-", "_")] = true
		})
		if err := config.ApplySettingsFile(cfg, cfg.SettingsPath, explicit); err != nil {
			return err
		}
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)
	return nil
}

func usage() {
	fmt.Println("Usage: newswire [command] [options]")
	fmt.Println("Commands: fetch, start, server")
	fmt.Println("\nFor command-specific options, use: newswire [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	fetchLogLevel := commonFlags(fetchCmd, cfg)
	var fetchOpts fetchOptions
	fetchCmd.BoolVar(&fetchOpts.JSON, "json", false, "Print the merged items as JSON")
	fetchCmd.BoolVar(&fetchOpts.Enrich, "enrich", false, "Look up missing images before printing")
	fetchCmd.BoolVar(&fetchOpts.Reset, "reset", false, "Delete the local cache database before fetching")

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	startLogLevel := commonFlags(startCmd, cfg)
	var intervalMinutes int
	startCmd.IntVar(&intervalMinutes, "interval", config.GetEnvInt("NEWSWIRE_INTERVAL", config.DefaultInterval),
		"Interval in minutes between refresh runs, 0 for one-shot mode (env: NEWSWIRE_INTERVAL)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverLogLevel := commonFlags(serverCmd, cfg)
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("NEWSWIRE_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: NEWSWIRE_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("NEWSWIRE_PORT", config.DefaultServerPort),
		"Port to listen on (env: NEWSWIRE_PORT)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		fetchCmd.Parse(os.Args[2:])
		if err := finishConfig(fetchCmd, cfg, *fetchLogLevel); err != nil {
			log.Error().Err(err).Msg("Invalid configuration")
			os.Exit(1)
		}

		if err := runFetch(cfg, fetchOpts); err != nil {
			log.Error().Err(err).Msg("Fetch failed")
			os.Exit(1)
		}

	case "start":
		startCmd.Parse(os.Args[2:])

		// Convert interval minutes to duration
		cfg.Interval = time.Duration(intervalMinutes) * time.Minute

		if err := finishConfig(startCmd, cfg, *startLogLevel); err != nil {
			log.Error().Err(err).Msg("Invalid configuration")
			os.Exit(1)
		}

		if err := runStart(cfg); err != nil {
			log.Error().Err(err).Msg("Refresh loop failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		if err := finishConfig(serverCmd, cfg, *serverLogLevel); err != nil {
			log.Error().Err(err).Msg("Invalid configuration")
			os.Exit(1)
		}

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println("Available commands: fetch, start, server")
		fmt.Println("\nFor command-specific options, use: newswire [command] -h")
		os.Exit(1)
	}
}
