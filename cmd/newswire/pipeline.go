package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"reddot-watch/newswire/internal/cache"
	"reddot-watch/newswire/internal/config"
	"reddot-watch/newswire/internal/database"
	"reddot-watch/newswire/internal/enrich"
	"reddot-watch/newswire/internal/metrics"
	"reddot-watch/newswire/internal/process"
	"reddot-watch/newswire/internal/proxy"
	"reddot-watch/newswire/internal/sources"
	"reddot-watch/newswire/internal/storage"
)

// pipeline holds the wired components shared by all commands.
type pipeline struct {
	db        *database.DB
	processor *process.NewsProcessor
	registry  *prometheus.Registry
}

func (p *pipeline) Close() {
	p.processor.Wait()
	if err := p.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// newPipeline opens the local store, loads the feed sources and wires the
// fetcher, caches, enricher and processor from cfg.
func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	feedSources, err := sources.NewLoader(config.RemoteSourcesURL).Load(ctx, cfg.SourcesPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load feed sources: %w", err)
	}
	log.Info().Int("sources", len(feedSources)).Msg("Loaded feed sources")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	fetcherCfg := proxy.Config{
		RetryBackoff: cfg.RetryBackoff,
		Metrics:      m,
	}
	if cfg.ProxyRateLimit > 0 {
		fetcherCfg.Limiter = rate.NewLimiter(rate.Limit(cfg.ProxyRateLimit), 1)
	}
	if cfg.ProxyOverride != "" {
		pinned, err := proxy.Resolve(cfg.ProxyOverride)
		if err != nil {
			db.Close()
			return nil, err
		}
		fetcherCfg.Pinned = &pinned
		log.Info().Str("proxy", pinned.Name).Msg("Proxy pinned, fallback disabled")
	}
	fetcher := proxy.NewFetcher(fetcherCfg)

	store := storage.NewSQLiteStore(db)

	var enricher *enrich.Enricher
	if cfg.MaxEnrich > 0 {
		enricher = enrich.New(enrich.Config{
			Fetcher:       fetcher,
			Cache:         cache.NewImageCache(store, cfg.ImageCacheTTL),
			Timeout:       cfg.ImageTimeout,
			MaxCandidates: cfg.MaxEnrich,
			Metrics:       m,
		})
	}

	processor, err := process.NewNewsProcessor(process.Config{
		Sources:     feedSources,
		Fetcher:     fetcher,
		Cache:       cache.NewNewsCache(store, cfg.CacheTTL),
		Enricher:    enricher,
		FeedTimeout: cfg.FeedTimeout,
		Metrics:     m,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize news processor: %w", err)
	}

	return &pipeline{db: db, processor: processor, registry: registry}, nil
}
