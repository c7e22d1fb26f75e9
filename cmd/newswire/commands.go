package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/config"
	"reddot-watch/newswire/internal/database"
	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/server"
)

type fetchOptions struct {
	JSON   bool
	Enrich bool
	Reset  bool
}

// runFetch performs one refresh and prints the merged list. When every
// source fails it falls back to the cached list.
func runFetch(cfg *config.Config, opts fetchOptions) error {
	if opts.Reset {
		if err := database.DeleteDB(cfg.DBPath); err != nil {
			log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to delete existing database")
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	result := p.processor.FetchAllNews(ctx)
	items := result.Items

	if len(items) == 0 {
		entry := p.processor.GetCachedNews(ctx)
		if entry == nil || len(entry.Items) == 0 {
			return errors.New("no news available: every source failed and nothing is cached")
		}
		log.Warn().
			Time("updated_at", time.UnixMilli(entry.UpdatedAt)).
			Msg("All sources failed, showing cached news")
		items = entry.Items
	}

	if opts.Enrich {
		items = p.processor.EnrichImages(ctx, items)
		p.processor.StoreEnriched(ctx, items)
	}

	if opts.JSON {
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	printItems(items)
	return nil
}

func printItems(items []models.NewsItem) {
	for _, item := range items {
		date := "          "
		if !item.PublishedAt.Equal(models.Epoch) {
			date = item.PublishedAt.Format("2006-01-02")
		}
		fmt.Printf("%s  %-20.20s  %s\n", date, item.Source, item.Title)
		fmt.Printf("            %s\n", item.URL)
		if item.ImageURL != "" {
			fmt.Printf("            image: %s\n", item.ImageURL)
		}
	}
	fmt.Printf("\n%d items\n", len(items))
}

// runStart refreshes the news cache either once or periodically based on configuration.
func runStart(cfg *config.Config) error {
	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	runRefreshCycle(ctx, p)

	if cfg.Interval <= 0 {
		log.Info().Msg("One-shot refresh completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.Interval).
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next refresh cycle")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled refresh cycle")
			runRefreshCycle(ctx, p)

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next refresh cycle")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic refresh")
			return nil
		}
	}
}

// runRefreshCycle fetches all sources and enriches images in the background.
func runRefreshCycle(ctx context.Context, p *pipeline) {
	result := p.processor.Refresh(ctx, func(enriched []models.NewsItem) {
		p.processor.StoreEnriched(context.WithoutCancel(ctx), enriched)
	})

	succeeded, failed, runs := p.processor.Stats()
	log.Info().
		Str("run_id", result.RunID).
		Int64("succeeded", succeeded).
		Int64("failed", failed).
		Int64("runs", runs).
		Int("items", len(result.Items)).
		Msg("Refresh stats")
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	log.Debug().Msg("Starting server with debug logging enabled")

	p, err := newPipeline(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	return server.RunServer(server.Options{
		Processor: p.processor,
		Gatherer:  p.registry,
		APIKey:    cfg.APIKey,
		Logger:    log.Logger,
	}, cfg.ListenAddr())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-shutdown:
			log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(shutdown)
	}()

	return ctx, cancel
}
