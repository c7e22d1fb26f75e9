// Package process aggregates the configured feed sources into one merged,
// cached news list and schedules image enrichment for it.
package process

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"reddot-watch/newswire/internal/cache"
	"reddot-watch/newswire/internal/enrich"
	"reddot-watch/newswire/internal/feed"
	"reddot-watch/newswire/internal/metrics"
	"reddot-watch/newswire/internal/models"
)

// ErrNoItems marks a source whose document was fetched but yielded no items.
var ErrNoItems = errors.New("feed yielded no items")

const defaultFeedTimeout = 10 * time.Second

// SourceFetcher retrieves a feed document.
type SourceFetcher interface {
	Fetch(ctx context.Context, target string, timeout time.Duration) (string, error)
}

// Config configures a NewsProcessor.
type Config struct {
	Sources     []models.FeedSource
	Fetcher     SourceFetcher
	Cache       *cache.NewsCache
	Enricher    *enrich.Enricher // Optional
	FeedTimeout time.Duration
	Metrics     *metrics.Metrics
}

// Result is the outcome of one aggregation run.
type Result struct {
	RunID     string
	Items     []models.NewsItem
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// NewsProcessor fetches all sources in parallel and merges their items.
type NewsProcessor struct {
	sources     []models.FeedSource
	fetcher     SourceFetcher
	cache       *cache.NewsCache
	enricher    *enrich.Enricher
	dispatcher  *enrich.Dispatcher
	feedTimeout time.Duration
	metrics     *metrics.Metrics

	succeeded atomic.Int64
	failed    atomic.Int64
	runs      atomic.Int64
}

type sourceResult struct {
	index int
	items []models.NewsItem
	err   error
}

// NewNewsProcessor creates a processor from cfg.
func NewNewsProcessor(cfg Config) (*NewsProcessor, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("news cache cannot be nil")
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no feed sources configured")
	}

	p := &NewsProcessor{
		sources:     cfg.Sources,
		fetcher:     cfg.Fetcher,
		cache:       cfg.Cache,
		enricher:    cfg.Enricher,
		feedTimeout: cfg.FeedTimeout,
		metrics:     cfg.Metrics,
	}
	if p.feedTimeout <= 0 {
		p.feedTimeout = defaultFeedTimeout
	}
	if p.enricher != nil {
		p.dispatcher = enrich.NewDispatcher(p.enricher)
	}
	return p, nil
}

// Sources returns the configured feed sources.
func (p *NewsProcessor) Sources() []models.FeedSource {
	return p.sources
}

// FetchAllNews fetches and parses every source concurrently, merges the
// items and stores them in the news cache. A failing source only reduces
// the result. When every source fails the result is empty and the cache is
// left untouched.
func (p *NewsProcessor) FetchAllNews(ctx context.Context) Result {
	runID := xid.New().String()
	start := time.Now()

	log.Info().
		Str("run_id", runID).
		Int("sources", len(p.sources)).
		Msg("Fetching news")

	results := pool.NewWithResults[sourceResult]()
	for i, src := range p.sources {
		results.Go(func() sourceResult {
			items, err := p.fetchSource(ctx, src)
			return sourceResult{index: i, items: items, err: err}
		})
	}
	collected := results.Wait()

	// Completion order is arbitrary; concatenate in configured order
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].index < collected[j].index
	})

	var (
		all       []models.NewsItem
		succeeded int
		failed    int
	)
	for _, r := range collected {
		src := p.sources[r.index]
		if r.err != nil {
			failed++
			log.Warn().
				Err(r.err).
				Str("run_id", runID).
				Str("source", src.Name).
				Str("url", src.URL).
				Msg("Source failed")
			continue
		}
		succeeded++
		all = append(all, r.items...)
	}

	merged := Merge(all)
	if len(merged) > 0 {
		p.cache.Save(ctx, merged)
	}

	duration := time.Since(start)
	p.succeeded.Store(int64(succeeded))
	p.failed.Store(int64(failed))
	p.runs.Add(1)
	p.metrics.RecordRefresh(duration, len(merged))

	log.Info().
		Str("run_id", runID).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("items", len(merged)).
		Dur("duration", duration).
		Msg("News fetched")

	return Result{
		RunID:     runID,
		Items:     merged,
		Succeeded: succeeded,
		Failed:    failed,
		Duration:  duration,
	}
}

func (p *NewsProcessor) fetchSource(ctx context.Context, src models.FeedSource) (items []models.NewsItem, err error) {
	defer func() { p.metrics.RecordSourceFetch(src.Name, err) }()

	body, err := p.fetcher.Fetch(ctx, src.URL, p.feedTimeout)
	if err != nil {
		return nil, err
	}

	items = feed.Parse(body, src)
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	log.Debug().
		Str("source", src.Name).
		Int("items", len(items)).
		Msg("Source fetched")
	return items, nil
}

// Refresh runs FetchAllNews and then starts a background image enrichment
// pass over the result. onEnriched receives the enriched list once the pass
// completes; the call itself does not wait for it.
func (p *NewsProcessor) Refresh(ctx context.Context, onEnriched func([]models.NewsItem)) Result {
	result := p.FetchAllNews(ctx)
	if p.dispatcher != nil && len(result.Items) > 0 {
		p.dispatcher.Dispatch(ctx, result.Items, onEnriched)
	}
	return result
}

// GetCachedNews returns the cached news entry, which may be stale, or nil.
func (p *NewsProcessor) GetCachedNews(ctx context.Context) *models.NewsCacheEntry {
	return p.cache.Load(ctx)
}

// IsFresh reports whether entry is within the cache TTL.
func (p *NewsProcessor) IsFresh(entry *models.NewsCacheEntry) bool {
	return p.cache.IsFresh(entry)
}

// IsCacheFresh reports whether the cached entry is within its TTL.
func (p *NewsProcessor) IsCacheFresh(ctx context.Context) bool {
	return p.cache.IsFresh(p.cache.Load(ctx))
}

// EnrichImages backfills missing images synchronously. Without an enricher
// the items are returned unchanged.
func (p *NewsProcessor) EnrichImages(ctx context.Context, items []models.NewsItem) []models.NewsItem {
	if p.enricher == nil {
		out := make([]models.NewsItem, len(items))
		copy(out, items)
		return out
	}
	return p.enricher.Enrich(ctx, items)
}

// StoreEnriched merges images found by enrichment into the cached entry
// without changing its timestamp.
func (p *NewsProcessor) StoreEnriched(ctx context.Context, enriched []models.NewsItem) {
	p.cache.Update(ctx, func(items []models.NewsItem) []models.NewsItem {
		return enrich.ApplyImages(items, enriched)
	})
}

// Wait blocks until background enrichment has finished.
func (p *NewsProcessor) Wait() {
	if p.dispatcher != nil {
		p.dispatcher.Wait()
	}
}

// Stats returns the source counts of the last run and the number of runs.
func (p *NewsProcessor) Stats() (succeeded, failed, runs int64) {
	succeeded = p.succeeded.Load()
	failed = p.failed.Load()
	runs = p.runs.Load()
	return
}
