// Package enrich backfills missing article images from the article pages'
// Open Graph and Twitter Card metadata.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"reddot-watch/newswire/internal/cache"
	"reddot-watch/newswire/internal/metrics"
	"reddot-watch/newswire/internal/models"
)

const (
	// DefaultMaxCandidates caps the lookups of one pass.
	DefaultMaxCandidates = 10
	// DefaultTimeout bounds each article page fetch.
	DefaultTimeout = 2500 * time.Millisecond
)

// PageFetcher fetches an article page in a single attempt.
type PageFetcher interface {
	FetchPreferred(ctx context.Context, target string, timeout time.Duration) (string, error)
}

// Config configures an Enricher.
type Config struct {
	Fetcher       PageFetcher
	Cache         *cache.ImageCache
	Timeout       time.Duration
	MaxCandidates int
	Metrics       *metrics.Metrics
}

// Enricher looks up images for items that have none.
type Enricher struct {
	fetcher       PageFetcher
	cache         *cache.ImageCache
	timeout       time.Duration
	maxCandidates int
	metrics       *metrics.Metrics
}

// New creates an enricher from cfg.
func New(cfg Config) *Enricher {
	e := &Enricher{
		fetcher:       cfg.Fetcher,
		cache:         cfg.Cache,
		timeout:       cfg.Timeout,
		maxCandidates: cfg.MaxCandidates,
		metrics:       cfg.Metrics,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxCandidates <= 0 {
		e.maxCandidates = DefaultMaxCandidates
	}
	return e
}

// Enrich returns a copy of items in which the first items without an image
// have been given one where their page declares it. Cached results younger
// than the cache TTL are reused, negative ones included. All lookups run
// concurrently and a failed lookup only leaves its own item unchanged.
func (e *Enricher) Enrich(ctx context.Context, items []models.NewsItem) []models.NewsItem {
	out := make([]models.NewsItem, len(items))
	copy(out, items)

	candidates := e.candidates(out)
	if len(candidates) == 0 {
		return out
	}

	entries := e.cache.Load(ctx)

	var misses []int
	for _, idx := range candidates {
		hit, ok := e.cache.Lookup(entries, out[idx].URL)
		if !ok {
			misses = append(misses, idx)
			continue
		}
		e.metrics.RecordImageLookup("cache_hit")
		if hit.ImageURL != nil {
			out[idx].ImageURL = *hit.ImageURL
		}
	}

	var mu sync.Mutex
	wg := conc.NewWaitGroup()
	for _, idx := range misses {
		articleURL := out[idx].URL
		wg.Go(func() {
			image, err := e.lookup(ctx, articleURL)
			switch {
			case err != nil:
				e.metrics.RecordImageLookup("error")
				log.Debug().Err(err).Str("url", articleURL).Msg("Image lookup failed")
			case image == "":
				e.metrics.RecordImageLookup("not_found")
			default:
				e.metrics.RecordImageLookup("found")
			}

			mu.Lock()
			defer mu.Unlock()
			entries[articleURL] = models.NewImageCacheEntry(image, e.cache.Now())
			out[idx].ImageURL = image
		})
	}
	wg.Wait()

	e.cache.Save(ctx, entries)

	found := 0
	for _, idx := range candidates {
		if out[idx].HasImage() {
			found++
		}
	}
	log.Debug().
		Int("candidates", len(candidates)).
		Int("fetched", len(misses)).
		Int("found", found).
		Msg("Image enrichment finished")

	return out
}

// candidates returns the indexes of the first items lacking an image.
func (e *Enricher) candidates(items []models.NewsItem) []int {
	var idx []int
	for i, item := range items {
		if len(idx) == e.maxCandidates {
			break
		}
		if !item.HasImage() && item.URL != "" {
			idx = append(idx, i)
		}
	}
	return idx
}

func (e *Enricher) lookup(ctx context.Context, articleURL string) (string, error) {
	body, err := e.fetcher.FetchPreferred(ctx, articleURL, e.timeout)
	if err != nil {
		return "", err
	}
	return MetaImage(body, articleURL), nil
}

// ApplyImages fills images found by an enrichment pass into the displayed
// set, matching items by dedup key. Items that already have an image are
// left alone. A new slice is returned.
func ApplyImages(displayed, enriched []models.NewsItem) []models.NewsItem {
	images := make(map[string]string, len(enriched))
	for _, item := range enriched {
		if item.HasImage() {
			images[item.DedupKey()] = item.ImageURL
		}
	}

	out := make([]models.NewsItem, len(displayed))
	copy(out, displayed)
	for i := range out {
		if out[i].HasImage() {
			continue
		}
		if image, ok := images[out[i].DedupKey()]; ok {
			out[i].ImageURL = image
		}
	}
	return out
}
