package api

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"reddot-watch/newswire/internal/models"
)

// BackgroundRefresher revalidates the news cache outside the request path.
// At most one background refresh runs at a time.
type BackgroundRefresher struct {
	news NewsService
	busy atomic.Bool
	wg   conc.WaitGroup
}

// NewBackgroundRefresher creates a refresher for news.
func NewBackgroundRefresher(news NewsService) *BackgroundRefresher {
	return &BackgroundRefresher{news: news}
}

// Revalidate starts a refresh detached from ctx's cancellation. It returns
// false if one is already running.
func (b *BackgroundRefresher) Revalidate(ctx context.Context) bool {
	if !b.busy.CompareAndSwap(false, true) {
		return false
	}

	detached := context.WithoutCancel(ctx)
	b.wg.Go(func() {
		defer b.busy.Store(false)
		result := b.news.Refresh(detached, b.StoreEnriched(detached))
		log.Debug().
			Str("run_id", result.RunID).
			Int("items", len(result.Items)).
			Msg("Background refresh finished")
	})
	return true
}

// StoreEnriched returns an enrichment callback that writes found images
// back into the cache.
func (b *BackgroundRefresher) StoreEnriched(ctx context.Context) func([]models.NewsItem) {
	detached := context.WithoutCancel(ctx)
	return func(enriched []models.NewsItem) {
		b.news.StoreEnriched(detached, enriched)
	}
}

// Busy reports whether a background refresh is running.
func (b *BackgroundRefresher) Busy() bool {
	return b.busy.Load()
}

// Wait blocks until the running background refresh has finished.
func (b *BackgroundRefresher) Wait() {
	b.wg.Wait()
}
