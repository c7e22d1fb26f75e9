// Package cache persists the merged news set and the image lookup results in
// the local key/value store. Both caches are best effort: write failures are
// logged and swallowed, unreadable values read as absent.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/storage"
)

// NewsCacheKey is the store key of the merged news set.
const NewsCacheKey = "ai_news_cache_v1"

// NewsCache stores the last merged result set with its write time.
type NewsCache struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewNewsCache creates a news cache over store. Entries younger than ttl are
// reported fresh.
func NewNewsCache(store storage.Store, ttl time.Duration) *NewsCache {
	return &NewsCache{store: store, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source.
func (c *NewsCache) SetClock(now func() time.Time) {
	c.now = now
}

// TTL returns the freshness window.
func (c *NewsCache) TTL() time.Duration {
	return c.ttl
}

// Save stores items stamped with the current time.
func (c *NewsCache) Save(ctx context.Context, items []models.NewsItem) {
	if items == nil {
		items = []models.NewsItem{}
	}
	entry := models.NewsCacheEntry{
		UpdatedAt: c.now().UnixMilli(),
		Items:     items,
	}
	if err := storage.SetJSON(ctx, c.store, NewsCacheKey, entry); err != nil {
		log.Warn().Err(err).Int("items", len(items)).Msg("Failed to persist news cache")
	}
}

// Load returns the stored entry, stale or not, or nil when nothing usable is
// stored.
func (c *NewsCache) Load(ctx context.Context) *models.NewsCacheEntry {
	var entry models.NewsCacheEntry
	if err := storage.GetJSON(ctx, c.store, NewsCacheKey, &entry); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Debug().Err(err).Msg("Ignoring unreadable news cache")
		}
		return nil
	}
	if entry.Items == nil {
		entry.Items = []models.NewsItem{}
	}
	return &entry
}

// Update rewrites the stored items with fn and keeps the original write
// time. It does nothing when no entry is stored.
func (c *NewsCache) Update(ctx context.Context, fn func([]models.NewsItem) []models.NewsItem) {
	entry := c.Load(ctx)
	if entry == nil {
		return
	}
	entry.Items = fn(entry.Items)
	if err := storage.SetJSON(ctx, c.store, NewsCacheKey, entry); err != nil {
		log.Warn().Err(err).Msg("Failed to update news cache")
	}
}

// IsFresh reports whether entry was written less than the TTL ago.
func (c *NewsCache) IsFresh(entry *models.NewsCacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.Age(c.now()) < c.ttl
}
