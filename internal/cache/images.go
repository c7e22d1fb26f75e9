package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/storage"
)

// ImageCacheKey is the store key of the article image lookups.
const ImageCacheKey = "ai_news_og_cache_v1"

// ImageEntries maps article URLs to lookup results.
type ImageEntries map[string]models.ImageCacheEntry

// ImageCache stores image lookup results per article URL, including
// negative results. Entries older than the TTL count as absent.
type ImageCache struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewImageCache creates an image cache over store.
func NewImageCache(store storage.Store, ttl time.Duration) *ImageCache {
	return &ImageCache{store: store, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source.
func (c *ImageCache) SetClock(now func() time.Time) {
	c.now = now
}

// Now returns the cache's current time, for stamping new entries.
func (c *ImageCache) Now() time.Time {
	return c.now()
}

// Load returns all stored entries. The map is never nil.
func (c *ImageCache) Load(ctx context.Context) ImageEntries {
	entries := ImageEntries{}
	if err := storage.GetJSON(ctx, c.store, ImageCacheKey, &entries); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Debug().Err(err).Msg("Ignoring unreadable image cache")
		}
		return ImageEntries{}
	}
	if entries == nil {
		return ImageEntries{}
	}
	return entries
}

// Lookup returns the entry for articleURL if one exists and has not expired.
func (c *ImageCache) Lookup(entries ImageEntries, articleURL string) (models.ImageCacheEntry, bool) {
	entry, ok := entries[articleURL]
	if !ok || entry.Expired(c.now(), c.ttl) {
		return models.ImageCacheEntry{}, false
	}
	return entry, true
}

// Save prunes expired entries and persists the rest.
func (c *ImageCache) Save(ctx context.Context, entries ImageEntries) {
	pruned := c.Prune(entries)
	if err := storage.SetJSON(ctx, c.store, ImageCacheKey, entries); err != nil {
		log.Warn().Err(err).Int("entries", len(entries)).Msg("Failed to persist image cache")
		return
	}
	if pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("Pruned expired image cache entries")
	}
}

// Prune deletes expired entries in place and returns how many were removed.
func (c *ImageCache) Prune(entries ImageEntries) int {
	now := c.now()
	pruned := 0
	for key, entry := range entries {
		if entry.Expired(now, c.ttl) {
			delete(entries, key)
			pruned++
		}
	}
	return pruned
}
