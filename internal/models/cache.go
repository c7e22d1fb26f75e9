package models

import "time"

// NewsCacheEntry is the persisted merged result set. UpdatedAt is in
// milliseconds since the Unix epoch.
type NewsCacheEntry struct {
	UpdatedAt int64      `json:"updatedAt"`
	Items     []NewsItem `json:"items"`
}

// Age returns how long ago the entry was written, relative to now.
func (e *NewsCacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.UpdatedAt))
}

// ImageCacheEntry records the outcome of one image lookup for an article.
// A nil ImageURL means the page was checked and no image was found.
type ImageCacheEntry struct {
	ImageURL  *string `json:"imageUrl"`
	Timestamp int64   `json:"timestamp"`
}

// NewImageCacheEntry creates an entry stamped with the given time. An empty
// imageURL is stored as a negative result.
func NewImageCacheEntry(imageURL string, now time.Time) ImageCacheEntry {
	entry := ImageCacheEntry{Timestamp: now.UnixMilli()}
	if imageURL != "" {
		entry.ImageURL = &imageURL
	}
	return entry
}

// Expired reports whether the entry is older than ttl at the given time.
func (e ImageCacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.UnixMilli(e.Timestamp)) >= ttl
}
