package models

import (
	"strings"
	"time"
)

// NewsItem is the normalized unit produced by the feed parser
type NewsItem struct {
	Source      string    `json:"source"`
	SourceURL   string    `json:"sourceUrl"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Snippet     string    `json:"snippet,omitempty"`  // Plain text, at most 300 characters
	ImageURL    string    `json:"imageUrl,omitempty"` // Absolute, never protocol-relative
}

// Epoch is the publish time given to items whose date is missing or unparsable.
var Epoch = time.Unix(0, 0).UTC()

// DedupKey returns the comparison key used to detect duplicate articles:
// the URL lowercased with a single trailing slash removed.
func (n NewsItem) DedupKey() string {
	return DedupKey(n.URL)
}

// DedupKey normalizes an article URL into its deduplication key.
func DedupKey(rawURL string) string {
	return strings.TrimSuffix(strings.ToLower(rawURL), "/")
}

// HasImage reports whether the item already carries an image URL.
func (n NewsItem) HasImage() bool {
	return n.ImageURL != ""
}
