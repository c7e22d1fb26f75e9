package models

// FeedSource is a configured feed. Sources are read once at startup and never mutated.
type FeedSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`  // RSS or Atom document
	Site string `json:"site"` // Canonical site root shown next to items
}
