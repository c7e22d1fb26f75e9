package process

import (
	"sort"

	"reddot-watch/newswire/internal/models"
)

// Merge removes duplicate articles and orders the rest newest first. For
// duplicate URLs the first item seen wins; items with equal publish times
// keep their input order. The input slice is not modified.
func Merge(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]struct{}, len(items))
	merged := make([]models.NewsItem, 0, len(items))

	for _, item := range items {
		key := item.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	return merged
}
