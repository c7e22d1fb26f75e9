// Package pagination pages through the merged news list with opaque cursors.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"reddot-watch/newswire/internal/models"
)

const cursorSeparator = ","
const timeFormat = time.RFC3339Nano // Use nano for precision

// Position identifies the last item of a delivered page.
type Position struct {
	PublishedAt time.Time
	URL         string
}

// EncodeCursor creates an opaque cursor string from a position.
func EncodeCursor(pos Position) string {
	key := pos.PublishedAt.UTC().Format(timeFormat) + cursorSeparator + pos.URL
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor parses the opaque cursor string back into a position.
func DecodeCursor(encodedCursor string) (Position, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(encodedCursor)
	if err != nil {
		return Position{}, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	// The timestamp never contains the separator, the URL may
	parts := strings.SplitN(string(decodedBytes), cursorSeparator, 2)
	if len(parts) != 2 || parts[1] == "" {
		return Position{}, fmt.Errorf("invalid cursor format")
	}

	ts, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Position{}, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return Position{PublishedAt: ts.UTC(), URL: parts[1]}, nil
}

// Page returns up to limit items following after in a list sorted newest
// first, plus the position to continue from when more items remain. When
// the cursor item is no longer in the list, paging resumes at the first
// item older than the cursor.
func Page(items []models.NewsItem, limit int, after *Position) ([]models.NewsItem, *Position) {
	start := 0
	if after != nil {
		start = resumeIndex(items, *after)
	}
	if start >= len(items) {
		return []models.NewsItem{}, nil
	}

	end := start + limit
	if end >= len(items) {
		return items[start:], nil
	}

	last := items[end-1]
	return items[start:end], &Position{PublishedAt: last.PublishedAt, URL: last.URL}
}

func resumeIndex(items []models.NewsItem, after Position) int {
	key := models.DedupKey(after.URL)
	for i, item := range items {
		if item.DedupKey() == key && item.PublishedAt.Equal(after.PublishedAt) {
			return i + 1
		}
	}
	for i, item := range items {
		if item.PublishedAt.Before(after.PublishedAt) {
			return i
		}
	}
	return len(items)
}
