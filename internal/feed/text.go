package feed

import (
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"

	"reddot-watch/newswire/internal/models"
)

// MaxSnippetLength is the snippet limit in characters.
const MaxSnippetLength = 300

var stripTagsPolicy = bluemonday.StripTagsPolicy()

// Snippet reduces an HTML fragment to collapsed plain text of at most
// MaxSnippetLength characters.
func Snippet(rawHTML string) string {
	// The policy re-escapes text nodes, so entities are decoded afterwards
	text := html.UnescapeString(stripTagsPolicy.Sanitize(rawHTML))
	text = strings.Join(strings.Fields(text), " ")
	return truncate(text, MaxSnippetLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ")
}

// parseDate accepts any common feed date layout. Missing or invalid dates
// become the epoch.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Epoch
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return models.Epoch
	}
	return t.UTC()
}
