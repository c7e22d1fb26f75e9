package pagination

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/newswire/internal/models"
)

func newsList(n int) []models.NewsItem {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	items := make([]models.NewsItem, n)
	for i := range items {
		items[i] = models.NewsItem{
			Title:       fmt.Sprintf("Post %d", i),
			URL:         fmt.Sprintf("https://example.com/posts/%d", i),
			PublishedAt: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return items
}

func TestCursorRoundTrip(t *testing.T) {
	pos := Position{
		PublishedAt: time.Date(2025, 2, 1, 10, 30, 0, 123, time.FixedZone("CET", 3600)),
		URL:         "https://example.com/a,b?c=d",
	}

	decoded, err := DecodeCursor(EncodeCursor(pos))
	require.NoError(t, err)
	assert.True(t, pos.PublishedAt.Equal(decoded.PublishedAt))
	assert.Equal(t, pos.URL, decoded.URL)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, bad := range []string{"%%%", "bm8tc2VwYXJhdG9y", "MjAyNS0wMi0wMVQwMDowMDowMFos", "bm90LWEtdGltZSxodHRwczovL3g="} {
		_, err := DecodeCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestPage_WalksWholeList(t *testing.T) {
	items := newsList(7)

	var seen []string
	var after *Position
	for pages := 0; pages < 10; pages++ {
		page, next := Page(items, 3, after)
		for _, it := range page {
			seen = append(seen, it.URL)
		}
		if next == nil {
			break
		}
		after = next
	}

	require.Len(t, seen, 7)
	assert.Equal(t, items[0].URL, seen[0])
	assert.Equal(t, items[6].URL, seen[6])
}

func TestPage_ExactFit(t *testing.T) {
	page, next := Page(newsList(3), 3, nil)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}

func TestPage_CursorItemGone(t *testing.T) {
	items := newsList(5)
	after := &Position{PublishedAt: items[1].PublishedAt.Add(-time.Minute), URL: "https://example.com/removed"}

	page, _ := Page(items, 10, after)
	require.NotEmpty(t, page)
	assert.Equal(t, items[2].URL, page[0].URL)
}

func TestPage_PastEnd(t *testing.T) {
	items := newsList(2)
	page, next := Page(items, 5, &Position{PublishedAt: items[1].PublishedAt, URL: items[1].URL})
	assert.NotNil(t, page)
	assert.Empty(t, page)
	assert.Nil(t, next)
}
