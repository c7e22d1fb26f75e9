package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/storage"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func sampleItems() []models.NewsItem {
	return []models.NewsItem{
		{
			Source:      "Example",
			SourceURL:   "https://example.com",
			Title:       "Post",
			URL:         "https://example.com/post",
			PublishedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			Snippet:     "text",
		},
	}
}

func TestNewsCache_FreshnessBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := NewNewsCache(storage.NewMemoryStore(), 5*time.Minute)
	c.SetClock(clock.Now)

	c.Save(ctx, sampleItems())

	clock.Advance(4*time.Minute + 59*time.Second)
	entry := c.Load(ctx)
	require.NotNil(t, entry)
	assert.True(t, c.IsFresh(entry))

	clock.Advance(2 * time.Second) // T+5m1s
	entry = c.Load(ctx)
	require.NotNil(t, entry, "stale entries are still returned")
	assert.False(t, c.IsFresh(entry))
	assert.Equal(t, sampleItems(), entry.Items)
}

func TestNewsCache_Absent(t *testing.T) {
	c := NewNewsCache(storage.NewMemoryStore(), 5*time.Minute)
	entry := c.Load(context.Background())
	assert.Nil(t, entry)
	assert.False(t, c.IsFresh(entry))
}

func TestNewsCache_CorruptReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, NewsCacheKey, "{not json"))

	c := NewNewsCache(store, 5*time.Minute)
	assert.Nil(t, c.Load(ctx))
}

func TestNewsCache_PersistedLayout(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := storage.NewMemoryStore()
	c := NewNewsCache(store, 5*time.Minute)
	c.SetClock(clock.Now)

	c.Save(ctx, sampleItems())

	raw, err := store.Get(ctx, NewsCacheKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"updatedAt": 1740830400000,
		"items": [{
			"source": "Example",
			"sourceUrl": "https://example.com",
			"title": "Post",
			"url": "https://example.com/post",
			"publishedAt": "2025-02-01T00:00:00Z",
			"snippet": "text"
		}]
	}`, raw)
}

func TestNewsCache_QuotaSwallowed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	store.MaxValueSize = 10
	c := NewNewsCache(store, 5*time.Minute)

	assert.NotPanics(t, func() { c.Save(ctx, sampleItems()) })
	assert.Nil(t, c.Load(ctx))
}

func TestImageCache_LookupAndPrune(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := storage.NewMemoryStore()
	c := NewImageCache(store, 24*time.Hour)
	c.SetClock(clock.Now)

	entries := c.Load(ctx)
	require.NotNil(t, entries)
	entries["https://example.com/old"] = models.NewImageCacheEntry("https://cdn.example.com/old.jpg", clock.Now())

	clock.Advance(23 * time.Hour)
	entries["https://example.com/negative"] = models.NewImageCacheEntry("", clock.Now())

	hit, ok := c.Lookup(entries, "https://example.com/old")
	require.True(t, ok)
	require.NotNil(t, hit.ImageURL)
	assert.Equal(t, "https://cdn.example.com/old.jpg", *hit.ImageURL)

	clock.Advance(time.Hour)
	_, ok = c.Lookup(entries, "https://example.com/old")
	assert.False(t, ok, "24h old entries are expired")

	neg, ok := c.Lookup(entries, "https://example.com/negative")
	require.True(t, ok)
	assert.Nil(t, neg.ImageURL)

	c.Save(ctx, entries)

	reloaded := c.Load(ctx)
	assert.Len(t, reloaded, 1)
	assert.Contains(t, reloaded, "https://example.com/negative")

	raw, err := store.Get(ctx, ImageCacheKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"imageUrl":null`)
}

func TestNewsCache_UpdateKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := NewNewsCache(storage.NewMemoryStore(), 5*time.Minute)
	c.SetClock(clock.Now)

	c.Update(ctx, func(items []models.NewsItem) []models.NewsItem {
		t.Fatal("update called without a stored entry")
		return items
	})

	c.Save(ctx, sampleItems())
	written := clock.Now().UnixMilli()
	clock.Advance(time.Minute)

	c.Update(ctx, func(items []models.NewsItem) []models.NewsItem {
		items[0].ImageURL = "https://cdn.example.com/p.jpg"
		return items
	})

	entry := c.Load(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, written, entry.UpdatedAt)
	assert.Equal(t, "https://cdn.example.com/p.jpg", entry.Items[0].ImageURL)
}
