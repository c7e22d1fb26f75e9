package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/newswire/internal/cache"
	"reddot-watch/newswire/internal/enrich"
	"reddot-watch/newswire/internal/models"
	"reddot-watch/newswire/internal/storage"
)

type stubFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	delays map[string]time.Duration
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: map[string]string{},
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
	}
}

func (s *stubFetcher) Fetch(_ context.Context, target string, _ time.Duration) (string, error) {
	s.mu.Lock()
	delay := s.delays[target]
	body, err := s.bodies[target], s.errs[target]
	s.mu.Unlock()

	time.Sleep(delay)
	if err != nil {
		return "", err
	}
	return body, nil
}

func (s *stubFetcher) FetchPreferred(_ context.Context, target string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[target], s.errs[target]
}

func rssDoc(items ...string) string {
	doc := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`
	for _, it := range items {
		doc += it
	}
	return doc + `</channel></rss>`
}

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`, title, link, pubDate)
}

func sources(n int) []models.FeedSource {
	out := make([]models.FeedSource, n)
	for i := range out {
		out[i] = models.FeedSource{
			Name: fmt.Sprintf("Source %d", i),
			URL:  fmt.Sprintf("https://feeds.test/%d.xml", i),
			Site: fmt.Sprintf("https://site%d.test", i),
		}
	}
	return out
}

func newProcessor(t *testing.T, srcs []models.FeedSource, f *stubFetcher, withEnricher bool) (*NewsProcessor, *cache.NewsCache) {
	t.Helper()
	store := storage.NewMemoryStore()
	newsCache := cache.NewNewsCache(store, 5*time.Minute)

	cfg := Config{Sources: srcs, Fetcher: f, Cache: newsCache}
	if withEnricher {
		cfg.Enricher = enrich.New(enrich.Config{
			Fetcher: f,
			Cache:   cache.NewImageCache(store, 24*time.Hour),
		})
	}

	p, err := NewNewsProcessor(cfg)
	require.NoError(t, err)
	return p, newsCache
}

func TestNewNewsProcessor_Validation(t *testing.T) {
	newsCache := cache.NewNewsCache(storage.NewMemoryStore(), time.Minute)

	_, err := NewNewsProcessor(Config{Sources: sources(1), Cache: newsCache})
	assert.Error(t, err)

	_, err = NewNewsProcessor(Config{Sources: sources(1), Fetcher: newStubFetcher()})
	assert.Error(t, err)

	_, err = NewNewsProcessor(Config{Fetcher: newStubFetcher(), Cache: newsCache})
	assert.Error(t, err)
}

func TestFetchAllNews_PartialFailure(t *testing.T) {
	srcs := sources(3)
	f := newStubFetcher()
	f.bodies[srcs[0].URL] = rssDoc(
		rssItem("Old", "https://a.test/old", "Wed, 01 Jan 2025 00:00:00 GMT"),
		rssItem("New", "https://a.test/new", "Sat, 15 Feb 2025 00:00:00 GMT"),
	)
	f.errs[srcs[1].URL] = errors.New("all proxies failed")
	f.bodies[srcs[2].URL] = "<html>not a feed</html>"

	p, newsCache := newProcessor(t, srcs, f, false)
	result := p.FetchAllNews(context.Background())

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "New", result.Items[0].Title)
	assert.Equal(t, "Source 0", result.Items[0].Source)
	assert.Equal(t, "https://site0.test", result.Items[0].SourceURL)

	cached := newsCache.Load(context.Background())
	require.NotNil(t, cached)
	assert.Equal(t, result.Items, cached.Items)

	succeeded, failed, runs := p.Stats()
	assert.Equal(t, int64(1), succeeded)
	assert.Equal(t, int64(2), failed)
	assert.Equal(t, int64(1), runs)
}

func TestFetchAllNews_TotalFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	srcs := sources(2)
	f := newStubFetcher()
	f.errs[srcs[0].URL] = errors.New("timeout")
	f.errs[srcs[1].URL] = errors.New("timeout")

	p, newsCache := newProcessor(t, srcs, f, false)
	previous := []models.NewsItem{{Source: "x", Title: "kept", URL: "https://a.test/kept"}}
	newsCache.Save(ctx, previous)

	result := p.FetchAllNews(ctx)

	require.NotNil(t, result.Items)
	assert.Empty(t, result.Items)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "kept", newsCache.Load(ctx).Items[0].Title)
}

func TestFetchAllNews_DuplicatesResolvedInSourceOrder(t *testing.T) {
	srcs := sources(2)
	f := newStubFetcher()
	date := "Sat, 15 Feb 2025 00:00:00 GMT"
	f.bodies[srcs[0].URL] = rssDoc(rssItem("From first", "https://shared.test/story/", date))
	f.bodies[srcs[1].URL] = rssDoc(rssItem("From second", "https://SHARED.test/story", date))
	f.delays[srcs[0].URL] = 50 * time.Millisecond

	p, _ := newProcessor(t, srcs, f, false)
	result := p.FetchAllNews(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, "From first", result.Items[0].Title, "slower first source still wins")
}

func TestRefresh_DispatchesEnrichment(t *testing.T) {
	ctx := context.Background()
	srcs := sources(1)
	f := newStubFetcher()
	f.bodies[srcs[0].URL] = rssDoc(rssItem("Story", "https://a.test/story", "Sat, 15 Feb 2025 00:00:00 GMT"))
	f.bodies["https://a.test/story"] = `<html><head><meta property="og:image" content="https://cdn.a.test/s.jpg"></head></html>`

	p, newsCache := newProcessor(t, srcs, f, true)

	enriched := make(chan []models.NewsItem, 1)
	result := p.Refresh(ctx, func(items []models.NewsItem) {
		p.StoreEnriched(ctx, items)
		enriched <- items
	})
	require.Len(t, result.Items, 1)
	assert.Empty(t, result.Items[0].ImageURL)

	p.Wait()
	items := <-enriched
	assert.Equal(t, "https://cdn.a.test/s.jpg", items[0].ImageURL)
	assert.Equal(t, "https://cdn.a.test/s.jpg", newsCache.Load(ctx).Items[0].ImageURL)
}

func TestEnrichImages_WithoutEnricher(t *testing.T) {
	p, _ := newProcessor(t, sources(1), newStubFetcher(), false)
	items := []models.NewsItem{{Title: "x", URL: "https://a.test/x"}}
	assert.Equal(t, items, p.EnrichImages(context.Background(), items))
}

func TestCacheAccessors(t *testing.T) {
	ctx := context.Background()
	p, newsCache := newProcessor(t, sources(1), newStubFetcher(), false)

	assert.Nil(t, p.GetCachedNews(ctx))
	assert.False(t, p.IsCacheFresh(ctx))

	newsCache.Save(ctx, []models.NewsItem{{Title: "x", URL: "https://a.test/x"}})
	assert.NotNil(t, p.GetCachedNews(ctx))
	assert.True(t, p.IsCacheFresh(ctx))
}
