package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/newswire/internal/models"
)

func TestDispatcher_RejectsOverlappingPasses(t *testing.T) {
	f := newFakeFetcher()
	f.gate = make(chan struct{})
	items := articles(1)
	f.pages[items[0].URL] = ogPage("https://cdn.example.com/0.jpg")

	e, _, _ := newTestEnricher(f)
	d := NewDispatcher(e)

	results := make(chan []models.NewsItem, 1)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, d.Dispatch(ctx, items, func(out []models.NewsItem) { results <- out }))
	assert.True(t, d.Busy())
	assert.False(t, d.Dispatch(ctx, items, nil))

	cancel() // the pass is detached from the caller
	close(f.gate)
	d.Wait()

	assert.False(t, d.Busy())
	out := <-results
	assert.Equal(t, "https://cdn.example.com/0.jpg", out[0].ImageURL)

	assert.True(t, d.Dispatch(context.Background(), items, nil))
	d.Wait()
}
