package process

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/newswire/internal/models"
)

func item(url string, published time.Time) models.NewsItem {
	return models.NewsItem{Source: "s", Title: url, URL: url, PublishedAt: published}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMerge_Empty(t *testing.T) {
	merged := Merge(nil)
	require.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestMerge_SortsNewestFirst(t *testing.T) {
	merged := Merge([]models.NewsItem{
		item("https://a.test/1", day(2025, 1, 1)),
		item("https://a.test/2", day(2025, 2, 15)),
		item("https://a.test/3", day(2025, 2, 1)),
	})

	require.Len(t, merged, 3)
	assert.Equal(t, day(2025, 2, 15), merged[0].PublishedAt)
	assert.Equal(t, day(2025, 2, 1), merged[1].PublishedAt)
	assert.Equal(t, day(2025, 1, 1), merged[2].PublishedAt)
}

func TestMerge_DedupKeyNormalization(t *testing.T) {
	first := item("https://Example.com/Post/", day(2025, 1, 2))
	first.Source = "first"
	second := item("https://example.com/post", day(2025, 1, 3))
	second.Source = "second"

	merged := Merge([]models.NewsItem{first, second, item("https://example.com/other", day(2025, 1, 1))})

	require.Len(t, merged, 2)
	assert.Equal(t, "first", merged[0].Source, "first seen duplicate is kept")
	assert.Equal(t, "https://Example.com/Post/", merged[0].URL)
}

func TestMerge_StableForEqualDates(t *testing.T) {
	same := day(2025, 1, 1)
	merged := Merge([]models.NewsItem{
		item("https://a.test/x", same),
		item("https://a.test/newer", day(2025, 1, 2)),
		item("https://a.test/y", same),
		item("https://a.test/z", same),
	})

	urls := make([]string, 0, len(merged))
	for _, it := range merged {
		urls = append(urls, it.URL)
	}
	assert.Equal(t, []string{"https://a.test/newer", "https://a.test/x", "https://a.test/y", "https://a.test/z"}, urls)
}

func TestMerge_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	hosts := []string{"https://a.test/", "https://A.test/", "https://b.test/"}

	for run := 0; run < 50; run++ {
		n := r.Intn(30)
		items := make([]models.NewsItem, 0, n)
		for i := 0; i < n; i++ {
			url := hosts[r.Intn(len(hosts))] + string(rune('a'+r.Intn(5)))
			if r.Intn(2) == 0 {
				url += "/"
			}
			items = append(items, item(url, day(2025, 1, 1+r.Intn(5))))
		}

		once := Merge(items)
		assert.Equal(t, once, Merge(once))

		seen := map[string]bool{}
		for i, it := range once {
			assert.False(t, seen[it.DedupKey()], "duplicate key %s", it.DedupKey())
			seen[it.DedupKey()] = true
			if i > 0 {
				assert.False(t, it.PublishedAt.After(once[i-1].PublishedAt))
			}
		}
	}
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	input := []models.NewsItem{
		item("https://a.test/old", day(2025, 1, 1)),
		item("https://a.test/new", day(2025, 1, 2)),
	}
	Merge(input)
	assert.Equal(t, "https://a.test/old", input[0].URL)
}
