// Package feed turns raw RSS 2.0 and Atom documents into normalized news items.
package feed

import (
	"strings"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"github.com/rs/zerolog/log"

	"reddot-watch/newswire/internal/models"
)

// entry is the format-neutral view of an RSS item or Atom entry.
type entry struct {
	title      string
	link       string
	date       string   // First present date field, unparsed
	bodies     []string // Raw HTML bodies, preferred first
	enclosures []enclosure
	extensions ext.Extensions
}

type enclosure struct {
	url      string
	mimeType string
}

// Parse extracts news items from an RSS or Atom document. RSS is tried first;
// a document without <item> elements is retried as Atom. Entries lacking a
// title or link are skipped. Unparsable input yields an empty slice.
func Parse(raw string, src models.FeedSource) []models.NewsItem {
	entries, format := decode(raw)
	if len(entries) == 0 {
		log.Warn().Str("source", src.Name).Msg("Feed has no parsable items")
		return []models.NewsItem{}
	}

	items := make([]models.NewsItem, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		item, ok := e.toNewsItem(src)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}

	log.Debug().
		Str("source", src.Name).
		Str("format", format).
		Int("items", len(items)).
		Int("skipped", skipped).
		Msg("Parsed feed")

	return items
}

func decode(raw string) ([]entry, string) {
	if feed, err := (&rss.Parser{}).Parse(strings.NewReader(raw)); err == nil && len(feed.Items) > 0 {
		entries := make([]entry, 0, len(feed.Items))
		for _, it := range feed.Items {
			if it != nil {
				entries = append(entries, fromRSS(it))
			}
		}
		return entries, "rss"
	}

	if feed, err := (&atom.Parser{}).Parse(strings.NewReader(raw)); err == nil && len(feed.Entries) > 0 {
		entries := make([]entry, 0, len(feed.Entries))
		for _, en := range feed.Entries {
			if en != nil {
				entries = append(entries, fromAtom(en))
			}
		}
		return entries, "atom"
	}

	return nil, ""
}

func fromRSS(it *rss.Item) entry {
	e := entry{
		title:      it.Title,
		link:       strings.TrimSpace(it.Link),
		date:       it.PubDate,
		extensions: it.Extensions,
	}
	if strings.TrimSpace(e.date) == "" && it.DublinCoreExt != nil && len(it.DublinCoreExt.Date) > 0 {
		e.date = it.DublinCoreExt.Date[0]
	}

	e.bodies = nonEmpty(it.Description, it.Content)

	encs := it.Enclosures
	if len(encs) == 0 && it.Enclosure != nil {
		encs = []*rss.Enclosure{it.Enclosure}
	}
	for _, enc := range encs {
		if enc != nil {
			e.enclosures = append(e.enclosures, enclosure{url: strings.TrimSpace(enc.URL), mimeType: enc.Type})
		}
	}
	return e
}

func fromAtom(en *atom.Entry) entry {
	e := entry{
		title:      en.Title,
		link:       atomLink(en.Links),
		date:       en.Published,
		extensions: en.Extensions,
	}
	if strings.TrimSpace(e.date) == "" {
		e.date = en.Updated
	}

	var content string
	if en.Content != nil {
		content = en.Content.Value
	}
	e.bodies = nonEmpty(en.Summary, content)

	for _, l := range en.Links {
		if l != nil && strings.EqualFold(l.Rel, "enclosure") {
			e.enclosures = append(e.enclosures, enclosure{url: strings.TrimSpace(l.Href), mimeType: l.Type})
		}
	}
	return e
}

// atomLink prefers the rel="alternate" link and falls back to the first href.
func atomLink(links []*atom.Link) string {
	first := ""
	for _, l := range links {
		if l == nil {
			continue
		}
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		if strings.EqualFold(l.Rel, "alternate") {
			return href
		}
		if first == "" {
			first = href
		}
	}
	return first
}

func (e entry) toNewsItem(src models.FeedSource) (models.NewsItem, bool) {
	title := strings.Join(strings.Fields(e.title), " ")
	if title == "" || e.link == "" {
		return models.NewsItem{}, false
	}

	return models.NewsItem{
		Source:      src.Name,
		SourceURL:   src.Site,
		Title:       title,
		URL:         e.link,
		PublishedAt: parseDate(e.date),
		Snippet:     e.snippet(),
		ImageURL:    e.image(),
	}, true
}

func (e entry) snippet() string {
	for _, body := range e.bodies {
		if s := Snippet(body); s != "" {
			return s
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
