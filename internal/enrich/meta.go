package enrich

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reddot-watch/newswire/internal/feed"
)

// imageMetaKeys are checked in order against both the property and the name
// attribute of <meta> tags.
var imageMetaKeys = []string{"og:image", "twitter:image"}

// MetaImage returns the page's og:image, falling back to twitter:image.
// Protocol-relative and relative URLs are made absolute against pageURL.
func MetaImage(page, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}

	metas := doc.Find("meta")
	for _, key := range imageMetaKeys {
		if image := absoluteImageURL(metaContent(metas, key), pageURL); image != "" {
			return image
		}
	}
	return ""
}

func metaContent(metas *goquery.Selection, key string) string {
	var content string
	metas.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("property", "")), key) &&
			!strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), key) {
			return true
		}
		content = strings.TrimSpace(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

func absoluteImageURL(raw, pageURL string) string {
	if raw == "" {
		return ""
	}
	if feed.IsValidImageURL(raw) {
		return feed.NormalizeImageURL(raw)
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref).String()
	if !feed.IsValidImageURL(resolved) {
		return ""
	}
	return resolved
}
