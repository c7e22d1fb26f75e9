package feed

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	ext "github.com/mmcdole/gofeed/extensions"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".avif": true,
	".bmp":  true,
	".svg":  true,
}

// image runs the thumbnail cascade. The first source that yields a usable
// URL wins:
//  1. enclosure with an image/* type
//  2. untyped enclosure with an image file extension
//  3. media:thumbnail
//  4. media:content describing an image
//  5. first <img src> in the raw HTML bodies
func (e entry) image() string {
	for _, enc := range e.enclosures {
		if strings.HasPrefix(strings.ToLower(enc.mimeType), "image/") && IsValidImageURL(enc.url) {
			return NormalizeImageURL(enc.url)
		}
	}

	for _, enc := range e.enclosures {
		if enc.mimeType == "" && IsValidImageURL(enc.url) && hasImageExtension(enc.url) {
			return NormalizeImageURL(enc.url)
		}
	}

	media := mediaElements(e.extensions)

	for _, thumb := range media["thumbnail"] {
		if u := strings.TrimSpace(thumb.Attrs["url"]); IsValidImageURL(u) {
			return NormalizeImageURL(u)
		}
	}

	for _, content := range media["content"] {
		u := strings.TrimSpace(content.Attrs["url"])
		if !IsValidImageURL(u) {
			continue
		}
		if strings.EqualFold(content.Attrs["medium"], "image") ||
			strings.HasPrefix(strings.ToLower(content.Attrs["type"]), "image/") ||
			hasImageExtension(u) {
			return NormalizeImageURL(u)
		}
	}

	for _, body := range e.bodies {
		if u := firstImgSrc(body, e.link); u != "" {
			return u
		}
	}

	return ""
}

// mediaElements flattens the Media RSS namespace, including elements nested
// in media:group, keyed by element name in document order.
func mediaElements(extensions ext.Extensions) map[string][]ext.Extension {
	out := map[string][]ext.Extension{}
	media, ok := extensions["media"]
	if !ok {
		return out
	}
	for _, name := range []string{"thumbnail", "content"} {
		out[name] = append(out[name], media[name]...)
	}
	for _, group := range media["group"] {
		for _, name := range []string{"thumbnail", "content"} {
			out[name] = append(out[name], group.Children[name]...)
		}
	}
	return out
}

// firstImgSrc returns the first <img> source in an HTML fragment. Relative
// sources are resolved against the article link.
func firstImgSrc(fragment, base string) string {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		found = resolveImageURL(strings.TrimSpace(src), base)
		return found == ""
	})
	return found
}

func resolveImageURL(src, base string) string {
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	if IsValidImageURL(src) {
		return NormalizeImageURL(src)
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref).String()
	if !IsValidImageURL(resolved) {
		return ""
	}
	return resolved
}

// IsValidImageURL reports whether u is an absolute http(s) URL or a
// protocol-relative one.
func IsValidImageURL(u string) bool {
	if u == "" {
		return false
	}
	candidate := u
	if strings.HasPrefix(u, "//") {
		candidate = "https:" + u
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// NormalizeImageURL rewrites protocol-relative URLs to https.
func NormalizeImageURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

func hasImageExtension(u string) bool {
	parsed, err := url.Parse(NormalizeImageURL(u))
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(parsed.Path))]
}
