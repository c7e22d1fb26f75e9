package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaImage(t *testing.T) {
	const page = "https://example.com/posts/1"

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "property before content",
			html: `<meta property="og:image" content="https://cdn.example.com/og.jpg">`,
			want: "https://cdn.example.com/og.jpg",
		},
		{
			name: "content before property",
			html: `<meta content="https://cdn.example.com/og.jpg" property="og:image" />`,
			want: "https://cdn.example.com/og.jpg",
		},
		{
			name: "og wins over twitter regardless of order",
			html: `<meta name="twitter:image" content="https://cdn.example.com/tw.jpg"><meta property="og:image" content="https://cdn.example.com/og.jpg">`,
			want: "https://cdn.example.com/og.jpg",
		},
		{
			name: "twitter fallback",
			html: `<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">`,
			want: "https://cdn.example.com/tw.jpg",
		},
		{
			name: "empty og content falls back",
			html: `<meta property="og:image" content=""><meta property="twitter:image" content="https://cdn.example.com/tw.jpg">`,
			want: "https://cdn.example.com/tw.jpg",
		},
		{
			name: "protocol relative",
			html: `<meta property="og:image" content="//cdn.example.com/og.jpg">`,
			want: "https://cdn.example.com/og.jpg",
		},
		{
			name: "relative to page",
			html: `<meta property="og:image" content="/static/og.jpg">`,
			want: "https://example.com/static/og.jpg",
		},
		{
			name: "none",
			html: `<html><head><title>x</title></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MetaImage("<html><head>"+tt.html+"</head></html>", page))
		})
	}
}
