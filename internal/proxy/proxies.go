package proxy

import (
	"fmt"
	"net/url"
	"strings"
)

// Proxy is a URL-forwarding service. Build turns a target URL into the URL to request.
type Proxy struct {
	Name  string
	Build func(target string) string
}

// DefaultProxies returns the ordered fallback pool. Each service expects the
// target in a different form.
func DefaultProxies() []Proxy {
	return []Proxy{
		{
			Name: "allorigins",
			Build: func(target string) string {
				return "https://api.allorigins.win/raw?url=" + url.QueryEscape(target)
			},
		},
		{
			Name: "corsproxy",
			Build: func(target string) string {
				return "https://corsproxy.io/?url=" + url.QueryEscape(target)
			},
		},
		{
			Name: "codetabs",
			Build: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + target
			},
		},
	}
}

// Direct requests the target itself, for deployments that need no forwarding.
func Direct() Proxy {
	return Proxy{
		Name:  "direct",
		Build: func(target string) string { return target },
	}
}

// Template builds a proxy from a URL template. "{url}" is replaced by the
// query-escaped target; without the placeholder the escaped target is appended.
func Template(name, tmpl string) Proxy {
	return Proxy{
		Name: name,
		Build: func(target string) string {
			escaped := url.QueryEscape(target)
			if strings.Contains(tmpl, "{url}") {
				return strings.ReplaceAll(tmpl, "{url}", escaped)
			}
			return tmpl + escaped
		},
	}
}

// Resolve maps an override setting to a single proxy: a known proxy name
// ("direct", "allorigins", ...) or an http(s) URL template.
func Resolve(override string) (Proxy, error) {
	override = strings.TrimSpace(override)
	if override == "" {
		return Proxy{}, fmt.Errorf("empty proxy override")
	}

	if strings.EqualFold(override, "direct") {
		return Direct(), nil
	}
	for _, p := range DefaultProxies() {
		if strings.EqualFold(override, p.Name) {
			return p, nil
		}
	}

	u, err := url.Parse(strings.ReplaceAll(override, "{url}", ""))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Proxy{}, fmt.Errorf("proxy override %q is neither a known proxy nor an http(s) URL", override)
	}
	return Template("override", override), nil
}
