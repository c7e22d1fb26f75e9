// Package proxy fetches remote documents through an ordered pool of
// URL-forwarding proxies with per-proxy retry and fallback.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"reddot-watch/newswire/internal/metrics"
)

var (
	// ErrNotMarkup is returned when a response body does not start with '<'.
	ErrNotMarkup = errors.New("proxy: response body is not markup")
	// ErrAllProxiesFailed wraps the last error once every proxy was tried.
	ErrAllProxiesFailed = errors.New("proxy: all proxies failed")
)

const (
	defaultRetryBackoff = 500 * time.Millisecond
	defaultUserAgent    = "newswire/1.0 (+https://github.com/reddot-watch)"
	maxBodySize         = 10 << 20
)

// Config configures a Fetcher. Zero values get defaults.
type Config struct {
	Proxies      []Proxy
	Pinned       *Proxy // Skips the fallback pool entirely when set
	RetryBackoff time.Duration
	Limiter      *rate.Limiter
	Client       *http.Client
	UserAgent    string
	Preference   *Preference
	Metrics      *metrics.Metrics
}

// Fetcher issues proxied GET requests.
type Fetcher struct {
	proxies      []Proxy
	pinned       *Proxy
	retryBackoff time.Duration
	limiter      *rate.Limiter
	client       *http.Client
	userAgent    string
	pref         *Preference
	metrics      *metrics.Metrics
}

// NewFetcher creates a fetcher from cfg.
func NewFetcher(cfg Config) *Fetcher {
	f := &Fetcher{
		proxies:      cfg.Proxies,
		pinned:       cfg.Pinned,
		retryBackoff: cfg.RetryBackoff,
		limiter:      cfg.Limiter,
		client:       cfg.Client,
		userAgent:    cfg.UserAgent,
		pref:         cfg.Preference,
		metrics:      cfg.Metrics,
	}
	if len(f.proxies) == 0 {
		f.proxies = DefaultProxies()
	}
	if f.retryBackoff == 0 {
		f.retryBackoff = defaultRetryBackoff
	}
	if f.client == nil {
		// Timeouts are applied per attempt through the request context
		f.client = &http.Client{}
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.pref == nil {
		f.pref = &Preference{}
	}
	return f
}

// Preference exposes the fetcher's last-working-proxy hint.
func (f *Fetcher) Preference() *Preference {
	return f.pref
}

// Fetch returns the body of target, trying the preferred proxy first and
// then the rest of the pool in order. Each proxy gets one retry after the
// backoff. Every attempt is bounded by timeout.
func (f *Fetcher) Fetch(ctx context.Context, target string, timeout time.Duration) (string, error) {
	if f.pinned != nil {
		return f.fetchWithRetry(ctx, *f.pinned, target, timeout)
	}

	n := len(f.proxies)
	start := f.pref.Get()
	if start < 0 || start >= n {
		start = 0
	}

	var lastErr error
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		p := f.proxies[idx]

		body, err := f.fetchWithRetry(ctx, p, target, timeout)
		if err == nil {
			if idx != start {
				log.Debug().Str("proxy", p.Name).Int("index", idx).Msg("Switching preferred proxy")
			}
			f.pref.Set(idx)
			return body, nil
		}

		lastErr = err
		log.Debug().Err(err).Str("proxy", p.Name).Str("url", target).Msg("Proxy failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w for %s: %w", ErrAllProxiesFailed, target, lastErr)
}

// FetchPreferred makes a single attempt through the currently preferred
// proxy (or the pinned one). It does not retry and does not move the preference.
func (f *Fetcher) FetchPreferred(ctx context.Context, target string, timeout time.Duration) (string, error) {
	if f.pinned != nil {
		return f.attempt(ctx, *f.pinned, target, timeout)
	}
	idx := f.pref.Get()
	if idx < 0 || idx >= len(f.proxies) {
		idx = 0
	}
	return f.attempt(ctx, f.proxies[idx], target, timeout)
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, p Proxy, target string, timeout time.Duration) (string, error) {
	body, err := f.attempt(ctx, p, target, timeout)
	if err == nil {
		return body, nil
	}

	select {
	case <-time.After(f.retryBackoff):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return f.attempt(ctx, p, target, timeout)
}

func (f *Fetcher) attempt(ctx context.Context, p Proxy, target string, timeout time.Duration) (body string, err error) {
	defer func() { f.metrics.RecordProxyAttempt(p.Name, err) }()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, p.Build(target), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: unexpected status code: %d", p.Name, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response body: %w", p.Name, err)
	}

	text := decodeHTML(raw, resp.Header.Get("Content-Type"))
	if !looksLikeMarkup(text) {
		return "", fmt.Errorf("%s: %w", p.Name, ErrNotMarkup)
	}
	return text, nil
}

// decodeHTML converts HTML bodies with a declared non-UTF-8 charset to UTF-8.
// XML is returned untouched: the feed parser honours the XML declaration itself.
func decodeHTML(raw []byte, contentType string) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "text/html" {
		return string(raw)
	}
	label := strings.ToLower(params["charset"])
	if label == "" || label == "utf-8" || label == "utf8" {
		return string(raw)
	}

	r, err := charset.NewReaderLabel(label, strings.NewReader(string(raw)))
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func looksLikeMarkup(body string) bool {
	return strings.HasPrefix(strings.TrimLeft(body, " \t\r\n\ufeff"), "<")
}
