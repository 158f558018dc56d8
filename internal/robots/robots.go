// Package robots decides whether a document URL may be fetched according to
// its host's robots.txt.
package robots

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/cache"
)

// Source reports where a rule set came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
	// SourceMissing means the host has no robots.txt (404/410).
	SourceMissing
)

// Policy fetches and caches robots.txt per host. Fetch failures other than
// a missing file are logged and treated as allow.
type Policy struct {
	HTTPClient *http.Client
	// Cache revalidates robots.txt bodies across runs.
	Cache     *cache.HTTPCache
	UserAgent string
	// EntryExpiry bounds in-memory reuse. Zero means 30 minutes.
	EntryExpiry time.Duration
	// CheckPrivateHosts also consults robots.txt on loopback and private
	// addresses; by default those hosts are always allowed.
	CheckPrivateHosts bool

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

// Allowed reports whether rawURL may be fetched with the policy's user agent.
func (p *Policy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !isHTTPScheme(u) {
		return true
	}
	if !p.CheckPrivateHosts && isLocalOrPrivateHost(u.Hostname()) {
		return true
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	rules, _, err := p.Get(ctx, robotsURL)
	if err != nil {
		log.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt unavailable; allowing")
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.IsAllowed(p.UserAgent, path)
}

// Get returns the rules at robotsURL, from memory, a 304 revalidation or the
// network.
func (p *Policy) Get(ctx context.Context, robotsURL string) (Rules, Source, error) {
	p.mu.Lock()
	if p.now == nil {
		p.now = time.Now
	}
	if p.mem == nil {
		p.mem = make(map[string]memEntry)
	}
	if ent, ok := p.mem[robotsURL]; ok && p.now().Before(ent.expiry) {
		p.mu.Unlock()
		return ent.rules, SourceMemory, nil
	}
	p.mu.Unlock()

	etag, lastMod := p.Cache.Validators(ctx, robotsURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, SourceNetwork, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && p.Cache != nil:
		body, err := p.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return Rules{}, SourceCache304, fmt.Errorf("load cached robots: %w", err)
		}
		rules := Parse(string(body))
		p.remember(robotsURL, rules)
		return rules, SourceCache304, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		p.remember(robotsURL, Rules{})
		return Rules{}, SourceMissing, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Rules{}, SourceNetwork, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return Rules{}, SourceNetwork, fmt.Errorf("read robots: %w", err)
	}
	if p.Cache != nil {
		_ = p.Cache.Save(ctx, robotsURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), data)
	}
	rules := Parse(string(data))
	p.remember(robotsURL, rules)
	return rules, SourceNetwork, nil
}

func (p *Policy) remember(key string, rules Rules) {
	exp := p.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	p.mu.Lock()
	p.mem[key] = memEntry{rules: rules, expiry: p.now().Add(exp)}
	p.mu.Unlock()
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isLocalOrPrivateHost(host string) bool {
	h := strings.ToLower(strings.Trim(strings.TrimSpace(host), "[]"))
	if h == "localhost" || h == "localhost.localdomain" {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
	}
	return false
}
