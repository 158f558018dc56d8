package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/cache"
)

// Client fetches HTML pages for link discovery with per-request timeouts,
// bounded retry on transient errors and optional conditional revalidation.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Cache, when set, stores page bodies and validators on disk.
	Cache *cache.HTTPCache
	// BypassCache always fetches pages unconditionally; fresh responses are
	// still saved.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int

	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = checkRedirectFunc(c.RedirectMaxHops)
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: checkRedirectFunc(c.RedirectMaxHops)}
}

// Get returns the body and content type of an HTML page.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	var etag, lastMod string
	if !c.BypassCache {
		etag, lastMod = c.Cache.Validators(ctx, rawURL)
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		page, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			if page.status == http.StatusNotModified && c.Cache != nil {
				if cached, err := c.Cache.LoadBody(ctx, rawURL); err == nil {
					log.Debug().Str("url", rawURL).Msg("page not modified; served from cache")
					return cached, page.contentType, nil
				}
				// Validators matched but the body is gone: fetch unconditionally.
				etag, lastMod = "", ""
				continue
			}
			if c.Cache != nil {
				if err := c.Cache.Save(ctx, rawURL, page.contentType, page.etag, page.lastModified, page.body); err != nil {
					log.Debug().Err(err).Str("url", rawURL).Msg("page cache save failed")
				}
			}
			return page.body, page.contentType, nil
		}
		lastErr = err
		if !isTransient(err) || ctx.Err() != nil || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Msg("page fetch failed; retrying")
		if err := c.sleep(ctx, time.Duration(i+1)*200*time.Millisecond); err != nil {
			return nil, "", err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("not modified but no cached body")
	}
	return nil, "", lastErr
}

type page struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) (page, error) {
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := newRequest(ctx, http.MethodGet, rawURL, c.UserAgent)
	if err != nil {
		return page{}, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return page{contentType: resp.Header.Get("Content-Type"), status: resp.StatusCode}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page{}, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return page{}, fmt.Errorf("%w: unsupported content type %q", ErrPermanent, contentType)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return page{}, fmt.Errorf("read body: %w", err)
	}
	return page{
		body:         b,
		contentType:  contentType,
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// newRequest builds a request for an http(s) URL; any other scheme is a
// permanent failure.
func newRequest(ctx context.Context, method, rawURL, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", ErrPermanent, err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("%w: unsupported URL scheme: %q", ErrPermanent, req.URL.Scheme)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}

func checkRedirectFunc(maxHops int) func(req *http.Request, via []*http.Request) error {
	if maxHops <= 0 {
		maxHops = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
