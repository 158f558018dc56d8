package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/cache"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 30 * time.Second
	DefaultBackoffBase = time.Second
)

// Downloader retrieves documents into an ArtifactStore. A stored artifact is
// returned without network activity; otherwise the body is fetched with
// bounded retry and exponential backoff.
type Downloader struct {
	Store      *cache.ArtifactStore
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// BackoffBase scales the wait 2^attempt * BackoffBase between attempts.
	BackoffBase time.Duration
	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Download returns the local path of the document at rawURL. On exhaustion
// the error wraps ErrNotRetrieved and the last attempt's error.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	if d.Store == nil {
		return "", errors.New("download store not configured")
	}
	unlock := d.Store.Lock(rawURL)
	defer unlock()

	if p, ok := d.Store.Lookup(rawURL); ok {
		log.Info().Str("url", rawURL).Str("file", d.Store.NameFor(rawURL)).Msg("already downloaded")
		return p, nil
	}

	attempts := d.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := d.BackoffBase
	if base <= 0 {
		base = DefaultBackoffBase
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		p, err := d.attempt(ctx, rawURL)
		if err == nil {
			log.Info().Str("url", rawURL).Str("file", d.Store.NameFor(rawURL)).Int("attempt", attempt+1).Msg("downloaded")
			return p, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("url", rawURL).Int("attempt", attempt+1).Msg("download attempt failed")
		if !isTransient(err) || ctx.Err() != nil {
			break
		}
		if attempt < attempts-1 {
			wait := time.Duration(1<<attempt) * base
			if err := d.sleep(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}
	}
	log.Error().Err(lastErr).Str("url", rawURL).Msg("failed to download")
	return "", fmt.Errorf("%w: %s: %w", ErrNotRetrieved, rawURL, lastErr)
}

func (d *Downloader) attempt(ctx context.Context, rawURL string) (string, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newRequest(ctx, http.MethodGet, rawURL, d.UserAgent)
	if err != nil {
		return "", err
	}
	resp, err := d.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	f, err := d.Store.Stage(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		d.Store.Discard(f)
		return "", fmt.Errorf("read body: %w", err)
	}
	return d.Store.Commit(f, rawURL)
}

func (d *Downloader) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{CheckRedirect: checkRedirectFunc(0)}
}

func (d *Downloader) sleep(ctx context.Context, dur time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, dur)
	}
	return sleepCtx(ctx, dur)
}

// Validate is a best-effort HEAD pre-check that the URL serves a PDF. It
// reports false on any transport error and never affects retry behavior.
func (d *Downloader) Validate(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := newRequest(ctx, http.MethodHead, rawURL, d.UserAgent)
	if err != nil {
		return false
	}
	resp, err := d.httpClient().Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("link validation failed")
		return false
	}
	_ = resp.Body.Close()
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(ct, "application/pdf") || strings.HasSuffix(strings.ToLower(rawURL), ".pdf")
}
