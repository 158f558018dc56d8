package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPEntry is the sidecar kept next to a cached body. It carries the
// validators needed for a conditional GET.
type HTTPEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache keeps scanned web pages and robots.txt bodies on disk as
// <sha256(url)>.body plus <sha256(url)>.meta.json. Downloaded documents live
// in ArtifactStore instead.
type HTTPCache struct {
	Dir string
	// StrictPerms, when true, creates the directory 0700 and files 0600.
	StrictPerms bool
}

func (c *HTTPCache) paths(url string) (body, meta string) {
	key := hashHex(url)
	return filepath.Join(c.Dir, key+".body"), filepath.Join(c.Dir, key+".meta.json")
}

func (c *HTTPCache) ready() error {
	if c == nil || strings.TrimSpace(c.Dir) == "" {
		return errors.New("cache dir not configured")
	}
	return mkdirMode(c.Dir, c.StrictPerms)
}

// LoadMeta returns the stored validators for url.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*HTTPEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	_, metaPath := c.paths(url)
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(metaPath), err)
	}
	return &e, nil
}

// Validators returns the ETag and Last-Modified values to send with a
// conditional request, or empty strings when url is not cached.
func (c *HTTPCache) Validators(ctx context.Context, url string) (etag, lastModified string) {
	if c == nil {
		return "", ""
	}
	meta, err := c.LoadMeta(ctx, url)
	if err != nil || meta == nil {
		return "", ""
	}
	return meta.ETag, meta.LastModified
}

// LoadBody returns the cached body and bumps its mtime, which is the
// recency signal EnforceHTTPCacheLimits evicts by.
func (c *HTTPCache) LoadBody(_ context.Context, url string) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	bodyPath, _ := c.paths(url)
	b, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	_ = os.Chtimes(bodyPath, now, now)
	return b, nil
}

// Save stores body and its validators. The meta file lands last, so a
// readable meta file always has a complete body beside it.
func (c *HTTPCache) Save(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	if err := c.ready(); err != nil {
		return err
	}
	_, fm := modes(c.StrictPerms)
	bodyPath, metaPath := c.paths(url)
	if err := writeAtomic(bodyPath, body, fm); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	b, err := json.Marshal(HTTPEntry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeAtomic(metaPath, b, fm); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}
