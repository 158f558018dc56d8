package search

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned by providers missing credentials or endpoints.
var ErrNotConfigured = errors.New("search provider not configured")

// Result represents a single search hit from any provider.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// DefaultLimit is how many hits a lookup asks for.
const DefaultLimit = 10

// PDFQuery restricts a query to PDF documents unless it already does.
func PDFQuery(query string) string {
	q := strings.TrimSpace(query)
	if strings.Contains(strings.ToLower(q), "filetype:pdf") {
		return q
	}
	return q + " filetype:pdf"
}

// LookupURLs runs a query and returns the hit URLs in provider order.
// Provider errors are logged and yield no URLs.
func LookupURLs(ctx context.Context, p Provider, query string, limit int) []string {
	if p == nil {
		log.Warn().Str("query", query).Msg("no search provider configured")
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	hits, err := p.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("search credentials not configured")
		} else {
			log.Error().Err(err).Str("provider", p.Name()).Str("query", query).Msg("search failed")
		}
		return nil
	}
	urls := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.URL != "" {
			urls = append(urls, h.URL)
		}
	}
	log.Info().Str("provider", p.Name()).Str("query", query).Int("found", len(urls)).Msg("search complete")
	return urls
}
