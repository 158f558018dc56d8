package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// searxMaxPages caps how many result pages one lookup walks.
const searxMaxPages = 3

// SearxNG queries a self-hosted SearxNG instance. The instance must have the
// JSON output format enabled.
type SearxNG struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	UserAgent  string
}

func (s *SearxNG) Name() string { return "searxng" }

// Search walks result pages until limit unique URLs are collected, a page
// adds nothing new, or searxMaxPages is reached.
func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return nil, fmt.Errorf("%w: missing searxng base url", ErrNotConfigured)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	endpoint, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]Result, 0, limit)
	for page := 1; page <= searxMaxPages && len(out) < limit; page++ {
		var sr searxResponse
		if err := getJSON(ctx, s.HTTPClient, s.pageURL(endpoint, query, page), s.UserAgent, s.Name(), &sr); err != nil {
			if page > 1 && len(out) > 0 {
				break
			}
			return nil, err
		}
		added := 0
		for _, r := range sr.Results {
			link := strings.TrimSpace(r.URL)
			if link == "" {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, Result{
				Title:   strings.TrimSpace(r.Title),
				URL:     link,
				Snippet: strings.TrimSpace(r.Content),
				Source:  s.Name(),
			})
			added++
			if len(out) >= limit {
				break
			}
		}
		if added == 0 {
			break
		}
	}
	return out, nil
}

func (s *SearxNG) endpoint() (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse searxng url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	return u, nil
}

func (s *SearxNG) pageURL(endpoint *url.URL, query string, page int) string {
	u := *endpoint
	q := u.Query()
	q.Set("q", PDFQuery(query))
	q.Set("format", "json")
	q.Set("categories", "general,files")
	q.Set("safesearch", "1")
	q.Set("pageno", strconv.Itoa(page))
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}
