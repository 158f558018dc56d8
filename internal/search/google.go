package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const googleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries the Google Custom Search JSON API for PDF documents.
type GoogleCSE struct {
	APIKey string
	CX     string
	// BaseURL overrides the API endpoint. Empty means the public endpoint.
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

func (g *GoogleCSE) Name() string { return "google" }

func (g *GoogleCSE) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(g.APIKey) == "" || strings.TrimSpace(g.CX) == "" {
		return nil, fmt.Errorf("%w: google api key and cse id required", ErrNotConfigured)
	}
	// The API serves at most 10 results per request.
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	base := g.BaseURL
	if base == "" {
		base = googleEndpoint
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", g.APIKey)
	q.Set("cx", g.CX)
	q.Set("q", PDFQuery(query))
	q.Set("num", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var gr googleResponse
	if err := getJSON(ctx, g.HTTPClient, u.String(), g.UserAgent, "google cse", &gr); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(gr.Items))
	for _, it := range gr.Items {
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(it.Title),
			URL:     strings.TrimSpace(it.Link),
			Snippet: strings.TrimSpace(it.Snippet),
			Source:  g.Name(),
		})
	}
	return out, nil
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}
