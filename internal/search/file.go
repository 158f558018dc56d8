package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileProvider loads search results from a local JSON file for offline use.
// The file is an array of {"title", "url", "snippet"} objects. A hit matches
// when every query term outside "filetype:" operators appears in its title,
// snippet or URL.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, fmt.Errorf("%w: file provider path is empty", ErrNotConfigured)
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	terms := queryTerms(query)
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		hay := strings.ToLower(r.Title + " " + r.Snippet + " " + r.URL)
		if !containsAll(hay, terms) {
			continue
		}
		r.Source = f.Name()
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if strings.HasPrefix(t, "filetype:") {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func containsAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
