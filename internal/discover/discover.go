// Package discover finds document links on web pages and reads URL lists.
package discover

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// PageFetcher returns the body of an HTML page.
type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Discoverer scans pages for links to PDF documents.
type Discoverer struct {
	Fetcher PageFetcher
}

// PDFLinks fetches pageURL and returns its PDF links. A fetch failure is
// logged and yields no links.
func (d *Discoverer) PDFLinks(ctx context.Context, pageURL string) []string {
	if d.Fetcher == nil {
		log.Error().Str("url", pageURL).Msg("no page fetcher configured")
		return nil
	}
	body, _, err := d.Fetcher.Get(ctx, pageURL)
	if err != nil {
		log.Error().Err(err).Str("url", pageURL).Msg("failed to fetch page")
		return nil
	}
	links := PDFLinks(body, pageURL)
	log.Info().Str("url", pageURL).Int("found", len(links)).Msg("found PDF links")
	return links
}

// PDFLinks parses an HTML page and returns the absolute URLs of anchors whose
// path ends in ".pdf" (any case), de-duplicated in first-seen order.
// Relative hrefs resolve against <base href> when present, else pageURL.
func PDFLinks(body []byte, pageURL string) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil || doc == nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	if b := findFirst(doc, "base"); b != nil {
		if href := attr(b, "href"); href != "" {
			if u, err := base.Parse(href); err == nil {
				base = u
			}
		}
	}

	seen := map[string]struct{}{}
	var out []string
	walk(doc, func(n *html.Node) {
		if !strings.EqualFold(n.Data, "a") {
			return
		}
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
			return
		}
		if !strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
			return
		}
		u.Fragment, u.RawFragment = "", ""
		abs := u.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

// walk visits element nodes in document order.
func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
