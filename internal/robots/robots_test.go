package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/docextract/internal/cache"
)

func robotsServer(t *testing.T, hits *int32, status int, body, etag string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(hits, 1)
		if etag != "" && r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if etag != "" {
			w.Header().Set("ETag", etag)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPolicy_MemoryThenRevalidation(t *testing.T) {
	var hits int32
	srv := robotsServer(t, &hits, http.StatusOK, "User-agent: *\nDisallow: /private\n", `W/"v1"`)
	p := &Policy{
		Cache:             &cache.HTTPCache{Dir: t.TempDir()},
		UserAgent:         "docextract-test/1.0",
		EntryExpiry:       time.Hour,
		CheckPrivateHosts: true,
	}
	ctx := context.Background()
	u := srv.URL + "/robots.txt"

	rules, src, err := p.Get(ctx, u)
	if err != nil || src != SourceNetwork {
		t.Fatalf("first get: src=%v err=%v", src, err)
	}
	if len(rules.Groups[0].Rules) != 1 || rules.Groups[0].Rules[0].Pattern != "/private" {
		t.Fatalf("unexpected rules %+v", rules)
	}
	if _, src, _ := p.Get(ctx, u); src != SourceMemory {
		t.Fatalf("expected SourceMemory, got %v", src)
	}
	if hits != 1 {
		t.Fatalf("expected 1 server hit, got %d", hits)
	}

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	rules, src, err = p.Get(ctx, u)
	if err != nil || src != SourceCache304 {
		t.Fatalf("expected 304 revalidation, src=%v err=%v", src, err)
	}
	if len(rules.Groups) != 1 {
		t.Fatalf("expected rules from cached body, got %+v", rules)
	}
}

func TestPolicy_Allowed(t *testing.T) {
	var hits int32
	srv := robotsServer(t, &hits, http.StatusOK, "User-agent: *\nDisallow: /private/\nAllow: /private/public.pdf\n", "")
	p := &Policy{UserAgent: "docextract", CheckPrivateHosts: true}
	ctx := context.Background()
	if p.Allowed(ctx, srv.URL+"/private/secret.pdf") {
		t.Fatalf("expected disallowed path")
	}
	if !p.Allowed(ctx, srv.URL+"/private/public.pdf") {
		t.Fatalf("expected more specific allow to win")
	}
	if !p.Allowed(ctx, srv.URL+"/reports/a.pdf") {
		t.Fatalf("expected unmatched path allowed")
	}
	if hits != 1 {
		t.Fatalf("expected robots.txt fetched once per host, got %d", hits)
	}
}

func TestPolicy_MissingOrFailingRobotsAllows(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		var hits int32
		srv := robotsServer(t, &hits, status, "", "")
		p := &Policy{CheckPrivateHosts: true}
		if !p.Allowed(context.Background(), srv.URL+"/a.pdf") {
			t.Fatalf("status %d: expected allow", status)
		}
	}
}

func TestPolicy_PrivateHostsSkipped(t *testing.T) {
	var hits int32
	srv := robotsServer(t, &hits, http.StatusOK, "User-agent: *\nDisallow: /\n", "")
	p := &Policy{}
	if !p.Allowed(context.Background(), srv.URL+"/a.pdf") {
		t.Fatalf("expected loopback host allowed without a robots check")
	}
	if hits != 0 {
		t.Fatalf("expected no robots fetch, got %d", hits)
	}
}

func TestRules_AgentPrecedenceAndPatterns(t *testing.T) {
	rules := Parse(`
User-agent: *
Disallow: /

User-agent: docextract # our crawler
Disallow: /*.pdf$
Allow: /open/
Crawl-delay: 2
`)
	cases := []struct {
		ua, path string
		want     bool
	}{
		{"other-bot", "/anything", false},
		{"docextract/1.0", "/docs/a.pdf", false},
		{"docextract/1.0", "/docs/a.pdf?x=1", true},
		{"docextract/1.0", "/open/a.pdf", true},
		{"docextract/1.0", "/index.html", true},
	}
	for _, tc := range cases {
		if got := rules.IsAllowed(tc.ua, tc.path); got != tc.want {
			t.Fatalf("IsAllowed(%q, %q) = %v, want %v", tc.ua, tc.path, got, tc.want)
		}
	}
	if d := rules.CrawlDelayFor("docextract"); d == nil || *d != 2*time.Second {
		t.Fatalf("unexpected crawl delay %v", d)
	}
	if d := rules.CrawlDelayFor("other"); d != nil {
		t.Fatalf("expected no crawl delay for wildcard group, got %v", *d)
	}
}
