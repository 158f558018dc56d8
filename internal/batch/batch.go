// Package batch drives many document sources through retrieval and
// extraction, one at a time, collecting one record per processed document.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/aggregate"
	"github.com/hyperifyio/docextract/internal/discover"
	"github.com/hyperifyio/docextract/internal/extract"
	"github.com/hyperifyio/docextract/internal/search"
)

// Source types recorded as provenance.
const (
	SourceLocal   = "local"
	SourceURL     = "url"
	SourceWebPage = "web_page"
)

// Extractor turns a local file into a result record.
type Extractor interface {
	Extract(ctx context.Context, path string) extract.Result
}

// Downloader resolves a URL to a local file.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Validator is the optional HEAD pre-check applied when ValidateLinks is set.
type Validator interface {
	Validate(ctx context.Context, url string) bool
}

// Gate decides whether a URL may be fetched at all, e.g. per robots.txt.
type Gate interface {
	Allowed(ctx context.Context, url string) bool
}

// LinkFinder returns the document links found on a web page.
type LinkFinder interface {
	PDFLinks(ctx context.Context, pageURL string) []string
}

// Request lists the sources of one run. Groups are processed in field order.
type Request struct {
	Files   []string
	URLs    []string
	URLFile string
	Pages   []string
	Query   string
}

// Empty reports whether the request names no source at all.
func (r Request) Empty() bool {
	return len(r.Files) == 0 && len(r.URLs) == 0 && r.URLFile == "" && len(r.Pages) == 0 && r.Query == ""
}

// Report is the outcome of one run.
type Report struct {
	RunID     string           `json:"run_id"`
	Results   []extract.Result `json:"results"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
}

// Orchestrator processes sources sequentially. Retrieval failures skip the
// source; extraction failures, including panics, become failure records.
type Orchestrator struct {
	Extractor  Extractor
	Downloader Downloader
	Links      LinkFinder
	Search     search.Provider
	// SearchLimit caps search hits. Zero means search.DefaultLimit.
	SearchLimit int
	// ValidateLinks drops URLs that fail Validator before download.
	ValidateLinks bool
	Validator     Validator
	// Gate, when set, is consulted before every page scan and download.
	Gate Gate
	// NewRunID generates report IDs. Nil means a random UUID.
	NewRunID func() string
}

// Run processes every source in req and returns the collected records.
func (o *Orchestrator) Run(ctx context.Context, req Request) Report {
	id := o.runID()
	logger := log.With().Str("run_id", id).Logger()
	ctx = logger.WithContext(ctx)

	var results []extract.Result
	if len(req.Files) > 0 {
		logger.Info().Int("count", len(req.Files)).Msg("processing local files")
		results = append(results, o.ProcessFiles(ctx, req.Files)...)
	}
	if len(req.URLs) > 0 {
		logger.Info().Int("count", len(req.URLs)).Msg("processing URLs")
		results = append(results, o.ProcessURLs(ctx, req.URLs)...)
	}
	if req.URLFile != "" {
		urls, err := discover.LoadURLFile(req.URLFile)
		if err != nil {
			logger.Error().Err(err).Str("file", req.URLFile).Msg("failed to load URL file")
		} else {
			logger.Info().Int("count", len(urls)).Msg("processing URLs from file")
			results = append(results, o.ProcessURLs(ctx, urls)...)
		}
	}
	if len(req.Pages) > 0 {
		logger.Info().Int("count", len(req.Pages)).Msg("scanning web pages for documents")
		results = append(results, o.ProcessPages(ctx, req.Pages)...)
	}
	if req.Query != "" {
		urls := aggregate.UniqueURLs(search.LookupURLs(ctx, o.Search, req.Query, o.SearchLimit))
		logger.Info().Int("count", len(urls)).Msg("processing search results")
		results = append(results, o.ProcessURLs(ctx, urls)...)
	}
	return NewReport(id, results)
}

// NewReport totals a result list.
func NewReport(runID string, results []extract.Result) Report {
	r := Report{RunID: runID, Results: results, Total: len(results)}
	if r.Results == nil {
		r.Results = []extract.Result{}
	}
	for _, res := range results {
		if res.Success {
			r.Succeeded++
		}
	}
	return r
}

// ProcessFiles extracts local files. A missing file yields a failure record.
func (o *Orchestrator) ProcessFiles(ctx context.Context, paths []string) []extract.Result {
	out := make([]extract.Result, 0, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			loggerFrom(ctx).Warn().Str("file", p).Msg("file not found")
			out = append(out, extract.Failed(filepath.Base(p), "file not found").WithProvenance(SourceLocal, "", ""))
			continue
		}
		out = append(out, o.extract(ctx, p).WithProvenance(SourceLocal, "", ""))
	}
	return out
}

// ProcessURLs downloads and extracts each URL; sources that cannot be
// retrieved are skipped.
func (o *Orchestrator) ProcessURLs(ctx context.Context, urls []string) []extract.Result {
	out := make([]extract.Result, 0, len(urls))
	for _, u := range urls {
		path, ok := o.retrieve(ctx, u)
		if !ok {
			continue
		}
		out = append(out, o.extract(ctx, path).WithProvenance(SourceURL, u, u))
	}
	return out
}

// ProcessPages extracts every document linked from each page.
func (o *Orchestrator) ProcessPages(ctx context.Context, pages []string) []extract.Result {
	var out []extract.Result
	if o.Links == nil {
		loggerFrom(ctx).Error().Msg("no link finder configured")
		return out
	}
	for _, page := range pages {
		if o.Gate != nil && !o.Gate.Allowed(ctx, page) {
			loggerFrom(ctx).Warn().Str("url", page).Msg("page disallowed by robots.txt; skipping")
			continue
		}
		for _, link := range aggregate.UniqueURLs(o.Links.PDFLinks(ctx, page)) {
			path, ok := o.retrieve(ctx, link)
			if !ok {
				continue
			}
			out = append(out, o.extract(ctx, path).WithProvenance(SourceWebPage, page, link))
		}
	}
	return out
}

// Retrieve applies the robots gate and link validation to u and downloads
// it. A URL refused by either check yields an error wrapping ErrSkipped;
// download failures wrap fetch.ErrNotRetrieved.
func (o *Orchestrator) Retrieve(ctx context.Context, u string) (string, error) {
	if o.Downloader == nil {
		return "", errors.New("no downloader configured")
	}
	if o.Gate != nil && !o.Gate.Allowed(ctx, u) {
		return "", fmt.Errorf("%w: disallowed by robots.txt", ErrSkipped)
	}
	if o.ValidateLinks && o.Validator != nil && !o.Validator.Validate(ctx, u) {
		return "", fmt.Errorf("%w: link failed validation", ErrSkipped)
	}
	return o.Downloader.Download(ctx, u)
}

func (o *Orchestrator) retrieve(ctx context.Context, u string) (string, bool) {
	path, err := o.Retrieve(ctx, u)
	if err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("url", u).Msg("source not retrieved; skipping")
		return "", false
	}
	return path, true
}

// extract runs the extractor and converts a panic into a failure record.
func (o *Orchestrator) extract(ctx context.Context, path string) (res extract.Result) {
	name := filepath.Base(path)
	if o.Extractor == nil {
		return extract.Failed(name, "extractor not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			loggerFrom(ctx).Error().Str("file", name).Interface("panic", r).Msg("extraction panicked")
			res = extract.Failed(name, fmt.Sprintf("extraction panicked: %v", r))
		}
	}()
	return o.Extractor.Extract(ctx, path)
}

func (o *Orchestrator) runID() string {
	if o.NewRunID != nil {
		return o.NewRunID()
	}
	return uuid.NewString()
}

// ErrSkipped marks a URL refused before any download was attempted.
var ErrSkipped = errors.New("source skipped")

// ErrNoSources is returned by callers that require at least one source.
var ErrNoSources = errors.New("no sources given")

// loggerFrom returns the run logger attached by Run, or the global logger
// when a Process method is called directly.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
