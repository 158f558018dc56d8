package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/batch"
	"github.com/hyperifyio/docextract/internal/cache"
	"github.com/hyperifyio/docextract/internal/discover"
	"github.com/hyperifyio/docextract/internal/export"
	"github.com/hyperifyio/docextract/internal/extract"
	"github.com/hyperifyio/docextract/internal/fetch"
	"github.com/hyperifyio/docextract/internal/llm"
	"github.com/hyperifyio/docextract/internal/ocr"
	"github.com/hyperifyio/docextract/internal/robots"
	"github.com/hyperifyio/docextract/internal/search"
)

// ErrEngineUnavailable is returned when the configured OCR engine needs an
// implementation the caller did not provide.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Options injects collaborators that cannot be built from Config alone.
type Options struct {
	// Engine overrides the OCR engine. It is required for the in-process
	// tesseract engine, which lives in a CGO package.
	Engine ocr.Engine
	// LLM overrides the client used by the llm engine.
	LLM llm.Client
	// Runner executes external binaries. Nil means os/exec.
	Runner ocr.Runner
}

// App holds the wired pipeline.
type App struct {
	Config       Config
	Extractor    *extract.Extractor
	Downloader   *fetch.Downloader
	Orchestrator *batch.Orchestrator
	Search       search.Provider
}

// New builds the pipeline from cfg and applies the configured cache
// maintenance. It does not touch the network unless the llm engine is
// selected, in which case the model list is probed once.
func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	maintainCaches(cfg)

	httpClient := newHTTPClient(0)
	engine, err := buildEngine(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	rasterizer := buildRasterizer(cfg, opts.Runner)
	extractor := extract.New(engine, rasterizer, extract.Options{MinTextLength: cfg.MinTextLength, DPI: cfg.OCRDPI})

	downloader := &fetch.Downloader{
		Store: &cache.ArtifactStore{
			Dir:         cfg.RawDir(),
			Suffixes:    extract.SupportedExtensions(),
			StrictPerms: cfg.CacheStrictPerms,
		},
		HTTPClient:  httpClient,
		UserAgent:   cfg.UserAgent,
		MaxAttempts: cfg.MaxRetries,
		Timeout:     cfg.DownloadTimeout,
	}
	pages := &fetch.Client{
		HTTPClient:        httpClient,
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: cfg.DownloadTimeout,
		Cache:             &cache.HTTPCache{Dir: cfg.PagesCacheDir(), StrictPerms: cfg.CacheStrictPerms},
		BypassCache:       cfg.CacheRefresh,
	}
	provider := buildSearch(cfg, newHTTPClient(15*time.Second))

	a := &App{
		Config:     cfg,
		Extractor:  extractor,
		Downloader: downloader,
		Search:     provider,
	}
	a.Orchestrator = &batch.Orchestrator{
		Extractor:     extractor,
		Downloader:    downloader,
		Links:         &discover.Discoverer{Fetcher: pages},
		Search:        provider,
		SearchLimit:   cfg.SearchLimit,
		ValidateLinks: cfg.ValidateLinks,
		Validator:     downloader,
	}
	if cfg.RespectRobots {
		a.Orchestrator.Gate = &robots.Policy{
			HTTPClient: newHTTPClient(10 * time.Second),
			Cache:      &cache.HTTPCache{Dir: cfg.RobotsCacheDir(), StrictPerms: cfg.CacheStrictPerms},
			UserAgent:  cfg.UserAgent,
		}
	}
	log.Debug().
		Str("engine", engine.Name()).
		Str("rasterizer", rasterizer.Name()).
		Str("search", provider.Name()).
		Str("data_dir", cfg.DataDir).
		Msg("pipeline ready")
	return a, nil
}

// Run processes every source in req.
func (a *App) Run(ctx context.Context, req batch.Request) batch.Report {
	return a.Orchestrator.Run(ctx, req)
}

// ExtractFile extracts a single local file.
func (a *App) ExtractFile(ctx context.Context, path string) extract.Result {
	return a.Extractor.Extract(ctx, path)
}

// ExtractURL retrieves rawURL through the same robots and validation checks
// as a batch run and extracts it. The error wraps batch.ErrSkipped when a
// check refused the URL and fetch.ErrNotRetrieved when the download failed.
func (a *App) ExtractURL(ctx context.Context, rawURL string) (extract.Result, error) {
	path, err := a.Orchestrator.Retrieve(ctx, rawURL)
	if err != nil {
		return extract.Result{}, err
	}
	return a.Extractor.Extract(ctx, path).WithProvenance(batch.SourceURL, rawURL, rawURL), nil
}

// Export writes the report in each format to dir, plus a manifest sidecar,
// and returns the written export paths.
func (a *App) Export(report batch.Report, formats []export.Format, dir string, now time.Time) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = a.Config.ProcessedDir()
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		p, err := export.ToFile(dir, f, report.Results, now)
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", f, err)
		}
		paths = append(paths, p)
	}
	if mp, err := writeManifest(dir, a.Config, report, paths, now); err != nil {
		log.Warn().Err(err).Msg("manifest write failed")
	} else {
		log.Debug().Str("file", mp).Msg("wrote run manifest")
	}
	return paths, nil
}

func buildEngine(ctx context.Context, cfg Config, opts Options) (ocr.Engine, error) {
	if opts.Engine != nil {
		return opts.Engine, nil
	}
	switch cfg.OCREngine {
	case EngineTesseractCLI:
		return &ocr.TesseractCLI{
			Language:    strings.Join(cfg.OCRLanguages(), "+"),
			TessdataDir: cfg.TessdataPrefix,
			Runner:      opts.Runner,
		}, nil
	case EngineLLM:
		client := opts.LLM
		if client == nil {
			p := llm.NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey)
			probeModels(ctx, p)
			client = p
		}
		return &ocr.Vision{Client: client, Model: cfg.LLMModel}, nil
	case EngineTesseract:
		return nil, fmt.Errorf("%w: %s engine must be supplied by the caller", ErrEngineUnavailable, cfg.OCREngine)
	}
	return nil, fmt.Errorf("%w: %q", ErrEngineUnavailable, cfg.OCREngine)
}

// probeModels lists models once so a misconfigured endpoint shows up at
// startup. It never fails the caller.
func probeModels(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}

func buildRasterizer(cfg Config, runner ocr.Runner) ocr.Rasterizer {
	if cfg.Rasterizer == RasterizerGhostscript {
		return &ocr.Ghostscript{Runner: runner}
	}
	return &ocr.Pdftoppm{Runner: runner}
}

// buildSearch prefers Google when both credentials are set, then SearxNG,
// then a local results file. With none configured the Google provider is
// still returned so a search logs "not configured" and yields nothing.
func buildSearch(cfg Config, httpClient *http.Client) search.Provider {
	switch {
	case cfg.GoogleAPIKey != "" && cfg.GoogleCSEID != "":
		return &search.GoogleCSE{APIKey: cfg.GoogleAPIKey, CX: cfg.GoogleCSEID, HTTPClient: httpClient, UserAgent: cfg.UserAgent}
	case cfg.SearxURL != "":
		return &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: httpClient, UserAgent: cfg.SearxUA}
	case cfg.SearchFile != "":
		return &search.FileProvider{Path: cfg.SearchFile}
	}
	return &search.GoogleCSE{HTTPClient: httpClient, UserAgent: cfg.UserAgent}
}

// maintainCaches applies clear, age purge and size limits at startup.
// Failures are logged and never block the run.
func maintainCaches(cfg Config) {
	if cfg.CacheClear {
		if err := ClearCaches(cfg); err != nil {
			log.Warn().Err(err).Msg("cache clear failed")
		}
	}
	if cfg.CacheMaxAge > 0 {
		if _, err := PurgeCaches(cfg, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		}
	}
	if cfg.HTTPCacheMaxBytes > 0 || cfg.HTTPCacheMaxEntries > 0 {
		n, err := cache.EnforceHTTPCacheLimits(cfg.PagesCacheDir(), cfg.HTTPCacheMaxBytes, cfg.HTTPCacheMaxEntries)
		if err != nil {
			log.Warn().Err(err).Msg("page cache limit enforcement failed")
		} else if n > 0 {
			log.Info().Int("evicted", n).Msg("page cache trimmed")
		}
	}
}

// ClearCaches removes every downloaded document and cached page.
func ClearCaches(cfg Config) error {
	if err := cache.ClearDir(cfg.RawDir()); err != nil {
		return fmt.Errorf("clear %s: %w", cfg.RawDir(), err)
	}
	for _, dir := range []string{cfg.PagesCacheDir(), cfg.RobotsCacheDir()} {
		if err := cache.ClearDir(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	log.Info().Str("data_dir", cfg.DataDir).Msg("caches cleared")
	return nil
}

// PurgeCaches removes cached entries older than maxAge and returns how many
// files were deleted.
func PurgeCaches(cfg Config, maxAge time.Duration) (int, error) {
	n1, err := cache.PurgeArtifactsByAge(cfg.RawDir(), maxAge)
	if err != nil {
		return n1, fmt.Errorf("purge %s: %w", cfg.RawDir(), err)
	}
	n2, err := cache.PurgeHTTPCacheByAge(cfg.PagesCacheDir(), maxAge)
	if err != nil {
		return n1 + n2, fmt.Errorf("purge %s: %w", cfg.PagesCacheDir(), err)
	}
	if n1+n2 > 0 {
		log.Info().Int("artifacts", n1).Int("pages", n2).Dur("max_age", maxAge).Msg("purged stale cache entries")
	}
	return n1 + n2, nil
}
