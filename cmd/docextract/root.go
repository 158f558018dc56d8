package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/docextract/internal/app"
	"github.com/hyperifyio/docextract/internal/batch"
)

// cli carries state shared between the root command and its subcommands.
type cli struct {
	configPath string
	envFiles   []string
	verbose    bool

	dataDir       string
	logLevel      string
	ocrEngine     string
	ocrLang       string
	rasterizer    string
	dpi           int
	minTextLength int
	timeoutSecs   int
	maxRetries    int
	validateLinks bool
	respectRobots bool
	strictPerms   bool
	refresh       bool

	cfg       app.Config
	logCloser io.Closer

	// newApp builds the pipeline; tests replace it to inject engines.
	newApp func(ctx context.Context, cfg app.Config) (*app.App, error)
}

func newCLI() *cli {
	c := &cli{}
	c.newApp = func(ctx context.Context, cfg app.Config) (*app.App, error) {
		return app.New(ctx, cfg, app.Options{Engine: inProcessEngine(cfg)})
	}
	return c
}

// execute runs root, logs a failure and releases the log file. Cobra skips
// post-run hooks when a command fails, so the file is closed here.
func (c *cli) execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil && !errors.Is(err, batch.ErrNoSources) {
		log.Error().Err(err).Msg("run failed")
	}
	if c.logCloser != nil {
		if cerr := c.logCloser.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing log file")
		}
		c.logCloser = nil
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docextract",
		Short:         "Extract text from PDF, DOCX, text and image documents",
		Long:          "docextract pulls machine-readable text out of documents found on disk, at URLs, on web pages or through search, and exports uniform records as JSON, CSV or XLSX.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Path to a YAML or JSON config file")
	pf.StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "Dotenv files to load (later files override earlier ones)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringVar(&c.dataDir, "data-dir", "", "Data directory holding raw/ downloads and processed/ exports")
	pf.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&c.ocrEngine, "ocr-engine", "", "OCR engine: tesseract, tesseract-cli or llm")
	pf.StringVar(&c.ocrLang, "ocr-lang", "", "Tesseract language codes, e.g. eng+fin")
	pf.StringVar(&c.rasterizer, "rasterizer", "", "PDF rasterizer: pdftoppm or ghostscript")
	pf.IntVar(&c.dpi, "dpi", 0, "Rasterization DPI for OCR")
	pf.IntVar(&c.minTextLength, "min-text-length", 0, "Minimum trimmed characters for an extraction to count as successful (at least 1; default 50)")
	pf.IntVar(&c.timeoutSecs, "timeout", 0, "Per-attempt download timeout in seconds")
	pf.IntVar(&c.maxRetries, "max-retries", 0, "Download attempts per URL")
	pf.BoolVar(&c.validateLinks, "validate-links", false, "HEAD-check URLs before downloading")
	pf.BoolVar(&c.respectRobots, "respect-robots", false, "Skip URLs and pages disallowed by robots.txt")
	pf.BoolVar(&c.refresh, "refresh", false, "Refetch scanned web pages instead of revalidating cached copies")
	pf.BoolVar(&c.strictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")

	root.AddCommand(c.extractCmd(), c.serveCmd(), c.formatsCmd(), c.cacheCmd(), c.versionCmd())
	return root
}

// loadConfig layers defaults, config file, dotenv, environment and flags, in
// that order, then sets up logging.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	cfg := app.DefaultConfig()
	if c.configPath != "" {
		fc, err := app.LoadConfigFile(c.configPath)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.LoadEnvFiles(c.envFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	app.ApplyEnvOverrides(&cfg)
	c.applyFlags(cmd, &cfg)

	closer, err := app.SetupLogging(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("file logging disabled")
	}
	c.logCloser = closer
	c.cfg = cfg
	return nil
}

// applyFlags copies only flags the user actually set.
func (c *cli) applyFlags(cmd *cobra.Command, cfg *app.Config) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("verbose") {
		cfg.Verbose = c.verbose
	}
	if changed("data-dir") {
		cfg.DataDir = c.dataDir
	}
	if changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if changed("ocr-engine") {
		cfg.OCREngine = c.ocrEngine
	}
	if changed("ocr-lang") {
		cfg.OCRLang = c.ocrLang
	}
	if changed("rasterizer") {
		cfg.Rasterizer = c.rasterizer
	}
	if changed("dpi") {
		cfg.OCRDPI = c.dpi
	}
	if changed("min-text-length") {
		cfg.MinTextLength = c.minTextLength
	}
	if changed("timeout") {
		cfg.DownloadTimeout = time.Duration(c.timeoutSecs) * time.Second
	}
	if changed("max-retries") {
		cfg.MaxRetries = c.maxRetries
	}
	if changed("validate-links") {
		cfg.ValidateLinks = c.validateLinks
	}
	if changed("respect-robots") {
		cfg.RespectRobots = c.respectRobots
	}
	if changed("cache.strictPerms") {
		cfg.CacheStrictPerms = c.strictPerms
	}
	if changed("refresh") {
		cfg.CacheRefresh = c.refresh
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docextract %s (commit %s, built %s)\n", BuildVersion, BuildCommit, BuildDate)
		},
	}
}
