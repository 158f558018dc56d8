package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperifyio/docextract/internal/extract"
	"github.com/hyperifyio/docextract/internal/fetch"
	"github.com/hyperifyio/docextract/internal/ocr"
)

// OCR engine and rasterizer names accepted in configuration.
const (
	EngineTesseract    = "tesseract"
	EngineTesseractCLI = "tesseract-cli"
	EngineLLM          = "llm"

	RasterizerPdftoppm    = "pdftoppm"
	RasterizerGhostscript = "ghostscript"
)

const defaultUserAgent = "docextract/1.0 (+https://github.com/hyperifyio/docextract)"

// Config holds runtime configuration for the application.
type Config struct {
	// Storage
	DataDir string
	LogDir  string

	// Retrieval
	DownloadTimeout time.Duration
	MaxRetries      int
	UserAgent       string
	ValidateLinks   bool
	RespectRobots   bool

	// Extraction
	OCRDPI         int
	MinTextLength  int
	OCREngine      string
	OCRLang        string
	TessdataPrefix string
	Rasterizer     string

	// LLM vision OCR
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Search
	GoogleAPIKey string
	GoogleCSEID  string
	SearxURL     string
	SearxKey     string
	SearxUA      string
	SearchFile   string
	SearchLimit  int

	// Cache maintenance
	CacheMaxAge         time.Duration
	CacheClear          bool
	CacheStrictPerms    bool
	// CacheRefresh refetches scanned pages without conditional headers.
	CacheRefresh        bool
	HTTPCacheMaxBytes   int64
	HTTPCacheMaxEntries int

	// HTTP API
	ListenAddr     string
	CORSOrigins    []string
	MaxUploadBytes int64

	// Behavior
	LogLevel string
	Verbose  bool
}

// DefaultConfig returns the built-in defaults, the lowest configuration layer.
func DefaultConfig() Config {
	return Config{
		DataDir:         "data",
		LogDir:          "logs",
		DownloadTimeout: fetch.DefaultTimeout,
		MaxRetries:      fetch.DefaultMaxAttempts,
		UserAgent:       defaultUserAgent,
		OCRDPI:          ocr.DefaultDPI,
		MinTextLength:   extract.DefaultMinTextLength,
		OCREngine:       EngineTesseract,
		OCRLang:         "eng",
		Rasterizer:      RasterizerPdftoppm,
		SearxUA:         defaultUserAgent,
		ListenAddr:      ":8000",
		CORSOrigins:     []string{"http://localhost:3000"},
		MaxUploadBytes:  50 << 20,
		LogLevel:        "info",
	}
}

// RawDir holds downloaded documents.
func (c Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// ProcessedDir is the default destination for exports.
func (c Config) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }

// PagesCacheDir holds cached web pages scanned for links.
func (c Config) PagesCacheDir() string { return filepath.Join(c.DataDir, "cache", "pages") }

// RobotsCacheDir holds revalidation data for robots.txt files.
func (c Config) RobotsCacheDir() string { return filepath.Join(c.DataDir, "cache", "robots") }

// ValidateConfig rejects settings the pipeline cannot run with.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("config: data dir is required")
	}
	if cfg.DownloadTimeout < 0 || cfg.MaxRetries < 0 || cfg.OCRDPI < 0 || cfg.MinTextLength < 0 ||
		cfg.SearchLimit < 0 || cfg.MaxUploadBytes < 0 || cfg.HTTPCacheMaxBytes < 0 || cfg.HTTPCacheMaxEntries < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.MinTextLength < 1 {
		return errors.New("config: min text length must be at least 1")
	}
	switch cfg.OCREngine {
	case EngineTesseract, EngineTesseractCLI:
	case EngineLLM:
		if strings.TrimSpace(cfg.LLMModel) == "" {
			return errors.New("config: llm.model is required for the llm OCR engine (or set LLM_MODEL)")
		}
	default:
		return fmt.Errorf("config: unknown OCR engine %q", cfg.OCREngine)
	}
	switch cfg.Rasterizer {
	case RasterizerPdftoppm, RasterizerGhostscript:
	default:
		return fmt.Errorf("config: unknown rasterizer %q", cfg.Rasterizer)
	}
	return nil
}

// OCRLanguages splits "eng+fin" or "eng,fin" into tesseract language codes.
func (c Config) OCRLanguages() []string {
	fields := strings.FieldsFunc(c.OCRLang, func(r rune) bool { return r == '+' || r == ',' || r == ' ' })
	if len(fields) == 0 {
		return []string{"eng"}
	}
	return fields
}
