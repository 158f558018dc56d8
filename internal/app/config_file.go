package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags/env.
type FileConfig struct {
	DataDir  string `yaml:"dataDir" json:"dataDir"`
	LogDir   string `yaml:"logDir" json:"logDir"`
	LogLevel string `yaml:"logLevel" json:"logLevel"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	Download struct {
		TimeoutSeconds int    `yaml:"timeoutSeconds" json:"timeoutSeconds"`
		MaxRetries     int    `yaml:"maxRetries" json:"maxRetries"`
		UserAgent      string `yaml:"userAgent" json:"userAgent"`
		ValidateLinks  bool   `yaml:"validateLinks" json:"validateLinks"`
		RespectRobots  bool   `yaml:"respectRobots" json:"respectRobots"`
	} `yaml:"download" json:"download"`

	OCR struct {
		Engine        string `yaml:"engine" json:"engine"`
		Lang          string `yaml:"lang" json:"lang"`
		DPI           int    `yaml:"dpi" json:"dpi"`
		MinTextLength int    `yaml:"minTextLength" json:"minTextLength"`
		Tessdata      string `yaml:"tessdata" json:"tessdata"`
		Rasterizer    string `yaml:"rasterizer" json:"rasterizer"`
	} `yaml:"ocr" json:"ocr"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Google struct {
		APIKey string `yaml:"apiKey" json:"apiKey"`
		CSEID  string `yaml:"cseId" json:"cseId"`
	} `yaml:"google" json:"google"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
		UA  string `yaml:"ua" json:"ua"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File  string `yaml:"file" json:"file"`
		Limit int    `yaml:"limit" json:"limit"`
	} `yaml:"search" json:"search"`

	Cache struct {
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Refresh     bool          `yaml:"refresh" json:"refresh"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
	} `yaml:"cache" json:"cache"`

	Server struct {
		Addr           string   `yaml:"addr" json:"addr"`
		CORSOrigins    []string `yaml:"corsOrigins" json:"corsOrigins"`
		MaxUploadBytes int64    `yaml:"maxUploadBytes" json:"maxUploadBytes"`
	} `yaml:"server" json:"server"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. It runs right
// after DefaultConfig, so file values replace defaults and are in turn
// replaced by environment variables and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setBool := func(dst *bool, v bool) {
		if v {
			*dst = true
		}
	}

	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.LogDir, fc.LogDir)
	setString(&cfg.LogLevel, fc.LogLevel)
	setBool(&cfg.Verbose, fc.Verbose)

	if fc.Download.TimeoutSeconds > 0 {
		cfg.DownloadTimeout = time.Duration(fc.Download.TimeoutSeconds) * time.Second
	}
	setInt(&cfg.MaxRetries, fc.Download.MaxRetries)
	setString(&cfg.UserAgent, fc.Download.UserAgent)
	setBool(&cfg.ValidateLinks, fc.Download.ValidateLinks)
	setBool(&cfg.RespectRobots, fc.Download.RespectRobots)

	setString(&cfg.OCREngine, fc.OCR.Engine)
	setString(&cfg.OCRLang, fc.OCR.Lang)
	setInt(&cfg.OCRDPI, fc.OCR.DPI)
	setInt(&cfg.MinTextLength, fc.OCR.MinTextLength)
	setString(&cfg.TessdataPrefix, fc.OCR.Tessdata)
	setString(&cfg.Rasterizer, fc.OCR.Rasterizer)

	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)

	setString(&cfg.GoogleAPIKey, fc.Google.APIKey)
	setString(&cfg.GoogleCSEID, fc.Google.CSEID)
	setString(&cfg.SearxURL, fc.Searx.URL)
	setString(&cfg.SearxKey, fc.Searx.Key)
	setString(&cfg.SearxUA, fc.Searx.UA)
	setString(&cfg.SearchFile, fc.Search.File)
	setInt(&cfg.SearchLimit, fc.Search.Limit)

	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	setBool(&cfg.CacheClear, fc.Cache.Clear)
	setBool(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)
	setBool(&cfg.CacheRefresh, fc.Cache.Refresh)
	if fc.Cache.MaxBytes > 0 {
		cfg.HTTPCacheMaxBytes = fc.Cache.MaxBytes
	}
	setInt(&cfg.HTTPCacheMaxEntries, fc.Cache.MaxEntries)

	setString(&cfg.ListenAddr, fc.Server.Addr)
	if len(fc.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = append([]string{}, fc.Server.CORSOrigins...)
	}
	if fc.Server.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = fc.Server.MaxUploadBytes
	}
}
