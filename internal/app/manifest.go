package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperifyio/docextract/internal/batch"
)

// manifestEntry is a compact record of one processed document.
type manifestEntry struct {
	Index     int    `json:"index"`
	FileName  string `json:"file_name"`
	SourceURL string `json:"source_url,omitempty"`
	Method    string `json:"method,omitempty"`
	Success   bool   `json:"success"`
	SHA256    string `json:"sha256,omitempty"`
	Chars     int    `json:"chars"`
}

// manifestMeta captures run details that aid reproducibility.
type manifestMeta struct {
	RunID       string    `json:"run_id"`
	OCREngine   string    `json:"ocr_engine"`
	Rasterizer  string    `json:"rasterizer"`
	MinText     int       `json:"min_text_length"`
	DPI         int       `json:"dpi"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Exports     []string  `json:"exports"`
	GeneratedAt time.Time `json:"generated_at"`
}

type manifest struct {
	Meta      manifestMeta    `json:"meta"`
	Documents []manifestEntry `json:"documents"`
}

func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func buildManifest(cfg Config, report batch.Report, exports []string, now time.Time) manifest {
	m := manifest{
		Meta: manifestMeta{
			RunID:       report.RunID,
			OCREngine:   cfg.OCREngine,
			Rasterizer:  cfg.Rasterizer,
			MinText:     cfg.MinTextLength,
			DPI:         cfg.OCRDPI,
			Total:       report.Total,
			Succeeded:   report.Succeeded,
			Exports:     make([]string, 0, len(exports)),
			GeneratedAt: now.UTC(),
		},
		Documents: make([]manifestEntry, 0, len(report.Results)),
	}
	for _, p := range exports {
		m.Meta.Exports = append(m.Meta.Exports, filepath.Base(p))
	}
	for i, r := range report.Results {
		e := manifestEntry{Index: i + 1, FileName: r.FileName, Method: r.MethodName(), Success: r.Success}
		if r.SourceURL != nil {
			e.SourceURL = *r.SourceURL
		}
		if text := r.Text(); text != "" {
			e.SHA256 = computeSHA256Hex(text)
			e.Chars = len([]rune(text))
		}
		m.Documents = append(m.Documents, e)
	}
	return m
}

// manifestPath returns extraction_<stamp>.manifest.json in dir.
func manifestPath(dir string, now time.Time) string {
	return filepath.Join(dir, "extraction_"+now.Format("20060102_150405")+".manifest.json")
}

// writeManifest writes the machine-readable sidecar for a run's exports.
func writeManifest(dir string, cfg Config, report batch.Report, exports []string, now time.Time) (string, error) {
	b, err := json.MarshalIndent(buildManifest(cfg, report, exports, now), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	p := manifestPath(dir, now)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return p, nil
}
