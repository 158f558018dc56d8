// Package extract turns documents on disk into uniform Result records.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/ocr"
)

// Options tunes the PDF cascade.
type Options struct {
	MinTextLength int
	DPI           int
}

// Extractor dispatches a file to the strategy registered for its format.
type Extractor struct {
	PDF   *PDFCascade
	Image ImageExtractor
	Text  TextExtractor
	DOCX  DOCXExtractor
}

// New wires the default strategies: the ledongthuc text layer, the given
// rasterizer and OCR engine for the PDF fallback, and the same engine for
// standalone images.
func New(engine ocr.Engine, rasterizer ocr.Rasterizer, opts Options) *Extractor {
	return &Extractor{
		PDF: &PDFCascade{
			Layer:         PDFTextLayer{},
			Rasterizer:    rasterizer,
			Engine:        engine,
			MinTextLength: opts.MinTextLength,
			DPI:           opts.DPI,
		},
		Image: ImageExtractor{Engine: engine},
	}
}

// Extract never returns an error: unsupported types and extraction failures
// are reported as failed records.
func (e *Extractor) Extract(ctx context.Context, path string) Result {
	switch FormatOfPath(path) {
	case FormatPDF:
		if e.PDF == nil {
			return Failed(filepath.Base(path), "pdf extraction not configured")
		}
		return e.PDF.Extract(ctx, path)
	case FormatDOCX:
		return e.DOCX.Extract(ctx, path)
	case FormatText:
		return e.Text.Extract(ctx, path)
	case FormatImage:
		return e.Image.Extract(ctx, path)
	case FormatUnsupported:
	}
	ext := strings.ToLower(filepath.Ext(path))
	log.Error().Str("file", filepath.Base(path)).Str("ext", ext).Msg("unsupported file type")
	return Failed(filepath.Base(path), fmt.Sprintf("unsupported format: %s", ext))
}
