package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/ocr"
)

// DefaultMinTextLength is the minimum number of characters either cascade
// phase must yield before its text is accepted. Image-only PDFs often carry a
// few stray characters (headers, page numbers) in their text layer.
const DefaultMinTextLength = 50

// TextLayer reads the embedded text of a PDF without OCR.
type TextLayer interface {
	PageCount(path string) (int, error)
	Text(ctx context.Context, path string) (string, error)
}

// PDFCascade extracts PDF text from the text layer first and falls back to
// rasterizing every page and running OCR when the text layer is too thin.
type PDFCascade struct {
	Layer      TextLayer
	Rasterizer ocr.Rasterizer
	Engine     ocr.Engine
	// MinTextLength applies to both phases. Zero means DefaultMinTextLength.
	MinTextLength int
	// DPI is the rasterization resolution. Zero means ocr.DefaultDPI.
	DPI int
}

// Extract always returns a well-formed record; phase failures are logged and
// treated as that phase yielding no usable text.
func (c *PDFCascade) Extract(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	res := Result{FileName: name, PageCount: intPtr(c.pageCount(path))}

	direct := c.textLayerPhase(ctx, path)
	switch direct.Kind {
	case OutcomeSuccess:
		res.ExtractionMethod = methodPtr(MethodTextLayer)
		res.ExtractedText = &direct.Text
		res.Success = true
		log.Info().Str("file", name).Str("method", string(MethodTextLayer)).Msg("extracted text from text layer")
		return res
	case OutcomeInsufficient:
		log.Debug().Str("file", name).Int("chars", len([]rune(direct.Text))).Msg("text layer too short; falling back to OCR")
	case OutcomeFailed:
		log.Warn().Err(direct.Err).Str("file", name).Msg("text layer extraction failed")
	}

	scanned := c.ocrPhase(ctx, path)
	switch scanned.Kind {
	case OutcomeSuccess:
		res.ExtractionMethod = methodPtr(MethodOCR)
		res.ExtractedText = &scanned.Text
		res.Success = true
		log.Info().Str("file", name).Str("method", string(MethodOCR)).Msg("extracted text using OCR")
		return res
	case OutcomeFailed:
		log.Warn().Err(scanned.Err).Str("file", name).Msg("OCR failed")
	}

	log.Error().Str("file", name).Msg("all extraction methods failed")
	res.Error = "all extraction methods failed"
	return res
}

func (c *PDFCascade) minTextLength() int {
	if c.MinTextLength > 0 {
		return c.MinTextLength
	}
	return DefaultMinTextLength
}

func (c *PDFCascade) dpi() int {
	if c.DPI > 0 {
		return c.DPI
	}
	return ocr.DefaultDPI
}

// pageCount counts pages independently of text extraction; any failure is 0.
func (c *PDFCascade) pageCount(path string) (n int) {
	if c.Layer == nil {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("file", filepath.Base(path)).Interface("panic", r).Msg("page count panicked")
			n = 0
		}
	}()
	n, err := c.Layer.PageCount(path)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *PDFCascade) textLayerPhase(ctx context.Context, path string) (out Outcome) {
	if c.Layer == nil {
		return failedOutcome(errors.New("text layer reader not configured"))
	}
	defer func() {
		if r := recover(); r != nil {
			out = failedOutcome(fmt.Errorf("text layer panic: %v", r))
		}
	}()
	text, err := c.Layer.Text(ctx, path)
	if err != nil {
		return failedOutcome(err)
	}
	return judge(text, c.minTextLength())
}

func (c *PDFCascade) ocrPhase(ctx context.Context, path string) (out Outcome) {
	if c.Rasterizer == nil || c.Engine == nil {
		return failedOutcome(errors.New("ocr not configured"))
	}
	defer func() {
		if r := recover(); r != nil {
			out = failedOutcome(fmt.Errorf("ocr panic: %v", r))
		}
	}()
	pages, err := c.Rasterizer.Rasterize(ctx, path, c.dpi())
	if err != nil {
		return failedOutcome(fmt.Errorf("rasterize: %w", err))
	}
	defer pages.Cleanup()

	name := filepath.Base(path)
	parts := make([]string, len(pages.Paths))
	for i, img := range pages.Paths {
		text, err := c.Engine.Recognize(ctx, img)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Int("page", i+1).Msg("OCR failed on page")
			continue
		}
		parts[i] = strings.TrimSpace(text)
	}
	return judge(strings.Join(parts, "\n\n"), c.minTextLength())
}
