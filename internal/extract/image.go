package extract

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/ocr"
)

// ImageExtractor runs OCR over a single raster image. Unlike the PDF cascade
// there is no minimum length: any non-blank recognition counts.
type ImageExtractor struct {
	Engine ocr.Engine
}

func (e ImageExtractor) Extract(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	res := newResult(name, MethodOCR)
	if e.Engine == nil {
		res.Error = "ocr engine not configured"
		return res
	}
	text, err := e.Engine.Recognize(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("file", name).Str("engine", e.Engine.Name()).Msg("image OCR failed")
		res.Error = err.Error()
		return res
	}
	if res.accept(text) {
		log.Info().Str("file", name).Msg("extracted text from image")
	} else {
		log.Warn().Str("file", name).Msg("no text found in image")
	}
	return res
}
