//go:build notesseract

package main

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/app"
	"github.com/hyperifyio/docextract/internal/ocr"
)

// inProcessEngine falls back to the tesseract binary in builds without
// libtesseract.
func inProcessEngine(cfg app.Config) ocr.Engine {
	if cfg.OCREngine != app.EngineTesseract {
		return nil
	}
	log.Warn().Msg("built without libtesseract; using the tesseract binary instead")
	return &ocr.TesseractCLI{TessdataDir: cfg.TessdataPrefix, Language: strings.Join(cfg.OCRLanguages(), "+")}
}
