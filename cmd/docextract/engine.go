//go:build !notesseract

package main

import (
	"github.com/hyperifyio/docextract/internal/app"
	"github.com/hyperifyio/docextract/internal/ocr"
	"github.com/hyperifyio/docextract/internal/ocr/tesseract"
)

// inProcessEngine builds the gosseract engine when it is selected.
func inProcessEngine(cfg app.Config) ocr.Engine {
	if cfg.OCREngine != app.EngineTesseract {
		return nil
	}
	return tesseract.New(cfg.OCRLanguages(), cfg.TessdataPrefix, cfg.OCRDPI)
}
