// Package tesseract provides an in-process OCR engine backed by gosseract.
// It is a separate package because it links libtesseract through CGO.
package tesseract

import (
	"context"
	"fmt"
	"strconv"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes images with a fresh gosseract client per call.
type Engine struct {
	Languages   []string
	TessdataDir string
	// DPI is passed to tesseract as user_defined_dpi when set. Rasterized PDF
	// pages carry no resolution metadata of their own.
	DPI int

	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed engine.
func New(languages []string, tessdataDir string, dpi int) *Engine {
	return &Engine{Languages: languages, TessdataDir: tessdataDir, DPI: dpi, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	factory := e.clientFactory
	if factory == nil {
		factory = gosseract.NewClient
	}
	c := factory()
	defer c.Close()

	if e.TessdataDir != "" {
		c.SetTessdataPrefix(e.TessdataDir)
	}
	if len(e.Languages) > 0 {
		if err := c.SetLanguage(e.Languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if e.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
