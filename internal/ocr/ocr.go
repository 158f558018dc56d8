// Package ocr holds the optical character recognition engines and the PDF
// page rasterizers the extraction cascade falls back to.
package ocr

import (
	"context"
	"errors"
	"os"
)

// DefaultDPI is the rasterization resolution used for scanned PDFs.
const DefaultDPI = 200

// ErrNoPages is returned when a rasterizer ran but produced no page images.
var ErrNoPages = errors.New("no pages rendered")

// Engine recognizes text in a single raster image on disk.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Rasterizer renders every page of a PDF to an image file.
type Rasterizer interface {
	Name() string
	Rasterize(ctx context.Context, pdfPath string, dpi int) (Pages, error)
}

// Pages lists rendered page images in page order. Dir is the temporary
// directory holding them; Cleanup removes it.
type Pages struct {
	Dir   string
	Paths []string
}

// Cleanup removes the temporary directory holding the page images.
func (p Pages) Cleanup() {
	if p.Dir == "" {
		return
	}
	_ = os.RemoveAll(p.Dir)
}
