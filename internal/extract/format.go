package extract

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of document kinds the dispatcher knows about.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDOCX
	FormatText
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	default:
		return "unsupported"
	}
}

// supportedExtensions lists registered extensions in a stable order.
var supportedExtensions = []string{".pdf", ".docx", ".txt", ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}

// FormatOf maps an extension (with or without the leading dot, any case) to
// its Format.
func FormatOf(ext string) Format {
	ext = normalizeExt(ext)
	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatText
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp":
		return FormatImage
	default:
		return FormatUnsupported
	}
}

// FormatOfPath is FormatOf applied to the path's extension.
func FormatOfPath(path string) Format {
	return FormatOf(filepath.Ext(path))
}

// SupportedExtensions returns a copy of the registered extensions so callers
// can validate input before doing any I/O.
func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// IsSupported reports whether the file name carries a registered extension.
func IsSupported(name string) bool {
	return FormatOfPath(name) != FormatUnsupported
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
