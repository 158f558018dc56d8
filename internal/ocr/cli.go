package ocr

import (
	"context"
	"fmt"
	"strings"
)

// TesseractCLI shells out to the tesseract binary. It needs no CGO, which
// makes it the portable choice when libtesseract headers are unavailable.
type TesseractCLI struct {
	// Path is the binary name or absolute path. Empty means "tesseract".
	Path        string
	Language    string
	TessdataDir string
	Runner      Runner
}

func (t *TesseractCLI) Name() string { return "tesseract-cli" }

func (t *TesseractCLI) Recognize(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang> [--tessdata-dir <dir>]
	args := []string{imagePath, "stdout", "-l", orDefault(t.Language, "eng")}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	out, errb, err := runnerOrExec(t.Runner).Run(ctx, orDefault(t.Path, "tesseract"), args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}
