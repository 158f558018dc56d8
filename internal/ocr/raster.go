package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	// Path is the binary name or absolute path. Empty means "pdftoppm".
	Path   string
	Runner Runner
	// TempDir is the parent for per-document page directories. Empty means os.TempDir().
	TempDir string
}

func (p *Pdftoppm) Name() string { return "pdftoppm" }

func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath string, dpi int) (Pages, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	dir, err := os.MkdirTemp(p.TempDir, "docextract-pages-*")
	if err != nil {
		return Pages{}, fmt.Errorf("create page dir: %w", err)
	}
	pages := Pages{Dir: dir}
	prefix := filepath.Join(dir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <dir/page>
	_, errb, err := runnerOrExec(p.Runner).Run(ctx, orDefault(p.Path, "pdftoppm"), "-r", strconv.Itoa(dpi), "-png", pdfPath, prefix)
	if err != nil {
		pages.Cleanup()
		return Pages{}, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return collectPages(pages, prefix+"-*.png")
}

// Ghostscript renders pages with gs using the png16m device.
type Ghostscript struct {
	// Path is the binary name or absolute path. Empty means "gs".
	Path    string
	Runner  Runner
	TempDir string
}

func (g *Ghostscript) Name() string { return "ghostscript" }

func (g *Ghostscript) Rasterize(ctx context.Context, pdfPath string, dpi int) (Pages, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	dir, err := os.MkdirTemp(g.TempDir, "docextract-pages-*")
	if err != nil {
		return Pages{}, fmt.Errorf("create page dir: %w", err)
	}
	pages := Pages{Dir: dir}
	args := []string{
		"-sDEVICE=png16m",
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		"-r" + strconv.Itoa(dpi),
		"-sOutputFile=" + filepath.Join(dir, "page-%04d.png"),
		pdfPath,
	}
	_, errb, err := runnerOrExec(g.Runner).Run(ctx, orDefault(g.Path, "gs"), args...)
	if err != nil {
		pages.Cleanup()
		return Pages{}, fmt.Errorf("ghostscript: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return collectPages(pages, filepath.Join(dir, "page-*.png"))
}

func collectPages(pages Pages, pattern string) (Pages, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		pages.Cleanup()
		return Pages{}, err
	}
	if len(matches) == 0 {
		pages.Cleanup()
		return Pages{}, ErrNoPages
	}
	sortByPageNumber(matches)
	pages.Paths = matches
	return pages, nil
}

// sortByPageNumber orders page-N.png files numerically, so page-10 follows page-9
// whether or not the tool zero-padded the number.
func sortByPageNumber(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := pageNumber(paths[i]), pageNumber(paths[j])
		if a != b {
			return a < b
		}
		return paths[i] < paths[j]
	})
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	i := strings.LastIndexAny(base, "-_")
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func runnerOrExec(r Runner) Runner {
	if r == nil {
		return ExecRunner{}
	}
	return r
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
