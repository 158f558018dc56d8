package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/docextract/internal/ocr"
)

type fakeLayer struct {
	pages    int
	text     string
	err      error
	panicMsg string
}

func (f fakeLayer) PageCount(string) (int, error) { return f.pages, nil }

func (f fakeLayer) Text(context.Context, string) (string, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.text, f.err
}

type fakeRasterizer struct {
	dir   string
	pages int
	calls int
}

func (f *fakeRasterizer) Name() string { return "fake" }

func (f *fakeRasterizer) Rasterize(_ context.Context, _ string, _ int) (ocr.Pages, error) {
	f.calls++
	dir, err := os.MkdirTemp(f.dir, "pages-*")
	if err != nil {
		return ocr.Pages{}, err
	}
	p := ocr.Pages{Dir: dir}
	for i := 1; i <= f.pages; i++ {
		p.Paths = append(p.Paths, filepath.Join(dir, "page-"+string(rune('0'+i))+".png"))
	}
	return p, nil
}

type fakeEngine struct {
	byPage map[string]string
	calls  int
	err    error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.byPage[filepath.Base(path)], nil
}

func TestPDFCascade_TextLayerWins(t *testing.T) {
	r := &fakeRasterizer{dir: t.TempDir(), pages: 3}
	e := &fakeEngine{}
	c := &PDFCascade{Layer: fakeLayer{pages: 3, text: strings.Repeat("a", 500)}, Rasterizer: r, Engine: e}

	res := c.Extract(context.Background(), "/in/report.pdf")
	if !res.Success || res.MethodName() != "pdfminer" {
		t.Fatalf("expected pdfminer success, got %+v", res)
	}
	if res.PageCount == nil || *res.PageCount != 3 {
		t.Fatalf("expected page count 3, got %v", res.PageCount)
	}
	if len(res.Text()) != 500 {
		t.Fatalf("expected 500 chars, got %d", len(res.Text()))
	}
	if r.calls != 0 || e.calls != 0 {
		t.Fatalf("expected OCR not invoked, rasterize=%d recognize=%d", r.calls, e.calls)
	}
	if res.FileName != "report.pdf" {
		t.Fatalf("expected base name, got %q", res.FileName)
	}
}

func TestPDFCascade_ScannedFallsBackToOCR(t *testing.T) {
	long1 := strings.Repeat("first page words ", 4)
	long2 := strings.Repeat("second page words ", 4)
	r := &fakeRasterizer{dir: t.TempDir(), pages: 2}
	e := &fakeEngine{byPage: map[string]string{"page-1.png": "  " + long1 + "\n", "page-2.png": long2}}
	c := &PDFCascade{Layer: fakeLayer{pages: 2, text: ""}, Rasterizer: r, Engine: e}

	res := c.Extract(context.Background(), "scan.pdf")
	if !res.Success || res.MethodName() != "ocr" {
		t.Fatalf("expected ocr success, got %+v", res)
	}
	want := strings.TrimSpace(long1) + "\n\n" + strings.TrimSpace(long2)
	if res.Text() != want {
		t.Fatalf("expected pages joined by blank line, got %q", res.Text())
	}
	if *res.PageCount != 2 {
		t.Fatalf("expected page count 2, got %d", *res.PageCount)
	}
	if r.calls != 1 {
		t.Fatalf("expected one rasterization per document, got %d", r.calls)
	}
	if e.calls != 2 {
		t.Fatalf("expected one recognition per page, got %d", e.calls)
	}
	entries, _ := os.ReadDir(r.dir)
	if len(entries) != 0 {
		t.Fatalf("expected rasterized pages cleaned up, found %d", len(entries))
	}
}

func TestPDFCascade_MinTextLengthOneAcceptsShortText(t *testing.T) {
	r := &fakeRasterizer{dir: t.TempDir(), pages: 1}
	c := &PDFCascade{Layer: fakeLayer{pages: 1, text: "sixteen chars ok"}, Rasterizer: r, Engine: &fakeEngine{}, MinTextLength: 1}

	res := c.Extract(context.Background(), "short.pdf")
	if !res.Success || res.MethodName() != "pdfminer" {
		t.Fatalf("expected short text accepted, got %+v", res)
	}
	if r.calls != 0 {
		t.Fatalf("expected OCR not invoked, got %d", r.calls)
	}
}

func TestPDFCascade_BothPhasesShortFails(t *testing.T) {
	r := &fakeRasterizer{dir: t.TempDir(), pages: 1}
	e := &fakeEngine{byPage: map[string]string{"page-1.png": "0123456789"}}
	c := &PDFCascade{Layer: fakeLayer{pages: 1, text: strings.Repeat("x", 20)}, Rasterizer: r, Engine: e}

	res := c.Extract(context.Background(), "thin.pdf")
	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.ExtractionMethod != nil || res.ExtractedText != nil {
		t.Fatalf("expected null method and text, got %v %v", res.MethodName(), res.Text())
	}
	if res.PageCount == nil || *res.PageCount != 1 {
		t.Fatalf("expected page count kept on failure, got %v", res.PageCount)
	}
}

func TestPDFCascade_ThresholdIsInclusive(t *testing.T) {
	c := &PDFCascade{Layer: fakeLayer{pages: 1, text: strings.Repeat("é", 50)}}
	res := c.Extract(context.Background(), "edge.pdf")
	if !res.Success {
		t.Fatalf("expected exactly 50 characters to pass, got %+v", res)
	}
}

func TestPDFCascade_TextLayerPanicRecovered(t *testing.T) {
	e := &fakeEngine{byPage: map[string]string{"page-1.png": strings.Repeat("recovered ", 10)}}
	c := &PDFCascade{
		Layer:      fakeLayer{pages: 1, panicMsg: "malformed xref"},
		Rasterizer: &fakeRasterizer{dir: t.TempDir(), pages: 1},
		Engine:     e,
	}
	res := c.Extract(context.Background(), "broken.pdf")
	if !res.Success || res.MethodName() != "ocr" {
		t.Fatalf("expected OCR after panic, got %+v", res)
	}
}

func TestPDFCascade_PageErrorsLeaveGaps(t *testing.T) {
	e := &fakeEngine{err: errors.New("engine down")}
	c := &PDFCascade{
		Layer:      fakeLayer{pages: 2, err: errors.New("encrypted")},
		Rasterizer: &fakeRasterizer{dir: t.TempDir(), pages: 2},
		Engine:     e,
	}
	res := c.Extract(context.Background(), "x.pdf")
	if res.Success {
		t.Fatalf("expected failure")
	}
	if e.calls != 2 {
		t.Fatalf("expected every page attempted, got %d", e.calls)
	}
	if res.Error == "" {
		t.Fatalf("expected error reason")
	}
}

func TestPDFTextLayer_PageCountOfGeneratedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "three.pdf")
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < 3; i++ {
		doc.AddPage()
		doc.Cell(40, 10, "Quarterly figures page")
	}
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	n, err := PDFTextLayer{}.PageCount(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 pages, got %d", n)
	}
}

func TestPDFTextLayer_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (PDFTextLayer{}).PageCount(path); err == nil {
		t.Fatalf("expected error for non-PDF content")
	}
	c := &PDFCascade{Layer: PDFTextLayer{}}
	res := c.Extract(context.Background(), path)
	if res.Success || res.PageCount == nil || *res.PageCount != 0 {
		t.Fatalf("expected failed record with page count 0, got %+v", res)
	}
}
