package extract

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const docHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

func writeDOCX(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(docHeader + body + `</w:body></w:document>`)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		".pdf": FormatPDF, "PDF": FormatPDF, ".docx": FormatDOCX, ".TXT": FormatText,
		".jpeg": FormatImage, ".tif": FormatImage, ".bmp": FormatImage, ".xyz": FormatUnsupported, "": FormatUnsupported,
	}
	for ext, want := range cases {
		if got := FormatOf(ext); got != want {
			t.Fatalf("FormatOf(%q): expected %v, got %v", ext, want, got)
		}
	}
	exts := SupportedExtensions()
	if len(exts) != 9 || exts[0] != ".pdf" {
		t.Fatalf("unexpected supported list %v", exts)
	}
	exts[0] = ".mutated"
	if SupportedExtensions()[0] != ".pdf" {
		t.Fatalf("expected SupportedExtensions to return a copy")
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "notes.xyz", []byte("irrelevant"))
	res := New(nil, nil, Options{}).Extract(context.Background(), p)
	if res.Success || res.FileName != "notes.xyz" {
		t.Fatalf("expected failed record for notes.xyz, got %+v", res)
	}
	if res.ExtractionMethod != nil || res.PageCount != nil || res.ExtractedText != nil {
		t.Fatalf("expected all optional fields null, got %+v", res)
	}
	if !strings.Contains(res.Error, ".xyz") {
		t.Fatalf("expected reason to name extension, got %q", res.Error)
	}
}

func TestTextExtractor_UTF8(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.txt", []byte("  Grüße aus Köln\n"))
	res := TextExtractor{}.Extract(context.Background(), p)
	if !res.Success || res.Text() != "Grüße aus Köln" {
		t.Fatalf("expected trimmed utf-8 text, got %+v", res)
	}
	if res.MethodName() != "plaintext" || *res.PageCount != 1 {
		t.Fatalf("unexpected method/page count: %s %v", res.MethodName(), res.PageCount)
	}
}

func TestTextExtractor_LegacyEncoding(t *testing.T) {
	dir := t.TempDir()
	// "café" in a single-byte encoding: é is 0xE9, invalid as UTF-8.
	p := writeFile(t, dir, "legacy.txt", []byte{'c', 'a', 'f', 0xE9})
	res := TextExtractor{}.Extract(context.Background(), p)
	if !res.Success || res.Text() != "café" {
		t.Fatalf("expected café, got %q (%+v)", res.Text(), res)
	}
	_, enc, _ := decodeText([]byte{'c', 'a', 'f', 0xE9})
	if enc != "latin-1" {
		t.Fatalf("expected latin-1 to be chosen, got %q", enc)
	}
}

func TestTextExtractor_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "blank.txt", []byte(" \n\t "))
	res := TextExtractor{}.Extract(context.Background(), p)
	if res.Success || res.ExtractedText != nil {
		t.Fatalf("expected failure for blank file, got %+v", res)
	}
	if res.MethodName() != "plaintext" {
		t.Fatalf("expected attempted method kept, got %q", res.MethodName())
	}
}

func TestDOCXExtractor_ParagraphsThenTables(t *testing.T) {
	dir := t.TempDir()
	body := `<w:p><w:r><w:t>Intro</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">line </w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Qty</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p><w:r><w:t>Bolt</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc><w:tc><w:p><w:r><w:t>12</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl>` +
		`<w:p><w:r><w:t>Closing</w:t></w:r></w:p>`
	p := writeDOCX(t, dir, "memo.docx", body)

	res := DOCXExtractor{}.Extract(context.Background(), p)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	want := "Intro\tline \nClosing\nName | Qty\nBolt | 12"
	if res.Text() != want {
		t.Fatalf("expected %q, got %q", want, res.Text())
	}
	if res.MethodName() != "python-docx" || *res.PageCount != 1 {
		t.Fatalf("unexpected method/page count: %s %v", res.MethodName(), res.PageCount)
	}
}

func TestDOCXExtractor_NotAZip(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.docx", []byte("not a zip"))
	res := DOCXExtractor{}.Extract(context.Background(), p)
	if res.Success || res.Error == "" {
		t.Fatalf("expected failure with reason, got %+v", res)
	}
}

func TestDOCXExtractor_EmptyDocument(t *testing.T) {
	dir := t.TempDir()
	p := writeDOCX(t, dir, "empty.docx", `<w:p/>`)
	res := DOCXExtractor{}.Extract(context.Background(), p)
	if res.Success || res.ExtractedText != nil {
		t.Fatalf("expected failure for empty document, got %+v", res)
	}
}

func TestImageExtractor(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "receipt.png", []byte("png"))

	ok := ImageExtractor{Engine: &fakeEngine{byPage: map[string]string{"receipt.png": "\nTOTAL 9.99\n"}}}
	res := ok.Extract(context.Background(), p)
	if !res.Success || res.Text() != "TOTAL 9.99" || res.MethodName() != "ocr" {
		t.Fatalf("expected short OCR text accepted, got %+v", res)
	}

	blank := ImageExtractor{Engine: &fakeEngine{byPage: map[string]string{}}}
	if res := blank.Extract(context.Background(), p); res.Success {
		t.Fatalf("expected failure for blank OCR, got %+v", res)
	}

	broken := ImageExtractor{Engine: &fakeEngine{err: errors.New("tesseract missing")}}
	res = broken.Extract(context.Background(), p)
	if res.Success || res.Error != "tesseract missing" {
		t.Fatalf("expected engine error recorded, got %+v", res)
	}
}

func TestResult_JSONNulls(t *testing.T) {
	r := Failed("x.pdf", "boom").WithProvenance("url", "", "https://e.com/x.pdf")
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"page_count":null`, `"extraction_method":null`, `"extracted_text":null`, `"source_url":null`, `"source_type":"url"`, `"success":false`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}
