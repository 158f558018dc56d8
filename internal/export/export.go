// Package export writes extraction results as JSON, CSV or XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/hyperifyio/docextract/internal/extract"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet XLSX exports write to.
const SheetName = "Extractions"

// Columns is the fixed column order of tabular exports.
var Columns = []string{"source_type", "source_url", "pdf_url", "file_name", "page_count", "extraction_method", "extracted_text"}

// maxCellChars is the XLSX per-cell text limit.
const maxCellChars = 32767

// ParseOutput expands an --output value into formats.
// "both" means JSON and CSV; "all" adds XLSX.
func ParseOutput(s string) ([]Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return []Format{FormatJSON}, nil
	case "csv":
		return []Format{FormatCSV}, nil
	case "xlsx":
		return []Format{FormatXLSX}, nil
	case "", "both":
		return []Format{FormatJSON, FormatCSV}, nil
	case "all":
		return []Format{FormatJSON, FormatCSV, FormatXLSX}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want json, csv, xlsx, both or all)", s)
}

// ContentType returns the media type of an encoded export.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// FileName returns extraction_YYYYMMDD_HHMMSS.<ext> for the given time.
func FileName(f Format, now time.Time) string {
	return "extraction_" + now.Format("20060102_150405") + "." + string(f)
}

// Write encodes results in the given format.
func Write(w io.Writer, f Format, results []extract.Result) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatXLSX:
		return WriteXLSX(w, results)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// ToFile writes results to dir under the default file name and returns the path.
func ToFile(dir string, f Format, results []extract.Result, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, results); err != nil {
		return "", err
	}
	p := filepath.Join(dir, FileName(f, now))
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	log.Info().Str("file", p).Int("records", len(results)).Str("format", string(f)).Msg("exported records")
	return p, nil
}

// WriteJSON writes an indented JSON array with non-ASCII text left unescaped.
// Records are validated against the export schema first.
func WriteJSON(w io.Writer, results []extract.Result) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(nonNil(results)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if err := Validate(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadJSON parses an exported JSON array.
func ReadJSON(r io.Reader) ([]extract.Result, error) {
	var out []extract.Result
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return out, nil
}

// WriteCSV writes a header and one row per result in Columns order. Null
// values become empty cells; fields outside Columns are dropped.
func WriteCSV(w io.Writer, results []extract.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same columns as WriteCSV to the Extractions sheet.
func WriteXLSX(w io.Writer, results []extract.Result) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	for ri, r := range results {
		for ci, v := range row(r) {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			var val any = truncateRunes(v, maxCellChars)
			if ci == 4 && r.PageCount != nil {
				val = *r.PageCount
			}
			if err := f.SetCellValue(SheetName, cell, val); err != nil {
				return fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
		}
	}
	_ = f.SetColWidth(SheetName, "A", "A", 12)
	_ = f.SetColWidth(SheetName, "B", "C", 40)
	_ = f.SetColWidth(SheetName, "D", "D", 28)
	_ = f.SetColWidth(SheetName, "E", "F", 16)
	_ = f.SetColWidth(SheetName, "G", "G", 80)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func row(r extract.Result) []string {
	pages := ""
	if r.PageCount != nil {
		pages = strconv.Itoa(*r.PageCount)
	}
	return []string{
		deref(r.SourceType),
		deref(r.SourceURL),
		deref(r.PDFURL),
		r.FileName,
		pages,
		r.MethodName(),
		r.Text(),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}
