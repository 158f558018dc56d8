package extract

import "strings"

// Method names the strategy that produced a result's text. The string values
// are the wire names consumers of the exports already depend on.
type Method string

const (
	MethodTextLayer Method = "pdfminer"
	MethodOCR       Method = "ocr"
	MethodDOCX      Method = "python-docx"
	MethodPlainText Method = "plaintext"
)

// Result is the uniform record produced once per processed document.
// Optional fields are pointers so that absent values serialize as null.
type Result struct {
	FileName         string  `json:"file_name"`
	PageCount        *int    `json:"page_count"`
	ExtractionMethod *Method `json:"extraction_method"`
	ExtractedText    *string `json:"extracted_text"`
	Success          bool    `json:"success"`

	// Provenance, attached by the batch layer rather than by extractors.
	SourceType *string `json:"source_type"`
	SourceURL  *string `json:"source_url"`
	PDFURL     *string `json:"pdf_url"`

	// Error carries a short failure reason. It is not part of the CSV columns.
	Error string `json:"error,omitempty"`
}

// Failed returns a failure record with every method and text field unset.
func Failed(fileName, reason string) Result {
	return Result{FileName: fileName, Error: reason}
}

// WithProvenance returns a copy of r tagged with where the document came from.
// Empty strings are recorded as null.
func (r Result) WithProvenance(sourceType, sourceURL, pdfURL string) Result {
	r.SourceType = optional(sourceType)
	r.SourceURL = optional(sourceURL)
	r.PDFURL = optional(pdfURL)
	return r
}

// Text returns the extracted text or "" when there is none.
func (r Result) Text() string {
	if r.ExtractedText == nil {
		return ""
	}
	return *r.ExtractedText
}

// MethodName returns the extraction method or "" when unset.
func (r Result) MethodName() string {
	if r.ExtractionMethod == nil {
		return ""
	}
	return string(*r.ExtractionMethod)
}

// newResult builds the common shape shared by the single-unit formats:
// the attempted method is recorded and page_count is fixed at 1.
func newResult(fileName string, method Method) Result {
	one := 1
	m := method
	return Result{FileName: fileName, PageCount: &one, ExtractionMethod: &m}
}

// accept stores text and marks success when it is non-empty after trimming.
func (r *Result) accept(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	r.ExtractedText = &text
	r.Success = true
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int { return &n }

func methodPtr(m Method) *Method { return &m }
