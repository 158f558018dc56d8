package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hyperifyio/docextract/internal/extract"
)

// recordsSchema describes an exported JSON array. A successful record must
// carry non-empty text and a method.
const recordsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["file_name", "page_count", "extraction_method", "extracted_text", "success"],
    "properties": {
      "file_name": {"type": "string"},
      "page_count": {"type": ["integer", "null"], "minimum": 0},
      "extraction_method": {"enum": ["pdfminer", "ocr", "python-docx", "plaintext", null]},
      "extracted_text": {"type": ["string", "null"]},
      "success": {"type": "boolean"},
      "source_type": {"type": ["string", "null"]},
      "source_url": {"type": ["string", "null"]},
      "pdf_url": {"type": ["string", "null"]},
      "error": {"type": "string"}
    },
    "if": {"properties": {"success": {"const": true}}},
    "then": {
      "properties": {
        "extracted_text": {"type": "string", "minLength": 1},
        "extraction_method": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("records.json", bytes.NewReader([]byte(recordsSchema))); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("records.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks encoded records against the export schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal records: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("records do not match schema: %w", err)
	}
	return nil
}

// ValidateResults encodes results and validates them.
func ValidateResults(results []extract.Result) error {
	b, err := json.Marshal(nonNil(results))
	if err != nil {
		return err
	}
	return Validate(b)
}

func nonNil(results []extract.Result) []extract.Result {
	if results == nil {
		return []extract.Result{}
	}
	return results
}
