package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCXExtractor reads body paragraphs and table rows from Office Open XML
// word-processing documents.
type DOCXExtractor struct{}

func (DOCXExtractor) Extract(_ context.Context, path string) Result {
	name := filepath.Base(path)
	res := newResult(name, MethodDOCX)

	text, err := readDOCX(path)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("failed to extract docx")
		res.Error = err.Error()
		return res
	}
	if res.accept(text) {
		log.Info().Str("file", name).Msg("extracted text from docx")
	} else {
		log.Warn().Str("file", name).Msg("no text found in docx")
	}
	return res
}

func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return "", errors.New("word/document.xml not found")
}

// parseDocumentXML returns non-blank body paragraphs followed by one line per
// table row, its non-blank cells joined with " | ". Only top-level tables are
// flattened; paragraphs nested in a paragraph (text boxes) join their parent.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		rows       []string
		cells      []string
		cellParas  []string
		para       strings.Builder
		paraDepth  int
		tableDepth int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				if tableDepth == 1 {
					cells = cells[:0]
				}
			case "tc":
				if tableDepth == 1 {
					cellParas = cellParas[:0]
				}
			case "p":
				paraDepth++
				if paraDepth == 1 {
					para.Reset()
				}
			case "t":
				inText = true
			case "tab":
				if paraDepth > 0 {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if paraDepth > 0 {
					para.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if paraDepth == 0 {
					continue
				}
				paraDepth--
				if paraDepth > 0 {
					continue
				}
				text := para.String()
				switch tableDepth {
				case 0:
					if strings.TrimSpace(text) != "" {
						paragraphs = append(paragraphs, text)
					}
				case 1:
					cellParas = append(cellParas, text)
				}
			case "tc":
				if tableDepth == 1 {
					if cell := strings.TrimSpace(strings.Join(cellParas, "\n")); cell != "" {
						cells = append(cells, cell)
					}
				}
			case "tr":
				if tableDepth == 1 && len(cells) > 0 {
					rows = append(rows, strings.Join(cells, " | "))
				}
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			}
		case xml.CharData:
			if inText && paraDepth > 0 {
				para.Write(t)
			}
		}
	}
	return strings.Join(append(paragraphs, rows...), "\n"), nil
}
