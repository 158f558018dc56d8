package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/docextract/internal/export"
	"github.com/hyperifyio/docextract/internal/extract"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling parts to disk.
const multipartMemory = 8 << 20

type urlRequest struct {
	URL string `json:"url"`
}

type batchResponse struct {
	Results []extract.Result `json:"results"`
	Total   int              `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSupportedFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"extensions": extract.SupportedExtensions()})
}

func (s *Server) handleExtractFile(w http.ResponseWriter, r *http.Request) {
	files, ok := s.parseUploads(w, r, "file")
	if !ok {
		return
	}
	fh := files[0]
	if !extract.IsSupported(fh.Filename) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unsupported format. Supported: %s", strings.Join(extract.SupportedExtensions(), ", ")))
		return
	}
	if fh.Size == 0 {
		writeError(w, http.StatusBadRequest, "Empty file")
		return
	}
	res, err := s.extractUpload(r, fh)
	if err != nil {
		log.Error().Err(err).Str("file", fh.Filename).Msg("upload handling failed")
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExtractURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Request body must be {\"url\": \"...\"}")
		return
	}
	res, err := s.Service.ExtractURL(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		log.Warn().Err(err).Str("url", req.URL).Msg("url extraction failed")
		writeError(w, http.StatusBadRequest, "Failed to download file")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	results, ok := s.runBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results, Total: len(results)})
}

// handleExport runs the batch and returns the export as an attachment. The
// format follows the last path segment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(strings.TrimPrefix(r.URL.Path, "/export/"))
	results, ok := s.runBatch(w, r)
	if !ok {
		return
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, results); err != nil {
		log.Error().Err(err).Str("format", string(format)).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}
	name := export.FileName(format, now)
	if s.ExportDir != "" {
		if err := os.MkdirAll(s.ExportDir, 0o755); err == nil {
			if err := os.WriteFile(filepath.Join(s.ExportDir, name), buf.Bytes(), 0o644); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("could not keep export copy")
			}
		}
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// runBatch extracts every "files" part in order. Unsupported entries become
// failure records rather than failing the request.
func (s *Server) runBatch(w http.ResponseWriter, r *http.Request) ([]extract.Result, bool) {
	files, ok := s.parseUploads(w, r, "files")
	if !ok {
		return nil, false
	}
	results := make([]extract.Result, 0, len(files))
	for _, fh := range files {
		if !extract.IsSupported(fh.Filename) {
			results = append(results, extract.Failed(fh.Filename, "Unsupported format"))
			continue
		}
		res, err := s.extractUpload(r, fh)
		if err != nil {
			log.Error().Err(err).Str("file", fh.Filename).Msg("upload handling failed")
			res = extract.Failed(fh.Filename, "Failed to store upload")
		}
		results = append(results, res)
	}
	return results, true
}

// parseUploads reads the multipart body and returns the parts under field.
// It writes the error response itself and reports false on failure.
func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request, field string) ([]*multipart.FileHeader, bool) {
	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Expected a multipart/form-data body")
		return nil, false
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing %q upload", field))
		return nil, false
	}
	return files, true
}

// extractUpload copies the part into a private temp dir under its own base
// name, so the record's file_name matches the upload, and removes it after
// extraction.
func (s *Server) extractUpload(r *http.Request, fh *multipart.FileHeader) (extract.Result, error) {
	dir, err := os.MkdirTemp(s.TempDir, "upload-*")
	if err != nil {
		return extract.Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(fh.Filename, "\\", "/")))
	if name == "/" || name == "." {
		name = "upload" + strings.ToLower(filepath.Ext(fh.Filename))
	}
	path := filepath.Join(dir, name)
	if err := copyPart(fh, path); err != nil {
		return extract.Result{}, err
	}
	return s.Service.ExtractFile(r.Context(), path), nil
}

func copyPart(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy upload: %w", err)
	}
	return out.Close()
}
