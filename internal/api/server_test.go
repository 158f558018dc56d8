package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperifyio/docextract/internal/extract"
)

type fakeService struct {
	mu    sync.Mutex
	seen  []string
	files map[string]string
	err   error
}

func (f *fakeService) ExtractFile(_ context.Context, path string) extract.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := os.ReadFile(path)
	f.seen = append(f.seen, path)
	text := strings.TrimSpace(string(b))
	m := extract.MethodPlainText
	one := 1
	return extract.Result{FileName: filepath.Base(path), PageCount: &one, ExtractionMethod: &m, ExtractedText: &text, Success: text != ""}
}

func (f *fakeService) ExtractURL(_ context.Context, rawURL string) (extract.Result, error) {
	if f.err != nil {
		return extract.Result{}, f.err
	}
	text := "remote"
	return extract.Result{FileName: "doc.pdf", ExtractedText: &text, Success: true}.WithProvenance("url", rawURL, rawURL), nil
}

type upload struct{ name, body string }

func multipartBody(t *testing.T, field string, uploads ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(field, u.name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = fw.Write([]byte(u.body))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T, svc *fakeService) (*Server, *httptest.Server) {
	t.Helper()
	s := &Server{
		Service:     svc,
		CORSOrigins: []string{"http://localhost:3000"},
		TempDir:     t.TempDir(),
		ExportDir:   t.TempDir(),
		Now:         func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestHealthAndFormats(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var health map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", resp.StatusCode, health)
	}

	resp, err = http.Get(srv.URL + "/supported-formats")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var formats map[string][]string
	_ = json.NewDecoder(resp.Body).Decode(&formats)
	if len(formats["extensions"]) != len(extract.SupportedExtensions()) || formats["extensions"][0] != ".pdf" {
		t.Fatalf("unexpected formats %v", formats)
	}
}

func TestExtractFile(t *testing.T) {
	svc := &fakeService{}
	s, srv := newTestServer(t, svc)
	body, ct := multipartBody(t, "file", upload{"notes.txt", "hello upload"})
	resp, err := http.Post(srv.URL+"/extract/file", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res extract.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.FileName != "notes.txt" || res.Text() != "hello upload" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(svc.seen) != 1 {
		t.Fatalf("expected one extraction, got %d", len(svc.seen))
	}
	if _, err := os.Stat(svc.seen[0]); !os.IsNotExist(err) {
		t.Fatalf("expected temp upload removed, stat err=%v", err)
	}
	entries, _ := os.ReadDir(s.TempDir)
	if len(entries) != 0 {
		t.Fatalf("expected temp dir empty, got %d entries", len(entries))
	}
}

func TestExtractFile_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		field string
		up    upload
	}{
		{"unsupported extension", "file", upload{"sheet.xls", "x"}},
		{"empty upload", "file", upload{"empty.txt", ""}},
		{"wrong field", "other", upload{"a.txt", "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			_, srv := newTestServer(t, svc)
			body, ct := multipartBody(t, tc.field, tc.up)
			resp, err := http.Post(srv.URL+"/extract/file", ct, body)
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if len(svc.seen) != 0 {
				t.Fatalf("expected no extraction")
			}
		})
	}
}

func TestExtractFile_UploadLimit(t *testing.T) {
	svc := &fakeService{}
	s, srv := newTestServer(t, svc)
	s.MaxUploadBytes = 1024
	body, ct := multipartBody(t, "file", upload{"big.txt", strings.Repeat("a", 64<<10)})
	resp, err := http.Post(srv.URL+"/extract/file", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestExtractURL(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	resp, err := http.Post(srv.URL+"/extract/url", "application/json", strings.NewReader(`{"url":"https://example.com/a.pdf"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var res extract.Result
	_ = json.NewDecoder(resp.Body).Decode(&res)
	if resp.StatusCode != http.StatusOK || res.SourceURL == nil || *res.SourceURL != "https://example.com/a.pdf" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, res)
	}
}

func TestExtractURL_DownloadFailure(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{err: errors.New("document not retrieved")})
	resp, err := http.Post(srv.URL+"/extract/url", "application/json", strings.NewReader(`{"url":"https://example.com/a.pdf"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusBadRequest || body["detail"] != "Failed to download file" {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
}

func TestExtractBatch_MarksUnsupported(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	body, ct := multipartBody(t, "files", upload{"a.txt", "first"}, upload{"b.xyz", "?"}, upload{"c.txt", "third"})
	resp, err := http.Post(srv.URL+"/extract/batch", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var got batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || len(got.Results) != 3 {
		t.Fatalf("expected 3 results, got %+v", got)
	}
	bad := got.Results[1]
	if bad.FileName != "b.xyz" || bad.Success || bad.Error != "Unsupported format" {
		t.Fatalf("unexpected unsupported record %+v", bad)
	}
	if got.Results[2].Text() != "third" {
		t.Fatalf("expected input order kept, got %+v", got.Results[2])
	}
}

func TestExportCSV_Attachment(t *testing.T) {
	s, srv := newTestServer(t, &fakeService{})
	body, ct := multipartBody(t, "files", upload{"a.txt", "alpha"})
	resp, err := http.Post(srv.URL+"/export/csv", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "text/csv" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "extraction_20240102_030405.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "source_type" || rows[1][6] != "alpha" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if _, err := os.Stat(filepath.Join(s.ExportDir, "extraction_20240102_030405.csv")); err != nil {
		t.Fatalf("expected export copy kept: %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	body, ct := multipartBody(t, "files", upload{"a.txt", "alpha"})
	resp, err := http.Post(srv.URL+"/export/json", ct, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var recs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 || recs[0]["file_name"] != "a.txt" {
		t.Fatalf("unexpected records %v", recs)
	}
}

func TestCORS(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/extract/url", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected preflight %d %v", resp.StatusCode, resp.Header)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected CORS grant for foreign origin")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t, &fakeService{})
	resp, err := http.Get(srv.URL + "/extract/file")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
