package cache

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ArtifactStore is a flat directory of downloaded documents. A file that
// exists under its derived name is a completed download: writers stage the
// body in a temp file and rename it into place only on success.
type ArtifactStore struct {
	Dir string
	// Suffixes are the accepted extensions for names taken from the URL.
	// Empty means ".pdf" only.
	Suffixes []string
	// StrictPerms, when true, creates the directory 0700 and files 0600.
	StrictPerms bool

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (s *ArtifactStore) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("store dir not configured")
	}
	return mkdirMode(s.Dir, s.StrictPerms)
}

// NameFor derives the stored file name for a URL: the last path segment when
// it carries an accepted suffix, otherwise document_<8 hex of sha256(url)>.pdf.
func (s *ArtifactStore) NameFor(rawURL string) string {
	if base := urlBase(rawURL); base != "" && s.accepts(base) {
		return base
	}
	return "document_" + hashHex(rawURL)[:8] + ".pdf"
}

func (s *ArtifactStore) accepts(name string) bool {
	lower := strings.ToLower(name)
	suffixes := s.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{".pdf"}
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(suf)) {
			return true
		}
	}
	return false
}

func urlBase(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	if dec, err := url.PathUnescape(base); err == nil {
		base = dec
	}
	// Never let a decoded segment escape the store directory.
	if strings.ContainsAny(base, `/\`) || base == ".." {
		return ""
	}
	return base
}

// PathFor returns the absolute location a URL's artifact is stored at.
func (s *ArtifactStore) PathFor(rawURL string) string {
	return filepath.Join(s.Dir, s.NameFor(rawURL))
}

// Lookup reports whether a completed artifact exists for the URL.
func (s *ArtifactStore) Lookup(rawURL string) (string, bool) {
	p := s.PathFor(rawURL)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}

// Stage opens a temp file in the store directory for the URL's body. The
// caller must either Commit or Discard it.
func (s *ArtifactStore) Stage(rawURL string) (*os.File, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(s.Dir, "."+s.NameFor(rawURL)+".*.part")
	if err != nil {
		return nil, fmt.Errorf("stage artifact: %w", err)
	}
	if _, fm := modes(s.StrictPerms); s.StrictPerms {
		_ = f.Chmod(fm)
	}
	return f, nil
}

// Commit closes the staged file and renames it to the URL's final name.
func (s *ArtifactStore) Commit(f *os.File, rawURL string) (string, error) {
	tmp := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close staged artifact: %w", err)
	}
	dst := s.PathFor(rawURL)
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit artifact: %w", err)
	}
	return dst, nil
}

// Discard removes a staged file after a failed attempt.
func (s *ArtifactStore) Discard(f *os.File) {
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
}

// Lock serializes work on one URL. The returned func releases the lock.
func (s *ArtifactStore) Lock(rawURL string) func() {
	key := s.NameFor(rawURL)
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*keyLock)
	}
	l := s.locks[key]
	if l == nil {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
