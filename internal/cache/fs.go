package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// modes returns directory and file permissions for a cache directory.
func modes(strict bool) (dir, file os.FileMode) {
	if strict {
		return 0o700, 0o600
	}
	return 0o755, 0o644
}

// mkdirMode creates dir and, in strict mode, tightens a pre-existing
// directory that was created with looser bits.
func mkdirMode(dir string, strict bool) error {
	dm, _ := modes(strict)
	if err := os.MkdirAll(dir, dm); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode().Perm() != dm {
			return os.Chmod(dir, dm)
		}
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func hashHex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
