// Package upload persists uploaded images under server-generated keys. The
// client-supplied filename only contributes a sanitized extension; it is never
// used as a path.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"trashd/internal/apperr"
	"trashd/internal/common/fsutil"
)

// allowedExt maps lower-case extensions to the canonical stored extension.
var allowedExt = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".bmp":  ".bmp",
	".tif":  ".tiff",
	".tiff": ".tiff",
	".webp": ".webp",
}

// fallbackExt is used when the client filename has no recognised extension.
const fallbackExt = ".bin"

var keyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z]{3,4}$`)

// Store writes uploads into a single directory.
type Store struct {
	dir string
}

// Saved describes a stored upload.
type Saved struct {
	Key      string
	Path     string
	Filename string
	Size     int64
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	abs, err := fsutil.EnsureDir(dir)
	if err != nil {
		return nil, apperr.StartupConfig("upload dir", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *Store) Dir() string { return s.dir }

// SanitizeExt returns the canonical extension for a client filename.
func SanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filepath.ToSlash(filename))))
	if canon, ok := allowedExt[ext]; ok {
		return canon
	}
	return fallbackExt
}

// NewKey returns a fresh storage key for a client filename.
func NewKey(filename string) string {
	return uuid.NewString() + SanitizeExt(filename)
}

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool { return keyPattern.MatchString(key) }

// Save writes data under a new unique key. The bytes are written to a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial file.
func (s *Store) Save(filename string, data []byte) (Saved, error) {
	key := NewKey(filename)
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Saved{}, fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return Saved{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return Saved{}, fmt.Errorf("close upload: %w", err)
	}
	dst := filepath.Join(s.dir, key)
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return Saved{}, fmt.Errorf("rename upload: %w", err)
	}
	return Saved{Key: key, Path: dst, Filename: filepath.Base(filepath.ToSlash(filename)), Size: int64(len(data))}, nil
}

// Open returns a reader for a stored upload.
func (s *Store) Open(key string) (*os.File, error) {
	if !ValidKey(key) {
		return nil, apperr.NotFound("upload not found")
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("upload not found")
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes a stored upload.
func (s *Store) Remove(key string) error {
	if !ValidKey(key) {
		return apperr.NotFound("upload not found")
	}
	return os.Remove(filepath.Join(s.dir, key))
}

// ReadAll is a helper for tests and the CLI.
func (s *Store) ReadAll(key string) ([]byte, error) {
	f, err := s.Open(key)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
