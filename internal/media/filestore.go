package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned when an import exceeds the byte limit.
var ErrTooLarge = errors.New("media file exceeds size limit")

// Releaser frees the resource behind a locally owned locator.
type Releaser interface {
	Release(locator string) error
}

// FileStore keeps imported media bytes under a single directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Import copies r into the store as <id><ext> and returns the file locator.
// maxBytes <= 0 disables the limit.
func (s *FileStore) Import(id, filename string, r io.Reader, maxBytes int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, id+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	if copyErr == nil && maxBytes > 0 && n > maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr != nil || closeErr != nil {
		os.Remove(path)
		if copyErr != nil {
			return "", fmt.Errorf("write media file: %w", copyErr)
		}
		return "", fmt.Errorf("close media file: %w", closeErr)
	}

	return "file://" + path, nil
}

// Release deletes the file behind locator. Locators outside the store are refused.
func (s *FileStore) Release(locator string) error {
	path := filepath.Clean(strings.TrimPrefix(locator, "file://"))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("locator %q is not owned by the media store", locator)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves a locator owned by the store to a file path.
func (s *FileStore) Path(locator string) (string, bool) {
	path := filepath.Clean(strings.TrimPrefix(locator, "file://"))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return path, true
}
