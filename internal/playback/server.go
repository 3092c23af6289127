// Package playback streams catalog media to the preview player.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/storyreel/storyreel/internal/logging"
	"github.com/storyreel/storyreel/internal/media"
)

var ErrNotFound = errors.New("media not found")

// Items looks up catalog entries.
type Items interface {
	Get(id string) (media.Item, bool)
}

// Paths resolves locators owned by the local media store.
type Paths interface {
	Path(locator string) (string, bool)
}

type Server struct {
	items  Items
	paths  Paths
	logger *slog.Logger
}

func NewServer(items Items, paths Paths, logger *slog.Logger) *Server {
	return &Server{
		items:  items,
		paths:  paths,
		logger: logging.WithComponent(logging.OrDiscard(logger), "playback"),
	}
}

// ServeMedia writes the bytes of media id, honoring Range requests. Remote
// media is answered with a redirect to its URL. ErrNotFound is returned
// without writing so callers can render their own error body.
func (s *Server) ServeMedia(w http.ResponseWriter, r *http.Request, id string) error {
	it, ok := s.items.Get(id)
	if !ok || it.URL == "" {
		return ErrNotFound
	}
	if strings.HasPrefix(it.URL, "http://") || strings.HasPrefix(it.URL, "https://") {
		http.Redirect(w, r, it.URL, http.StatusTemporaryRedirect)
		return nil
	}
	if s.paths == nil {
		return ErrNotFound
	}
	path, ok := s.paths.Path(it.URL)
	if !ok {
		return ErrNotFound
	}
	return s.serveFile(w, r, path)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat media file: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", contentType)

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges are ignored and the whole file is sent.
		rng = nil
	}

	status, length := http.StatusOK, size
	if rng != nil {
		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			return fmt.Errorf("seek media file: %w", err)
		}
		status, length = http.StatusPartialContent, rng.Length()
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := io.CopyN(w, f, length); err != nil {
		s.logger.Debug("media stream interrupted", "path", logging.SanitizePath(path), "error", err)
	}
	return nil
}
