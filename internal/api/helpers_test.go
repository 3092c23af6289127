package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/playback"
	"github.com/storyreel/storyreel/internal/session"
)

const testToken = "test-token-123"

type tokenMap map[string]string

func (m tokenMap) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

type stubProber map[string]*media.ProbeResult

func (p stubProber) Probe(_ context.Context, locator string) (*media.ProbeResult, error) {
	if res, ok := p[locator]; ok {
		return res, nil
	}
	return nil, &media.ProbeError{Locator: locator, Err: errors.New("unreadable")}
}

type testEnv struct {
	cfg     ServerConfig
	hub     *Hub
	router  http.Handler
	catalog *media.Catalog
	editor  *editor.Editor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files, err := media.NewFileStore(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	catalog := media.NewCatalog(stubProber{
		"https://cdn.example/v.mp4": {Duration: 10, Width: 1920, Height: 1080},
		"https://cdn.example/a.wav": {Duration: 8},
	}, files, nil, media.Options{}, nil)
	t.Cleanup(catalog.Close)

	sessions := session.NewStore(session.NewMemoryStorage(0), session.Options{}, nil)
	ed := editor.New(catalog, files, sessions, editor.Options{}, nil)

	cfg := ServerConfig{
		Editor:     ed,
		Dispatcher: command.NewDispatcher(ed, nil, nil),
		Playback:   playback.NewServer(catalog, files, nil),
		Tokens:     tokenMap{AuthTokenKey: testToken},
		FrameRate:  30,
		StartTime:  time.Now(),
		Version:    "test",
	}
	hub := NewHub(ed, cfg.Dispatcher, nil)
	t.Cleanup(hub.Close)

	return &testEnv{cfg: cfg, hub: hub, router: NewRouter(cfg, hub), catalog: catalog, editor: ed}
}

// do sends an authorized JSON request and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) mustDo(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	rr := e.do(t, method, path, body)
	if rr.Code != wantStatus {
		t.Fatalf("%s %s status = %d, want %d; body %s", method, path, rr.Code, wantStatus, rr.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func (e *testEnv) addMedia(t *testing.T, url string, kind media.Kind) media.Item {
	t.Helper()
	var it media.Item
	e.mustDo(t, http.MethodPost, "/media", AddMediaRequest{URL: url, Kind: kind}, http.StatusCreated, &it)
	e.catalog.Wait()
	return it
}

func (e *testEnv) trackID(t *testing.T, i int) string {
	t.Helper()
	tracks := e.editor.Snapshot().Tracks
	if i >= len(tracks) {
		t.Fatalf("no track %d", i)
	}
	return tracks[i].ID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp
}
