// Package api exposes the editor over a loopback HTTP API and a websocket
// event stream.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/playback"
)

// AuthTokenKey is the kv key holding the bearer token for the API.
const AuthTokenKey = "auth_token"

// TokenStore reads the configured bearer token. *store.KV implements it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

type ServerConfig struct {
	Port       int
	Editor     *editor.Editor
	Dispatcher *command.Dispatcher
	Playback   *playback.Server
	Tokens     TokenStore

	// FrameRate is the EDL default when a request does not name one.
	FrameRate float64
	// MaxUploadBytes bounds media uploads. Zero disables the limit.
	MaxUploadBytes int64
	// AllowedOrigins extends the loopback CORS allowlist.
	AllowedOrigins []string

	Logger    *slog.Logger
	StartTime time.Time
	Version   string
}

type Server struct {
	httpServer *http.Server
	hub        *Hub
	logger     *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	hub := NewHub(cfg.Editor, cfg.Dispatcher, cfg.Logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      NewRouter(cfg, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(hub.Close)

	return &Server{httpServer: srv, hub: hub, logger: cfg.Logger}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Clients returns the number of connected event stream clients.
func (s *Server) Clients() int {
	return s.hub.Len()
}
