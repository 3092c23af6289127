package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel/internal/logging"
)

func NewRouter(cfg ServerConfig, hub *Hub) *chi.Mux {
	cfg.Logger = logging.OrDiscard(cfg.Logger)
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins...))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Logger))

		r.Get("/status", statusHandler(cfg, hub))
		r.Post("/reset", resetHandler(cfg))

		r.Route("/media", func(r chi.Router) {
			r.Get("/", listMediaHandler(cfg))
			r.Post("/", addMediaHandler(cfg))
			r.Post("/upload", uploadMediaHandler(cfg))
			r.Post("/{id}/complete", completeMediaHandler(cfg))
			r.Post("/{id}/fail", failMediaHandler(cfg))
			r.Post("/{id}/probe", probeMediaHandler(cfg))
			r.Delete("/{id}", removeMediaHandler(cfg))
			r.With(LoopbackGuard()).Get("/{id}/file", mediaFileHandler(cfg))
			r.With(LoopbackGuard()).Head("/{id}/file", mediaFileHandler(cfg))
		})

		r.Route("/tracks", func(r chi.Router) {
			r.Get("/", listTracksHandler(cfg))
			r.Post("/", addTrackHandler(cfg))
			r.Patch("/{id}", updateTrackHandler(cfg))
			r.Delete("/{id}", removeTrackHandler(cfg))
		})

		r.Get("/timeline", timelineHandler(cfg))
		r.Get("/timeline/issues", issuesHandler(cfg))
		r.Post("/timeline/prune", pruneHandler(cfg))

		r.Route("/clips", func(r chi.Router) {
			r.Post("/", addClipHandler(cfg))
			r.Post("/merge", mergeClipsHandler(cfg))
			r.Post("/{id}/trim", trimClipHandler(cfg))
			r.Post("/{id}/move", moveClipHandler(cfg))
			r.Post("/{id}/split", splitClipHandler(cfg))
			r.Post("/{id}/transition", transitionHandler(cfg))
			r.Post("/{id}/speed", speedHandler(cfg))
			r.Post("/{id}/audio", audioHandler(cfg))
			r.Delete("/{id}", deleteClipHandler(cfg))
		})

		r.Post("/history/undo", undoHandler(cfg))
		r.Post("/history/redo", redoHandler(cfg))
		r.Post("/playhead", playheadHandler(cfg))
		r.Post("/view", viewHandler(cfg))
		r.Post("/keys", keyHandler(cfg))

		r.Get("/session", getSessionHandler(cfg))
		r.Put("/session", saveSessionHandler(cfg))
		r.Delete("/session", clearSessionHandler(cfg))

		r.Post("/export/edl", exportEDLHandler(cfg))

		r.With(LoopbackGuard()).Get("/events", hub.ServeHTTP)
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Editor.Snapshot()
		WriteJSON(w, http.StatusOK, StatusResponse{
			State:         snap.State(),
			MediaCount:    len(snap.Media),
			MediaPending:  snap.PendingMedia(),
			TracksCount:   len(snap.Tracks),
			ClipsCount:    len(snap.Clips),
			IssuesCount:   len(snap.Issues),
			TotalDuration: snap.TotalDuration,
			CurrentTime:   snap.CurrentTime,
			CanUndo:       snap.CanUndo,
			CanRedo:       snap.CanRedo,
			EventClients:  hub.Len(),
		})
	}
}

func resetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Reset(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Editor.Snapshot())
	}
}

// decodeJSON reads the request body into v. An empty body leaves v as is
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
	return false
}
