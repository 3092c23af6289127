package api

import (
	"errors"
	"net/http"

	"github.com/storyreel/storyreel/internal/session"
)

func sessionsOrUnavailable(cfg ServerConfig, w http.ResponseWriter) *session.Store {
	s := cfg.Editor.Sessions()
	if s == nil {
		WriteError(w, http.StatusServiceUnavailable, "session store is not configured", "UNAVAILABLE")
	}
	return s
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := sessionsOrUnavailable(cfg, w)
		if store == nil {
			return
		}
		s, ok := store.Load(r.Context())
		if !ok {
			WriteError(w, http.StatusNotFound, "no saved session", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, SessionResponse{Session: s, Persisted: true})
	}
}

func saveSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := sessionsOrUnavailable(cfg, w)
		if store == nil {
			return
		}
		var p session.Patch
		if !decodeJSON(w, r, &p, false) {
			return
		}

		s, err := store.Save(r.Context(), p)
		var perr *session.PersistenceError
		switch {
		case errors.As(err, &perr):
			// The merge happened; the caller keeps working from memory.
			WriteJSON(w, http.StatusOK, SessionResponse{Session: s, Warning: perr.Error()})
		case err != nil:
			writeDomainError(w, err)
		default:
			WriteJSON(w, http.StatusOK, SessionResponse{Session: s, Persisted: true})
		}
	}
}

func clearSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := sessionsOrUnavailable(cfg, w)
		if store == nil {
			return
		}
		if err := store.Clear(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
