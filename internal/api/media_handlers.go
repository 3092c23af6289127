package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/playback"
)

// uploadOverhead covers multipart framing on top of the file bytes.
const uploadOverhead = 1 << 20

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, MediaListResponse{Media: cfg.Editor.Catalog().List()})
	}
}

func addMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddMediaRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		it, err := cfg.Editor.AddMedia(r.Context(), media.Item{
			Name:     req.Name,
			URL:      req.URL,
			Kind:     req.Kind,
			Status:   req.Status,
			Duration: req.Duration,
			Width:    req.Width,
			Height:   req.Height,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, it)
	}
}

func uploadMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+uploadOverhead)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge, "upload too large", "TOO_LARGE")
				return
			}
			WriteError(w, http.StatusBadRequest, "multipart field \"file\" is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		it, err := cfg.Editor.ImportMedia(r.Context(), header.Filename, file)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, it)
	}
}

func completeMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteMediaRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		it, err := cfg.Editor.CompleteMedia(r.Context(), chi.URLParam(r, "id"), req.URL, req.Duration)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, it)
	}
}

func failMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FailMediaRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		if req.Reason == "" {
			req.Reason = "generation failed"
		}
		it, err := cfg.Editor.FailMedia(r.Context(), chi.URLParam(r, "id"), req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, it)
	}
}

func probeMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Editor.ProbeMedia(id); err != nil {
			writeDomainError(w, err)
			return
		}
		it, _ := cfg.Editor.Catalog().Get(id)
		WriteJSON(w, http.StatusAccepted, it)
	}
}

func removeMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.RemoveMedia(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func mediaFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Playback == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "UNAVAILABLE")
			return
		}
		id := chi.URLParam(r, "id")
		err := cfg.Playback.ServeMedia(w, r, id)
		switch {
		case errors.Is(err, playback.ErrNotFound):
			WriteError(w, http.StatusNotFound, "media file not available", "NOT_FOUND")
		case err != nil:
			cfg.Logger.Error("playback error", "error", err, "media_id", id)
			WriteError(w, http.StatusInternalServerError, "playback failed", "INTERNAL_ERROR")
		}
	}
}
