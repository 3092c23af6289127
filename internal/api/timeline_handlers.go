package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/timeline"
)

func listTracksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, TracksResponse{Tracks: cfg.Editor.Snapshot().Tracks})
	}
}

func addTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddTrackRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		tr, err := cfg.Editor.AddTrack(req.Name, req.Kind)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, tr)
	}
}

func updateTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateTrackRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		tr, err := cfg.Editor.UpdateTrack(chi.URLParam(r, "id"), timeline.TrackUpdate{
			Name:   req.Name,
			Volume: req.Volume,
			Muted:  req.Muted,
			Locked: req.Locked,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, tr)
	}
}

func removeTrackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.RemoveTrack(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Editor.Snapshot())
	}
}

func issuesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issues := cfg.Editor.Issues()
		if issues == nil {
			issues = []timeline.Issue{}
		}
		WriteJSON(w, http.StatusOK, IssuesResponse{Issues: issues})
	}
}

func pruneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := cfg.Editor.PruneDangling()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if removed == nil {
			removed = []string{}
		}
		WriteJSON(w, http.StatusOK, PruneResponse{Removed: removed})
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.AddClip(req.MediaID, req.TrackID, req.Start)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, c)
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TrimRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.TrimClip(chi.URLParam(r, "id"), req.Edge, req.Time)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.MoveClip(chi.URLParam(r, "id"), req.TrackID, req.Start, req.Snap)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		id := chi.URLParam(r, "id")
		at := cfg.Editor.CurrentTime()
		if req.Time != nil {
			at = *req.Time
		}
		left, right, err := cfg.Editor.SplitClip(id, at)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Left: left, Right: right})
	}
}

func transitionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransitionRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.SetTransition(chi.URLParam(r, "id"), req.Type, req.Duration)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func speedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SpeedRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.SetSpeed(chi.URLParam(r, "id"), req.Speed)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func audioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AudioRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.SetAudioDetached(chi.URLParam(r, "id"), req.Detached)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func mergeClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MergeRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		c, err := cfg.Editor.MergeClips(req.LeftID, req.RightID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ripple, _ := strconv.ParseBool(r.URL.Query().Get("ripple"))
		if err := cfg.Editor.DeleteClip(chi.URLParam(r, "id"), ripple); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Undo(); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Editor.Snapshot())
	}
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Redo(); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Editor.Snapshot())
	}
}

func playheadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayheadRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		ed := cfg.Editor
		switch req.Action {
		case "seek":
			ed.Seek(req.Time)
		case "step":
			ed.Step(req.Time)
		case "play":
			ed.Play()
		case "pause":
			ed.Pause()
		case "toggle":
			ed.TogglePlay()
		default:
			WriteError(w, http.StatusBadRequest, "action must be seek, step, play, pause or toggle", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ed.Snapshot())
	}
}

func viewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		ed := cfg.Editor
		if req.Zoom != nil {
			ed.SetZoom(*req.Zoom)
		}
		switch {
		case req.Clear:
			ed.Select("", "")
		case req.Selection != nil:
			if err := ed.Select(req.Selection.Kind, req.Selection.ID); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		WriteJSON(w, http.StatusOK, ed.Snapshot())
	}
}

func keyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Dispatcher == nil {
			WriteError(w, http.StatusServiceUnavailable, "keyboard dispatch is not configured", "UNAVAILABLE")
			return
		}
		var ev command.KeyEvent
		if !decodeJSON(w, r, &ev, false) {
			return
		}
		action, handled, err := cfg.Dispatcher.Dispatch(r.Context(), ev)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, KeyResponse{Action: string(action), Handled: handled})
	}
}
