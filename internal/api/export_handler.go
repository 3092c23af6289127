package api

import (
	"net/http"

	"github.com/storyreel/storyreel/internal/export"
)

const defaultExportTitle = "storyreel_export"

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if !decodeJSON(w, r, &req, true) {
			return
		}
		if req.OutputDir != "" {
			if err := export.ValidateOutputDir(req.OutputDir); err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
		}

		title := export.SanitizeName(req.Title, 120)
		if title == "" {
			title = defaultExportTitle
		}
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = cfg.FrameRate
		}

		snap := cfg.Editor.Snapshot()
		events, skipped := export.BuildEvents(snap.Clips, snap.Tracks, cfg.Editor.Catalog(), req.TrackIDs)
		if len(events) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "timeline has no exportable clips", "EMPTY_TIMELINE")
			return
		}

		edl := export.GenerateEDL(events, title, frameRate)
		resp := export.Response{
			Status:     "ok",
			Format:     "edl",
			EventCount: len(events),
			Skipped:    skipped,
		}
		if req.OutputDir == "" {
			resp.EDL = edl
			WriteJSON(w, http.StatusOK, resp)
			return
		}

		path, err := export.WriteEDL(req.OutputDir, title, edl)
		if err != nil {
			cfg.Logger.Error("failed to write edl", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}
		resp.OutputPath = path
		WriteJSON(w, http.StatusOK, resp)
	}
}
