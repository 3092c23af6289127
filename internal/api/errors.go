package api

import (
	"errors"
	"net/http"

	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/export"
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/timeline"
)

// errorStatus maps domain errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	var (
		overlap  *timeline.OverlapError
		bounds   *timeline.BoundsError
		dangling *timeline.DanglingReferenceError
	)
	switch {
	case errors.As(err, &overlap):
		return http.StatusConflict, "OVERLAP"
	case errors.As(err, &bounds):
		return http.StatusUnprocessableEntity, "OUT_OF_BOUNDS"
	case errors.As(err, &dangling):
		return http.StatusConflict, "DANGLING_REFERENCE"

	case errors.Is(err, timeline.ErrClipNotFound),
		errors.Is(err, timeline.ErrTrackNotFound),
		errors.Is(err, timeline.ErrMediaNotFound),
		errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, timeline.ErrTrackLocked):
		return http.StatusConflict, "TRACK_LOCKED"
	case errors.Is(err, timeline.ErrIncompatibleTrack):
		return http.StatusUnprocessableEntity, "INCOMPATIBLE_TRACK"
	case errors.Is(err, timeline.ErrNoPrecedingClip),
		errors.Is(err, timeline.ErrNotMergeable):
		return http.StatusUnprocessableEntity, "INVALID_EDIT"
	case errors.Is(err, timeline.ErrNothingToUndo),
		errors.Is(err, timeline.ErrNothingToRedo):
		return http.StatusConflict, "HISTORY_EMPTY"
	case errors.Is(err, editor.ErrNoSelection):
		return http.StatusConflict, "NO_SELECTION"

	case errors.Is(err, media.ErrDuplicateID),
		errors.Is(err, media.ErrAlreadyProbed),
		errors.Is(err, media.ErrStatusFinal):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "TOO_LARGE"
	case errors.Is(err, editor.ErrNoFileStore),
		errors.Is(err, media.ErrClosed):
		return http.StatusServiceUnavailable, "UNAVAILABLE"

	case errors.Is(err, timeline.ErrInvalidArgument),
		errors.Is(err, media.ErrInvalidItem),
		errors.Is(err, media.ErrNoLocator),
		errors.Is(err, editor.ErrUnknownAction),
		errors.Is(err, session.ErrInvalidStep),
		errors.Is(err, export.ErrInvalidOutputDir):
		return http.StatusBadRequest, "BAD_REQUEST"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	WriteError(w, status, msg, code)
}
