package api

import (
	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string  `json:"state"`
	MediaCount    int     `json:"media_count"`
	MediaPending  int     `json:"media_pending"`
	TracksCount   int     `json:"tracks_count"`
	ClipsCount    int     `json:"clips_count"`
	IssuesCount   int     `json:"issues_count"`
	TotalDuration float64 `json:"total_duration"`
	CurrentTime   float64 `json:"current_time"`
	CanUndo       bool    `json:"can_undo"`
	CanRedo       bool    `json:"can_redo"`
	EventClients  int     `json:"event_clients"`
}

type AddMediaRequest struct {
	Name     string       `json:"name"`
	URL      string       `json:"url"`
	Kind     media.Kind   `json:"kind"`
	Status   media.Status `json:"status,omitempty"`
	Duration float64      `json:"duration,omitempty"`
	Width    int          `json:"width,omitempty"`
	Height   int          `json:"height,omitempty"`
}

type CompleteMediaRequest struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration,omitempty"`
}

type FailMediaRequest struct {
	Reason string `json:"reason"`
}

type MediaListResponse struct {
	Media []media.Item `json:"media"`
}

type AddTrackRequest struct {
	Name string             `json:"name,omitempty"`
	Kind timeline.TrackKind `json:"kind"`
}

type UpdateTrackRequest struct {
	Name   *string  `json:"name,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Muted  *bool    `json:"is_muted,omitempty"`
	Locked *bool    `json:"is_locked,omitempty"`
}

type TracksResponse struct {
	Tracks []timeline.Track `json:"tracks"`
}

type IssuesResponse struct {
	Issues []timeline.Issue `json:"issues"`
}

type PruneResponse struct {
	Removed []string `json:"removed"`
}

type AddClipRequest struct {
	MediaID string  `json:"media_id"`
	TrackID string  `json:"track_id"`
	Start   float64 `json:"start"`
}

type TrimRequest struct {
	Edge timeline.Edge `json:"edge"`
	Time float64       `json:"time"`
}

type MoveRequest struct {
	TrackID string  `json:"track_id,omitempty"`
	Start   float64 `json:"start"`
	Snap    bool    `json:"snap"`
}

// SplitRequest splits at Time, or at the playhead when Time is omitted.
type SplitRequest struct {
	Time *float64 `json:"time,omitempty"`
}

type SplitResponse struct {
	Left  timeline.Clip `json:"left"`
	Right timeline.Clip `json:"right"`
}

type TransitionRequest struct {
	Type     timeline.TransitionType `json:"type"`
	Duration float64                 `json:"duration"`
}

type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

type AudioRequest struct {
	Detached bool `json:"detached"`
}

type MergeRequest struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

// PlayheadRequest drives the transport. Action is one of seek, play,
// pause, toggle, step. Time is the target for seek and the delta for step.
type PlayheadRequest struct {
	Action string  `json:"action"`
	Time   float64 `json:"time,omitempty"`
}

type ViewRequest struct {
	Zoom      *float64          `json:"zoom,omitempty"`
	Selection *editor.Selection `json:"selection,omitempty"`
	Clear     bool              `json:"clear_selection,omitempty"`
}

type KeyResponse struct {
	Action  string `json:"action,omitempty"`
	Handled bool   `json:"handled"`
}

// SessionResponse carries the wizard session. Persisted is false when the
// merge succeeded but the write did not.
type SessionResponse struct {
	Session   *session.Session `json:"session"`
	Persisted bool             `json:"persisted"`
	Warning   string           `json:"warning,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
