package editor

import (
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/timeline"
)

type EventType string

const (
	EventTimeline EventType = "timeline"
	EventMedia    EventType = "media"
	EventPlayback EventType = "playback"
	EventView     EventType = "view"
	EventReset    EventType = "reset"
)

// Event is published after every change to the editor state.
type Event struct {
	Type     EventType   `json:"type"`
	Op       string      `json:"op,omitempty"`
	Media    *media.Item `json:"media,omitempty"`
	Snapshot *Snapshot   `json:"snapshot,omitempty"`
}

// Snapshot is the full editor state as seen by clients.
type Snapshot struct {
	Tracks        []timeline.Track `json:"tracks"`
	Clips         []timeline.Clip  `json:"clips"`
	Media         []media.Item     `json:"media"`
	CurrentTime   float64          `json:"current_time"`
	TotalDuration float64          `json:"total_duration"`
	IsPlaying     bool             `json:"is_playing"`
	ZoomLevel     float64          `json:"zoom_level"`
	Selection     *Selection       `json:"selection,omitempty"`
	Issues        []timeline.Issue `json:"issues,omitempty"`
	CanUndo       bool             `json:"can_undo"`
	CanRedo       bool             `json:"can_redo"`
}

// Summary states reported by Snapshot.State.
const (
	StateIdle      = "idle"
	StatePlaying   = "playing"
	StateAttention = "attention"
)

// State is playing while the playhead runs, attention while the timeline has
// integrity issues, and idle otherwise.
func (s Snapshot) State() string {
	switch {
	case s.IsPlaying:
		return StatePlaying
	case len(s.Issues) > 0:
		return StateAttention
	}
	return StateIdle
}

// PendingMedia counts items still generating or waiting for a probe.
func (s Snapshot) PendingMedia() int {
	n := 0
	for _, it := range s.Media {
		if it.Status == media.StatusGenerating || (!it.Probed && it.URL != "" && it.Status == media.StatusReady) {
			n++
		}
	}
	return n
}

func copySelection(s *Selection) *Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
