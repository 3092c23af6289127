package editor

import (
	"fmt"

	"github.com/storyreel/storyreel/internal/timeline"
)

// The playhead advances with wall time while playing. It is derived on
// read rather than ticked, and stops at the end of the timeline.

func (e *Editor) currentTimeLocked() float64 {
	total := e.tl.TotalDuration()
	t := e.playBase
	if e.playing {
		t += e.opts.Now().Sub(e.playSince).Seconds()
	}
	return min(max(t, 0), total)
}

func (e *Editor) playingLocked() bool {
	if !e.playing {
		return false
	}
	if e.currentTimeLocked() >= e.tl.TotalDuration() {
		e.playBase = e.tl.TotalDuration()
		e.playing = false
	}
	return e.playing
}

func (e *Editor) seekLocked(t float64) {
	e.playBase = min(max(t, 0), e.tl.TotalDuration())
	e.playSince = e.opts.Now()
}

func (e *Editor) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTimeLocked()
}

// Seek moves the playhead, clamped to [0, total duration].
func (e *Editor) Seek(t float64) float64 {
	e.mu.Lock()
	e.seekLocked(t)
	now := e.currentTimeLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventPlayback, Op: "seek", Snapshot: &snap})
	return now
}

// Step moves the playhead by delta seconds.
func (e *Editor) Step(delta float64) float64 {
	e.mu.Lock()
	t := e.currentTimeLocked() + delta
	e.mu.Unlock()
	return e.Seek(t)
}

// StepFrames moves the playhead by n frames at the editor frame rate.
func (e *Editor) StepFrames(n int) float64 {
	return e.Step(float64(n) / e.opts.FrameRate)
}

// Play starts playback. At the end of the timeline it restarts from zero.
func (e *Editor) Play() bool {
	e.mu.Lock()
	total := e.tl.TotalDuration()
	if total > 0 && !e.playingLocked() {
		if e.currentTimeLocked() >= total-timeline.Epsilon {
			e.playBase = 0
		}
		e.playSince = e.opts.Now()
		e.playing = true
	}
	playing := e.playing
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventPlayback, Op: "play", Snapshot: &snap})
	return playing
}

func (e *Editor) Pause() {
	e.mu.Lock()
	if e.playing {
		e.playBase = e.currentTimeLocked()
		e.playing = false
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventPlayback, Op: "pause", Snapshot: &snap})
}

func (e *Editor) TogglePlay() bool {
	e.mu.Lock()
	playing := e.playingLocked()
	e.mu.Unlock()
	if playing {
		e.Pause()
		return false
	}
	return e.Play()
}

// SetZoom sets the view scale in pixels per second, clamped to [MinZoom, MaxZoom].
func (e *Editor) SetZoom(pps float64) float64 {
	e.mu.Lock()
	e.zoom = min(max(pps, MinZoom), MaxZoom)
	z := e.zoom
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventView, Op: "zoom", Snapshot: &snap})
	return z
}

func (e *Editor) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom
}

// Select marks a clip or media item as selected. An empty id clears the selection.
func (e *Editor) Select(kind SelectionKind, id string) error {
	e.mu.Lock()
	switch {
	case id == "":
		e.selection = nil
	case kind == SelectClip:
		if _, ok := e.tl.Clip(id); !ok {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s", timeline.ErrClipNotFound, id)
		}
		e.selection = &Selection{Kind: kind, ID: id}
	case kind == SelectMedia:
		if _, ok := e.catalog.Get(id); !ok {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s", timeline.ErrMediaNotFound, id)
		}
		e.selection = &Selection{Kind: kind, ID: id}
	default:
		e.mu.Unlock()
		return fmt.Errorf("%w: selection kind %q", timeline.ErrInvalidArgument, kind)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventView, Op: "select", Snapshot: &snap})
	return nil
}

func (e *Editor) Selection() *Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selection == nil {
		return nil
	}
	s := *e.selection
	return &s
}
