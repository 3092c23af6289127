// Package editor owns the editing session: the media catalog, the timeline
// with its history, the playhead, zoom and selection. All mutation of the
// aggregate goes through its methods.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/logging"
	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/session"
	"github.com/storyreel/storyreel/internal/timeline"
)

var (
	ErrNoSelection   = errors.New("no clip selected")
	ErrNoFileStore   = errors.New("media import is not configured")
	ErrUnknownAction = errors.New("unknown action")
)

const (
	MinZoom     = 1.0
	MaxZoom     = 1000.0
	DefaultZoom = 50.0
	zoomStep    = 1.25

	defaultFrameRate = 30.0
)

// RemovalPolicy decides what happens to clips whose media is removed.
type RemovalPolicy int

const (
	// RemovalFlag keeps the clips and reports them as broken.
	RemovalFlag RemovalPolicy = iota
	// RemovalPrune deletes them as an undoable edit.
	RemovalPrune
)

type SelectionKind string

const (
	SelectClip  SelectionKind = "clip"
	SelectMedia SelectionKind = "media"
)

type Selection struct {
	Kind SelectionKind `json:"kind"`
	ID   string        `json:"id"`
}

type Options struct {
	Tracks          []config.TrackTemplate
	Timeline        timeline.Options
	SnapThresholdPx float64
	FrameRate       float64
	RemovalPolicy   RemovalPolicy
	MaxImportBytes  int64
	Now             func() time.Time
}

// Editor is safe for concurrent use.
type Editor struct {
	catalog  *media.Catalog
	files    *media.FileStore
	sessions *session.Store
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	tl        *timeline.Timeline
	playBase  float64
	playSince time.Time
	playing   bool
	zoom      float64
	selection *Selection

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New builds an editor over catalog. files and sessions may be nil.
func New(catalog *media.Catalog, files *media.FileStore, sessions *session.Store, opts Options, logger *slog.Logger) *Editor {
	if len(opts.Tracks) == 0 {
		opts.Tracks = config.DefaultTracks()
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = defaultFrameRate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeline.DefaultDuration <= 0 {
		opts.Timeline.DefaultDuration = catalog.DefaultDuration()
	}

	e := &Editor{
		catalog:  catalog,
		files:    files,
		sessions: sessions,
		opts:     opts,
		logger:   logging.WithComponent(logging.OrDiscard(logger), "editor"),
		zoom:     DefaultZoom,
		subs:     make(map[int]func(Event)),
	}
	e.tl = timeline.New(catalog, opts.Timeline, TracksFromTemplate(opts.Tracks))
	catalog.OnChange(e.onMediaChange)
	return e
}

// TracksFromTemplate creates tracks with fresh ids from the configured template.
func TracksFromTemplate(tpl []config.TrackTemplate) []timeline.Track {
	tracks := make([]timeline.Track, 0, len(tpl))
	for _, t := range tpl {
		vol := 1.0
		if t.Volume != nil {
			vol = *t.Volume
		}
		tracks = append(tracks, timeline.Track{
			ID:       uuid.NewString(),
			Name:     t.Name,
			Kind:     timeline.TrackKind(t.Kind),
			Volume:   vol,
			IsMuted:  t.Muted,
			IsLocked: t.Locked,
		})
	}
	return tracks
}

func (e *Editor) Catalog() *media.Catalog {
	return e.catalog
}

func (e *Editor) Sessions() *session.Store {
	return e.sessions
}

// Subscribe registers fn for editor events and returns a function that
// removes the subscription. fn must not block.
func (e *Editor) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Editor) publish(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Snapshot returns a consistent copy of the editor state.
func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() Snapshot {
	undo, redo := e.tl.History().Depths()
	return Snapshot{
		Tracks:        e.tl.Tracks(),
		Clips:         e.tl.Clips(),
		Media:         e.catalog.List(),
		CurrentTime:   e.currentTimeLocked(),
		TotalDuration: e.tl.TotalDuration(),
		IsPlaying:     e.playingLocked(),
		ZoomLevel:     e.zoom,
		Selection:     copySelection(e.selection),
		Issues:        e.tl.Validate(),
		CanUndo:       undo > 0,
		CanRedo:       redo > 0,
	}
}

// edit runs fn against the timeline under the editor lock and publishes
// the resulting state when it succeeds.
func (e *Editor) edit(op string, fn func(tl *timeline.Timeline) error) error {
	e.mu.Lock()
	if err := fn(e.tl); err != nil {
		e.mu.Unlock()
		e.logger.Debug("edit rejected", "op", op, "error", err)
		return err
	}
	e.afterEditLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Debug("edit applied", "op", op, "clips", len(snap.Clips), "duration_s", snap.TotalDuration)
	e.publish(Event{Type: EventTimeline, Op: op, Snapshot: &snap})
	return nil
}

// afterEditLocked keeps the playhead and selection consistent with the timeline.
func (e *Editor) afterEditLocked() {
	e.seekLocked(e.currentTimeLocked())
	if e.selection != nil && e.selection.Kind == SelectClip {
		if _, ok := e.tl.Clip(e.selection.ID); !ok {
			e.selection = nil
		}
	}
}

func (e *Editor) AddClip(mediaID, trackID string, start float64) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("add", func(tl *timeline.Timeline) (err error) {
		c, err = tl.Add(mediaID, trackID, start)
		return err
	})
	return c, err
}

func (e *Editor) TrimClip(clipID string, edge timeline.Edge, t float64) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("trim", func(tl *timeline.Timeline) (err error) {
		c, err = tl.Trim(clipID, edge, t)
		return err
	})
	return c, err
}

// MoveClip moves a clip. With snap set, edges align to zero, the playhead
// and other clip edges within the configured pixel threshold at the
// current zoom.
func (e *Editor) MoveClip(clipID, trackID string, start float64, snap bool) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("move", func(tl *timeline.Timeline) (err error) {
		opts := timeline.SnapOptions{
			Enabled:         snap,
			Playhead:        e.currentTimeLocked(),
			ThresholdPx:     e.opts.SnapThresholdPx,
			PixelsPerSecond: e.zoom,
		}
		c, err = tl.Move(clipID, trackID, start, opts)
		return err
	})
	return c, err
}

func (e *Editor) SplitClip(clipID string, at float64) (left, right timeline.Clip, err error) {
	err = e.edit("split", func(tl *timeline.Timeline) (err error) {
		left, right, err = tl.Split(clipID, at)
		return err
	})
	return left, right, err
}

// SplitAtPlayhead splits the selected clip at the current playhead.
func (e *Editor) SplitAtPlayhead() (left, right timeline.Clip, err error) {
	err = e.edit("split", func(tl *timeline.Timeline) (err error) {
		if e.selection == nil || e.selection.Kind != SelectClip {
			return ErrNoSelection
		}
		left, right, err = tl.Split(e.selection.ID, e.currentTimeLocked())
		return err
	})
	return left, right, err
}

func (e *Editor) MergeClips(leftID, rightID string) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("merge", func(tl *timeline.Timeline) (err error) {
		c, err = tl.Merge(leftID, rightID)
		return err
	})
	return c, err
}

func (e *Editor) DeleteClip(clipID string, ripple bool) error {
	if ripple {
		return e.edit("ripple_delete", func(tl *timeline.Timeline) error {
			return tl.RippleDelete(clipID)
		})
	}
	return e.edit("delete", func(tl *timeline.Timeline) error {
		return tl.Delete(clipID)
	})
}

func (e *Editor) SetTransition(clipID string, typ timeline.TransitionType, duration float64) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("set_transition", func(tl *timeline.Timeline) (err error) {
		c, err = tl.SetTransition(clipID, typ, duration)
		return err
	})
	return c, err
}

func (e *Editor) SetSpeed(clipID string, speed float64) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("set_speed", func(tl *timeline.Timeline) (err error) {
		c, err = tl.SetSpeed(clipID, speed)
		return err
	})
	return c, err
}

func (e *Editor) SetAudioDetached(clipID string, detached bool) (timeline.Clip, error) {
	var c timeline.Clip
	err := e.edit("set_audio_detached", func(tl *timeline.Timeline) (err error) {
		c, err = tl.SetAudioDetached(clipID, detached)
		return err
	})
	return c, err
}

func (e *Editor) AddTrack(name string, kind timeline.TrackKind) (timeline.Track, error) {
	var tr timeline.Track
	err := e.edit("add_track", func(tl *timeline.Timeline) (err error) {
		tr, err = tl.AddTrack(name, kind)
		return err
	})
	return tr, err
}

func (e *Editor) UpdateTrack(id string, u timeline.TrackUpdate) (timeline.Track, error) {
	var tr timeline.Track
	err := e.edit("update_track", func(tl *timeline.Timeline) (err error) {
		tr, err = tl.UpdateTrack(id, u)
		return err
	})
	return tr, err
}

func (e *Editor) RemoveTrack(id string) error {
	return e.edit("remove_track", func(tl *timeline.Timeline) error {
		return tl.RemoveTrack(id)
	})
}

func (e *Editor) Undo() error {
	return e.edit("undo", func(tl *timeline.Timeline) error {
		_, err := tl.Undo()
		return err
	})
}

func (e *Editor) Redo() error {
	return e.edit("redo", func(tl *timeline.Timeline) error {
		_, err := tl.Redo()
		return err
	})
}

// Issues runs the validation pass over the timeline.
func (e *Editor) Issues() []timeline.Issue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tl.Validate()
}

// PruneDangling removes every clip reported as dangling.
func (e *Editor) PruneDangling() ([]string, error) {
	var removed []string
	err := e.edit("prune", func(tl *timeline.Timeline) (err error) {
		removed, err = tl.PruneDangling()
		return err
	})
	return removed, err
}

// AddMedia registers an asset and starts probing it when it has a locator.
func (e *Editor) AddMedia(ctx context.Context, item media.Item) (media.Item, error) {
	it, err := e.catalog.Add(ctx, item)
	if err != nil {
		return media.Item{}, err
	}
	e.startProbe(it)
	return it, nil
}

// ImportMedia copies r into the file store and registers it as local media.
func (e *Editor) ImportMedia(ctx context.Context, filename string, r io.Reader) (media.Item, error) {
	if e.files == nil {
		return media.Item{}, ErrNoFileStore
	}
	kind, ok := media.KindFromFilename(filename)
	if !ok {
		return media.Item{}, fmt.Errorf("%w: unsupported file %q", media.ErrInvalidItem, filename)
	}

	id := media.NewID()
	locator, err := e.files.Import(id, filename, r, e.opts.MaxImportBytes)
	if err != nil {
		return media.Item{}, err
	}

	it, err := e.catalog.Add(ctx, media.Item{ID: id, Name: filename, URL: locator, Kind: kind, Local: true})
	if err != nil {
		if relErr := e.files.Release(locator); relErr != nil {
			e.logger.Warn("failed to release rejected import", "media_id", id, "error", relErr)
		}
		return media.Item{}, err
	}
	e.startProbe(it)
	return it, nil
}

// CompleteMedia resolves a generating asset and probes the finished file.
func (e *Editor) CompleteMedia(ctx context.Context, id, url string, duration float64) (media.Item, error) {
	it, err := e.catalog.Complete(ctx, id, url, duration)
	if err != nil {
		return media.Item{}, err
	}
	e.startProbe(it)
	return it, nil
}

func (e *Editor) FailMedia(ctx context.Context, id, reason string) (media.Item, error) {
	return e.catalog.Fail(ctx, id, reason)
}

func (e *Editor) ProbeMedia(id string) error {
	return e.catalog.Probe(id)
}

func (e *Editor) startProbe(it media.Item) {
	if it.URL == "" || it.Probed {
		return
	}
	if err := e.catalog.Probe(it.ID); err != nil && !errors.Is(err, media.ErrAlreadyProbed) {
		e.logger.Warn("failed to start probe", "media_id", it.ID, "error", err)
	}
}

// RemoveMedia evicts an asset. Clips that used it are flagged or pruned
// according to the removal policy.
func (e *Editor) RemoveMedia(ctx context.Context, id string) error {
	_, err := e.catalog.Remove(ctx, id)
	return err
}

func (e *Editor) onMediaChange(ch media.Change) {
	e.mu.Lock()
	op := "media_updated"
	if ch.Removed {
		op = "media_removed"
		if e.selection != nil && e.selection.Kind == SelectMedia && e.selection.ID == ch.Item.ID {
			e.selection = nil
		}
		e.handleRemovalLocked(ch.Item.ID)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	item := ch.Item
	e.publish(Event{Type: EventMedia, Op: op, Media: &item, Snapshot: &snap})
}

func (e *Editor) handleRemovalLocked(mediaID string) {
	log := logging.WithMediaID(e.logger, mediaID)
	if e.opts.RemovalPolicy == RemovalPrune {
		removed, err := e.tl.PruneDangling()
		if err != nil {
			log.Error("failed to prune clips of removed media", "error", err)
			return
		}
		if len(removed) > 0 {
			e.afterEditLocked()
			log.Info("pruned clips of removed media", "clips", len(removed))
		}
		return
	}

	broken := 0
	for _, is := range e.tl.Validate() {
		if is.Kind == timeline.IssueDanglingMedia && is.RefID == mediaID {
			broken++
		}
	}
	if broken > 0 {
		log.Warn("clips reference removed media", "clips", broken)
	}
}

// Reset tears down all media and starts an empty timeline from the track template.
func (e *Editor) Reset(ctx context.Context) error {
	if err := e.catalog.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown media: %w", err)
	}

	e.mu.Lock()
	e.tl = timeline.New(e.catalog, e.opts.Timeline, TracksFromTemplate(e.opts.Tracks))
	e.playing = false
	e.playBase = 0
	e.zoom = DefaultZoom
	e.selection = nil
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("editor reset")
	e.publish(Event{Type: EventReset, Snapshot: &snap})
	return nil
}
