package timeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
)

// TrackUpdate carries the fields to change on a track; nil fields are kept.
type TrackUpdate struct {
	Name   *string
	Volume *float64
	Muted  *bool
	Locked *bool
}

// apply validates d against a copy of the current state and swaps the copy
// in only when every touched clip and track is still valid.
func (tl *Timeline) apply(d Delta) error {
	next := tl.st.clone()
	if err := next.apply(d); err != nil {
		return err
	}

	var touched []string
	for _, c := range d.Changes {
		if c.ClipAfter == nil {
			continue
		}
		if err := tl.checkClip(next, c.ClipBefore, *c.ClipAfter); err != nil {
			return err
		}
		if !slices.Contains(touched, c.ClipAfter.TrackID) {
			touched = append(touched, c.ClipAfter.TrackID)
		}
	}
	for _, id := range touched {
		if err := checkTrack(next, id); err != nil {
			return err
		}
	}

	tl.st = next
	return nil
}

func (tl *Timeline) commit(d Delta) error {
	if err := tl.apply(d); err != nil {
		return err
	}
	tl.history.record(d)
	return nil
}

func (tl *Timeline) editableClip(id string) (Clip, error) {
	c, ok := tl.st.clips[id]
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrClipNotFound, id)
	}
	if tr, ok := tl.st.track(c.TrackID); ok && tr.IsLocked {
		return Clip{}, fmt.Errorf("%w: %s", ErrTrackLocked, tr.ID)
	}
	return c.clone(), nil
}

func (tl *Timeline) editableTrack(id string) (Track, error) {
	tr, ok := tl.st.track(id)
	if !ok {
		return Track{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if tr.IsLocked {
		return Track{}, fmt.Errorf("%w: %s", ErrTrackLocked, id)
	}
	return tr, nil
}

func (tl *Timeline) compatible(c Clip, dst Track) bool {
	if tl.media != nil {
		if it, ok := tl.media.Get(c.MediaID); ok {
			return dst.Kind.Accepts(it.Kind)
		}
	}
	src, ok := tl.st.track(c.TrackID)
	return !ok || src.Kind == dst.Kind
}

func (tl *Timeline) predecessor(c Clip) (Clip, bool) {
	clips := tl.st.clipsOnTrack(c.TrackID)
	i := slices.IndexFunc(clips, func(o Clip) bool { return o.ID == c.ID })
	if i <= 0 {
		return Clip{}, false
	}
	return clips[i-1], true
}

// Add places media on a track at start. The clip covers the media from its
// beginning; media still being probed contributes its fallback duration.
func (tl *Timeline) Add(mediaID, trackID string, start float64) (Clip, error) {
	tr, err := tl.editableTrack(trackID)
	if err != nil {
		return Clip{}, err
	}
	if tl.media == nil {
		return Clip{}, fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
	}
	it, ok := tl.media.Get(mediaID)
	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
	}
	if !tr.Kind.Accepts(it.Kind) {
		return Clip{}, fmt.Errorf("%w: %s media on %s track", ErrIncompatibleTrack, it.Kind, tr.Kind)
	}

	dur := it.Duration
	if dur <= 0 {
		dur = tl.opts.DefaultDuration
	}
	dur = min(dur, tl.opts.MaxClipDuration)

	c := Clip{
		ID:       uuid.NewString(),
		MediaID:  mediaID,
		TrackID:  trackID,
		Start:    start,
		Duration: dur,
		Speed:    1,
	}
	if err := tl.commit(Delta{Op: "add", Changes: []Change{{ClipAfter: clipPtr(c)}}}); err != nil {
		return Clip{}, err
	}
	return c, nil
}

// Trim moves one edge of a clip to t while the other edge stays fixed.
// Trimming the left edge advances the source offset by the same amount.
func (tl *Timeline) Trim(clipID string, edge Edge, t float64) (Clip, error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, err
	}

	after := c.clone()
	switch edge {
	case EdgeLeft:
		shift := t - c.Start
		after.Start = t
		after.Offset = c.Offset + shift*c.Speed
		after.Duration = c.Duration - shift
	case EdgeRight:
		after.Duration = t - c.Start
	default:
		return Clip{}, fmt.Errorf("%w: edge %q", ErrInvalidArgument, edge)
	}

	d := Delta{Op: "trim", Changes: []Change{{ClipBefore: clipPtr(c), ClipAfter: clipPtr(after)}}}
	if err := tl.commit(d); err != nil {
		return Clip{}, err
	}
	return after, nil
}

// Move relocates a clip to trackID at start, keeping its duration and
// offset. An empty trackID keeps the current track. With snapping enabled
// either clip edge aligns to a nearby snap point; if the snapped position
// is rejected the unsnapped position is tried.
func (tl *Timeline) Move(clipID, trackID string, start float64, snap SnapOptions) (Clip, error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, err
	}
	if trackID == "" {
		trackID = c.TrackID
	}
	dst, err := tl.editableTrack(trackID)
	if err != nil {
		return Clip{}, err
	}
	if trackID != c.TrackID && !tl.compatible(c, dst) {
		return Clip{}, fmt.Errorf("%w: cannot move clip %s to %s track", ErrIncompatibleTrack, c.ID, dst.Kind)
	}

	candidates := []float64{start}
	if snap.Enabled {
		points := SnapPoints(tl.Clips(), snap.Playhead, c.ID)
		if s, ok := snapStart(start, c.Duration, points, snap.thresholdSeconds()); ok && !approxEqual(s, start) {
			candidates = []float64{s, start}
		}
	}

	var lastErr error
	for _, s := range candidates {
		after := c.clone()
		after.TrackID = trackID
		after.Start = s
		d := Delta{Op: "move", Changes: []Change{{ClipBefore: clipPtr(c), ClipAfter: clipPtr(after)}}}
		if lastErr = tl.commit(d); lastErr == nil {
			return after, nil
		}
	}
	return Clip{}, lastErr
}

// Split cuts a clip at a point strictly inside it. The left part keeps the
// clip's id and transition; the right part gets a new id.
func (tl *Timeline) Split(clipID string, at float64) (left, right Clip, err error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, Clip{}, err
	}
	if !StrictlyInside(c.Start, c.End(), at) {
		return Clip{}, Clip{}, boundsErr(c.ID, "split point %.3fs is not inside [%.3f, %.3f)", at, c.Start, c.End())
	}

	left = c.clone()
	left.Duration = at - c.Start

	right = c.clone()
	right.ID = uuid.NewString()
	right.Start = at
	right.Offset = c.Offset + (at-c.Start)*c.Speed
	right.Duration = c.End() - at
	right.Transition = nil

	d := Delta{Op: "split", Changes: []Change{
		{ClipBefore: clipPtr(c), ClipAfter: clipPtr(left)},
		{ClipAfter: clipPtr(right)},
	}}
	if err := tl.commit(d); err != nil {
		return Clip{}, Clip{}, err
	}
	return left, right, nil
}

// Merge joins two adjacent pieces of the same source into the left clip.
// It is the inverse of Split.
func (tl *Timeline) Merge(leftID, rightID string) (Clip, error) {
	l, err := tl.editableClip(leftID)
	if err != nil {
		return Clip{}, err
	}
	r, err := tl.editableClip(rightID)
	if err != nil {
		return Clip{}, err
	}
	if l.ID == r.ID ||
		l.TrackID != r.TrackID ||
		l.MediaID != r.MediaID ||
		l.IsAudioDetached != r.IsAudioDetached ||
		r.Transition != nil ||
		!approxEqual(l.Speed, r.Speed) ||
		!approxEqual(l.End(), r.Start) ||
		!approxEqual(l.SourceEnd(), r.Offset) {
		return Clip{}, fmt.Errorf("%w: %s and %s", ErrNotMergeable, leftID, rightID)
	}

	merged := l.clone()
	merged.Duration = r.End() - l.Start

	d := Delta{Op: "merge", Changes: []Change{
		{ClipBefore: clipPtr(r)},
		{ClipBefore: clipPtr(l), ClipAfter: clipPtr(merged)},
	}}
	if err := tl.commit(d); err != nil {
		return Clip{}, err
	}
	return merged, nil
}

// Delete removes a clip and leaves a gap.
func (tl *Timeline) Delete(clipID string) error {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return err
	}
	return tl.commit(Delta{Op: "delete", Changes: []Change{{ClipBefore: clipPtr(c)}}})
}

// RippleDelete removes a clip and shifts every later clip on the same track
// earlier by its duration. Other tracks are not touched.
func (tl *Timeline) RippleDelete(clipID string) error {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return err
	}

	changes := []Change{{ClipBefore: clipPtr(c)}}
	for _, o := range tl.st.clipsOnTrack(c.TrackID) {
		if o.ID == c.ID || o.Start <= c.Start+Epsilon {
			continue
		}
		shifted := o.clone()
		shifted.Start = o.Start - c.Duration
		changes = append(changes, Change{ClipBefore: clipPtr(o), ClipAfter: clipPtr(shifted)})
	}
	return tl.commit(Delta{Op: "ripple_delete", Changes: changes})
}

// SetTransition attaches a transition with the preceding clip on the same
// track. TransitionNone removes it.
func (tl *Timeline) SetTransition(clipID string, typ TransitionType, duration float64) (Clip, error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, err
	}
	if !typ.Valid() {
		return Clip{}, fmt.Errorf("%w: transition type %q", ErrInvalidArgument, typ)
	}

	after := c.clone()
	if typ == TransitionNone {
		after.Transition = nil
	} else {
		if duration <= Epsilon {
			return Clip{}, boundsErr(c.ID, "transition duration %.3fs must be positive", duration)
		}
		prev, ok := tl.predecessor(c)
		if !ok {
			return Clip{}, fmt.Errorf("%w: clip %s", ErrNoPrecedingClip, c.ID)
		}
		if duration > c.Duration+Epsilon || duration > prev.Duration+Epsilon {
			return Clip{}, boundsErr(c.ID, "transition %.3fs exceeds clip %.3fs or preceding clip %.3fs",
				duration, c.Duration, prev.Duration)
		}
		after.Transition = &Transition{Type: typ, Duration: duration}
	}

	d := Delta{Op: "set_transition", Changes: []Change{{ClipBefore: clipPtr(c), ClipAfter: clipPtr(after)}}}
	if err := tl.commit(d); err != nil {
		return Clip{}, err
	}
	return after, nil
}

// SetSpeed changes the playback rate. The clip keeps its source span, so
// its timeline duration scales inversely.
func (tl *Timeline) SetSpeed(clipID string, speed float64) (Clip, error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, err
	}
	if speed <= 0 {
		return Clip{}, fmt.Errorf("%w: speed must be positive", ErrInvalidArgument)
	}

	after := c.clone()
	after.Duration = c.Duration * c.Speed / speed
	after.Speed = speed

	d := Delta{Op: "set_speed", Changes: []Change{{ClipBefore: clipPtr(c), ClipAfter: clipPtr(after)}}}
	if err := tl.commit(d); err != nil {
		return Clip{}, err
	}
	return after, nil
}

func (tl *Timeline) SetAudioDetached(clipID string, detached bool) (Clip, error) {
	c, err := tl.editableClip(clipID)
	if err != nil {
		return Clip{}, err
	}
	after := c.clone()
	after.IsAudioDetached = detached

	d := Delta{Op: "set_audio_detached", Changes: []Change{{ClipBefore: clipPtr(c), ClipAfter: clipPtr(after)}}}
	if err := tl.commit(d); err != nil {
		return Clip{}, err
	}
	return after, nil
}

// PruneDangling deletes clips whose media or track no longer resolves, as
// one undoable edit. It returns the removed clip ids.
func (tl *Timeline) PruneDangling() ([]string, error) {
	var changes []Change
	var removed []string
	for _, is := range tl.Validate() {
		if is.Kind != IssueDanglingMedia && is.Kind != IssueDanglingTrack {
			continue
		}
		if slices.Contains(removed, is.ClipID) {
			continue
		}
		c := tl.st.clips[is.ClipID]
		changes = append(changes, Change{ClipBefore: clipPtr(c)})
		removed = append(removed, c.ID)
	}
	if len(changes) == 0 {
		return nil, nil
	}
	if err := tl.commit(Delta{Op: "prune", Changes: changes}); err != nil {
		return nil, err
	}
	return removed, nil
}

// AddTrack appends a track. An empty name is generated from the kind.
func (tl *Timeline) AddTrack(name string, kind TrackKind) (Track, error) {
	if !kind.Valid() {
		return Track{}, fmt.Errorf("%w: track kind %q", ErrInvalidArgument, kind)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		n := 1
		for _, t := range tl.st.tracks {
			if t.Kind == kind {
				n++
			}
		}
		name = fmt.Sprintf("%s %d", strings.ToUpper(string(kind[:1]))+string(kind[1:]), n)
	}

	tr := Track{ID: uuid.NewString(), Name: name, Kind: kind, Volume: 1}
	d := Delta{Op: "add_track", Changes: []Change{{TrackIndex: len(tl.st.tracks), TrackAfter: &tr}}}
	if err := tl.commit(d); err != nil {
		return Track{}, err
	}
	return tr, nil
}

// RemoveTrack deletes a track together with its clips.
func (tl *Timeline) RemoveTrack(id string) error {
	tr, err := tl.editableTrack(id)
	if err != nil {
		return err
	}

	var changes []Change
	for _, c := range tl.st.clipsOnTrack(id) {
		changes = append(changes, Change{ClipBefore: clipPtr(c)})
	}
	changes = append(changes, Change{TrackIndex: tl.st.trackIndex(id), TrackBefore: &tr})
	return tl.commit(Delta{Op: "remove_track", Changes: changes})
}

// UpdateTrack changes track settings. Volume is clamped to [0, 1]. Locked
// tracks accept updates so they can be unlocked.
func (tl *Timeline) UpdateTrack(id string, u TrackUpdate) (Track, error) {
	before, ok := tl.st.track(id)
	if !ok {
		return Track{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}

	after := before
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return Track{}, fmt.Errorf("%w: track name is empty", ErrInvalidArgument)
		}
		after.Name = name
	}
	if u.Volume != nil {
		after.Volume = min(max(*u.Volume, 0), 1)
	}
	if u.Muted != nil {
		after.IsMuted = *u.Muted
	}
	if u.Locked != nil {
		after.IsLocked = *u.Locked
	}
	if after == before {
		return after, nil
	}

	d := Delta{Op: "update_track", Changes: []Change{{
		TrackIndex:  tl.st.trackIndex(id),
		TrackBefore: &before,
		TrackAfter:  &after,
	}}}
	if err := tl.commit(d); err != nil {
		return Track{}, err
	}
	return after, nil
}
