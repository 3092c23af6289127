package timeline

import (
	"fmt"
	"slices"
)

const DefaultHistoryDepth = 200

// Change is one element of a Delta: a clip change, a track change, or both
// nil for a no-op. A nil Before means creation; a nil After means removal.
type Change struct {
	ClipBefore  *Clip  `json:"clip_before,omitempty"`
	ClipAfter   *Clip  `json:"clip_after,omitempty"`
	TrackIndex  int    `json:"track_index,omitempty"`
	TrackBefore *Track `json:"track_before,omitempty"`
	TrackAfter  *Track `json:"track_after,omitempty"`
}

func (c Change) isTrack() bool {
	return c.TrackBefore != nil || c.TrackAfter != nil
}

func (c Change) inverse() Change {
	return Change{
		ClipBefore:  c.ClipAfter,
		ClipAfter:   c.ClipBefore,
		TrackIndex:  c.TrackIndex,
		TrackBefore: c.TrackAfter,
		TrackAfter:  c.TrackBefore,
	}
}

// Delta is the invertible record of one edit operation.
type Delta struct {
	Op      string   `json:"op"`
	Changes []Change `json:"changes"`
}

// Inverse returns the delta that undoes d.
func (d Delta) Inverse() Delta {
	inv := Delta{Op: d.Op, Changes: make([]Change, len(d.Changes))}
	for i, c := range d.Changes {
		inv.Changes[len(d.Changes)-1-i] = c.inverse()
	}
	return inv
}

// apply mutates s in order. It fails only when the delta does not match s.
func (s *state) apply(d Delta) error {
	for _, c := range d.Changes {
		if c.isTrack() {
			if err := s.applyTrack(c); err != nil {
				return err
			}
			continue
		}
		switch {
		case c.ClipAfter != nil:
			s.clips[c.ClipAfter.ID] = c.ClipAfter.clone()
		case c.ClipBefore != nil:
			if _, ok := s.clips[c.ClipBefore.ID]; !ok {
				return fmt.Errorf("%w: %s", ErrClipNotFound, c.ClipBefore.ID)
			}
			delete(s.clips, c.ClipBefore.ID)
		}
	}
	return nil
}

func (s *state) applyTrack(c Change) error {
	switch {
	case c.TrackBefore == nil:
		idx := min(max(c.TrackIndex, 0), len(s.tracks))
		s.tracks = slices.Insert(s.tracks, idx, *c.TrackAfter)
	case c.TrackAfter == nil:
		idx := s.trackIndex(c.TrackBefore.ID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, c.TrackBefore.ID)
		}
		s.tracks = slices.Delete(s.tracks, idx, idx+1)
	default:
		idx := s.trackIndex(c.TrackBefore.ID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, c.TrackBefore.ID)
		}
		s.tracks[idx] = *c.TrackAfter
	}
	return nil
}

// History is a bounded stack of applied deltas with a redo stack.
type History struct {
	undo  []Delta
	redo  []Delta
	depth int
}

func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

func (h *History) record(d Delta) {
	h.undo = append(h.undo, d)
	if len(h.undo) > h.depth {
		h.undo = slices.Delete(h.undo, 0, len(h.undo)-h.depth)
	}
	h.redo = h.redo[:0]
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depths returns the sizes of the undo and redo stacks.
func (h *History) Depths() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Undo reverts the most recent edit. The reverted state is revalidated;
// if it no longer holds (for example media was re-probed shorter) the
// undo is rejected and both stacks are left untouched.
func (tl *Timeline) Undo() (Delta, error) {
	h := tl.history
	if len(h.undo) == 0 {
		return Delta{}, ErrNothingToUndo
	}
	d := h.undo[len(h.undo)-1]
	inv := d.Inverse()
	if err := tl.apply(inv); err != nil {
		return Delta{}, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, d)
	return inv, nil
}

// Redo re-applies the most recently undone edit.
func (tl *Timeline) Redo() (Delta, error) {
	h := tl.history
	if len(h.redo) == 0 {
		return Delta{}, ErrNothingToRedo
	}
	d := h.redo[len(h.redo)-1]
	if err := tl.apply(d); err != nil {
		return Delta{}, err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, d)
	return d, nil
}
