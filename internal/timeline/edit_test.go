package timeline

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/storyreel/storyreel/internal/media"
)

type fakeMedia map[string]media.Item

func (m fakeMedia) Get(id string) (media.Item, bool) {
	it, ok := m[id]
	return it, ok
}

func testMedia() fakeMedia {
	return fakeMedia{
		"vid5":  {ID: "vid5", Kind: media.KindVideo, Duration: 5},
		"vid10": {ID: "vid10", Kind: media.KindVideo, Duration: 10},
		"vid90": {ID: "vid90", Kind: media.KindVideo, Duration: 90},
		"aud8":  {ID: "aud8", Kind: media.KindAudio, Duration: 8},
		"img":   {ID: "img", Kind: media.KindImage, Duration: 5},
	}
}

func testTracks() []Track {
	return []Track{
		{ID: "v1", Name: "Video 1", Kind: TrackVideo, Volume: 1},
		{ID: "v2", Name: "Video 2", Kind: TrackVideo, Volume: 1},
		{ID: "a1", Name: "Audio 1", Kind: TrackAudio, Volume: 1},
	}
}

func newTestTimeline(t *testing.T) (*Timeline, fakeMedia) {
	t.Helper()
	m := testMedia()
	return New(m, Options{}, testTracks()), m
}

func mustAdd(t *testing.T, tl *Timeline, mediaID, trackID string, start float64) Clip {
	t.Helper()
	c, err := tl.Add(mediaID, trackID, start)
	if err != nil {
		t.Fatalf("Add(%s, %s, %v) error = %v", mediaID, trackID, start, err)
	}
	return c
}

func assertNoIllegalOverlap(t *testing.T, tl *Timeline) {
	t.Helper()
	for _, tr := range tl.Tracks() {
		clips := tl.ClipsOnTrack(tr.ID)
		for i := range clips {
			for j := i + 1; j < len(clips); j++ {
				a, b := clips[i], clips[j]
				amount := OverlapAmount(a.Start, a.End(), b.Start, b.End())
				if amount <= Epsilon {
					continue
				}
				if b.Transition == nil || amount > b.Transition.Duration+Epsilon {
					t.Fatalf("clips %s [%v,%v) and %s [%v,%v) overlap by %v on %s",
						a.ID, a.Start, a.End(), b.ID, b.Start, b.End(), amount, tr.ID)
				}
			}
		}
	}
}

func TestAdd_Defaults(t *testing.T) {
	tl, _ := newTestTimeline(t)

	c := mustAdd(t, tl, "vid10", "v1", 2)
	if c.Duration != 10 || c.Offset != 0 || c.Speed != 1 || c.Start != 2 {
		t.Errorf("Add() = %+v", c)
	}
	if c.ID == "" || c.ID == c.MediaID {
		t.Errorf("clip id %q must be a fresh instance id", c.ID)
	}
	if got := tl.TotalDuration(); got != 12 {
		t.Errorf("TotalDuration() = %v, want 12", got)
	}

	again := mustAdd(t, tl, "vid10", "v2", 0)
	if again.ID == c.ID {
		t.Error("same media on two clips reused the clip id")
	}
}

func TestAdd_CapsAtMaxClipDuration(t *testing.T) {
	tl := New(testMedia(), Options{MaxClipDuration: 60}, testTracks())
	c := mustAdd(t, tl, "vid90", "v1", 0)
	if c.Duration != 60 {
		t.Errorf("Duration = %v, want 60", c.Duration)
	}
}

func TestAdd_UsesFallbackWhileProbing(t *testing.T) {
	m := testMedia()
	m["pending"] = media.Item{ID: "pending", Kind: media.KindVideo, Status: media.StatusGenerating, Duration: 5}
	tl := New(m, Options{}, testTracks())

	c := mustAdd(t, tl, "pending", "v1", 0)
	if c.Duration != 5 {
		t.Errorf("Duration = %v, want fallback 5", c.Duration)
	}
}

func TestAdd_Rejections(t *testing.T) {
	tl, _ := newTestTimeline(t)

	tests := []struct {
		name    string
		mediaID string
		trackID string
		start   float64
		want    error
	}{
		{"audio on video track", "aud8", "v1", 0, ErrIncompatibleTrack},
		{"video on audio track", "vid5", "a1", 0, ErrIncompatibleTrack},
		{"image on audio track", "img", "a1", 0, ErrIncompatibleTrack},
		{"unknown media", "nope", "v1", 0, ErrMediaNotFound},
		{"unknown track", "vid5", "zz", 0, ErrTrackNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tl.Add(tt.mediaID, tt.trackID, tt.start); !errors.Is(err, tt.want) {
				t.Errorf("Add() error = %v, want %v", err, tt.want)
			}
		})
	}

	var be *BoundsError
	if _, err := tl.Add("vid5", "v1", -1); !errors.As(err, &be) {
		t.Errorf("Add(start=-1) error = %v, want BoundsError", err)
	}
	if tl.Len() != 0 {
		t.Errorf("Len() = %d after rejected adds, want 0", tl.Len())
	}
}

func TestAdd_OverlapRejected(t *testing.T) {
	m := testMedia()
	m["vid4"] = media.Item{ID: "vid4", Kind: media.KindVideo, Duration: 4}
	tl := New(m, Options{}, testTracks())

	a := mustAdd(t, tl, "vid5", "v1", 0)

	_, err := tl.Add("vid4", "v1", 3)
	var oe *OverlapError
	if !errors.As(err, &oe) {
		t.Fatalf("Add() error = %v, want OverlapError", err)
	}
	if oe.OtherID != a.ID || oe.TrackID != "v1" {
		t.Errorf("OverlapError = %+v", oe)
	}

	clips := tl.ClipsOnTrack("v1")
	if len(clips) != 1 || clips[0].ID != a.ID {
		t.Errorf("track holds %v, want only clip A", clips)
	}

	if _, err := tl.Add("vid4", "v2", 3); err != nil {
		t.Errorf("Add() on another track error = %v", err)
	}
}

func TestTrim_PastMediaBound(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)

	_, err := tl.Trim(c.ID, EdgeRight, 12)
	var be *BoundsError
	if !errors.As(err, &be) {
		t.Fatalf("Trim() error = %v, want BoundsError", err)
	}
	got, _ := tl.Clip(c.ID)
	if got.Duration != 10 {
		t.Errorf("Duration = %v after rejected trim, want 10", got.Duration)
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name         string
		edge         Edge
		at           float64
		wantStart    float64
		wantDuration float64
		wantOffset   float64
		wantErr      bool
	}{
		{"left edge in", EdgeLeft, 2, 2, 8, 2, false},
		{"right edge in", EdgeRight, 6, 0, 6, 0, false},
		{"left edge before offset zero", EdgeLeft, -1, 0, 0, 0, true},
		{"left edge past right", EdgeLeft, 10, 0, 0, 0, true},
		{"right edge before left", EdgeRight, 0, 0, 0, 0, true},
		{"bad edge", "top", 3, 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, _ := newTestTimeline(t)
			c := mustAdd(t, tl, "vid10", "v1", 0)

			got, err := tl.Trim(c.ID, tt.edge, tt.at)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Trim() = %+v, want error", got)
				}
				if still, _ := tl.Clip(c.ID); still != c {
					t.Errorf("clip changed after rejected trim: %+v", still)
				}
				return
			}
			if err != nil {
				t.Fatalf("Trim() error = %v", err)
			}
			if !approxEqual(got.Start, tt.wantStart) || !approxEqual(got.Duration, tt.wantDuration) ||
				!approxEqual(got.Offset, tt.wantOffset) {
				t.Errorf("Trim() = start %v dur %v off %v", got.Start, got.Duration, got.Offset)
			}
		})
	}
}

func TestTrim_ExtendLeftAfterTrimmingIn(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 4)

	if _, err := tl.Trim(c.ID, EdgeLeft, 7); err != nil {
		t.Fatalf("Trim() in error = %v", err)
	}
	got, err := tl.Trim(c.ID, EdgeLeft, 5)
	if err != nil {
		t.Fatalf("Trim() out error = %v", err)
	}
	if got.Start != 5 || got.Offset != 1 || got.Duration != 9 {
		t.Errorf("Trim() = %+v", got)
	}
}

func TestTrim_IntoNeighbor(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid10", "v1", 0)
	if _, err := tl.Trim(a.ID, EdgeRight, 4); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	mustAdd(t, tl, "vid5", "v1", 5)

	var oe *OverlapError
	if _, err := tl.Trim(a.ID, EdgeRight, 7); !errors.As(err, &oe) {
		t.Errorf("Trim() into neighbor error = %v, want OverlapError", err)
	}
}

func TestTrim_ImageUnbounded(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "img", "v1", 0)

	got, err := tl.Trim(c.ID, EdgeRight, 30)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}
	if got.Duration != 30 {
		t.Errorf("Duration = %v, want 30", got.Duration)
	}
}

func TestTrim_ImageCappedAtMaxClipDuration(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "img", "v1", 0)

	var be *BoundsError
	if _, err := tl.Trim(c.ID, EdgeRight, 3600); !errors.As(err, &be) {
		t.Fatalf("Trim() past clip limit error = %v, want BoundsError", err)
	}
	if got, _ := tl.Clip(c.ID); got.Duration != 5 {
		t.Errorf("Duration = %v after rejected trim, want 5", got.Duration)
	}
	if got, err := tl.Trim(c.ID, EdgeRight, DefaultMaxClipDuration); err != nil || got.Duration != DefaultMaxClipDuration {
		t.Errorf("Trim() to clip limit = %v, %v", got.Duration, err)
	}
}

func TestTransitionOverlapAccepted(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid5", "v1", 5)

	if _, err := tl.SetTransition(b.ID, TransitionCrossDissolve, 1); err != nil {
		t.Fatalf("SetTransition() error = %v", err)
	}
	moved, err := tl.Move(b.ID, "", 4, SnapOptions{})
	if err != nil {
		t.Fatalf("Move() into transition window error = %v", err)
	}
	if moved.Start != 4 || moved.Duration != 5 {
		t.Errorf("Move() = %+v", moved)
	}
	assertNoIllegalOverlap(t, tl)

	var oe *OverlapError
	if _, err := tl.Move(b.ID, "", 3.5, SnapOptions{}); !errors.As(err, &oe) {
		t.Errorf("Move() past transition window error = %v, want OverlapError", err)
	}
	if oe != nil && (oe.ClipID != b.ID || oe.OtherID != a.ID || !approxEqual(oe.Allowed, 1)) {
		t.Errorf("OverlapError = %+v", oe)
	}
}

func TestCheckTrack_TransitionAllowance(t *testing.T) {
	s := &state{
		tracks: testTracks(),
		clips: map[string]Clip{
			"A": {ID: "A", TrackID: "v1", Start: 0, Duration: 5, Speed: 1},
			"B": {ID: "B", TrackID: "v1", Start: 4, Duration: 5, Speed: 1,
				Transition: &Transition{Type: TransitionCrossDissolve, Duration: 1}},
		},
	}
	if err := checkTrack(s, "v1"); err != nil {
		t.Errorf("checkTrack() = %v, want nil for 1s overlap with 1s transition", err)
	}

	b := s.clips["B"]
	b.Transition = nil
	s.clips["B"] = b
	if err := checkTrack(s, "v1"); err == nil {
		t.Error("checkTrack() = nil, want overlap without transition")
	}

	s.clips["C"] = Clip{ID: "C", TrackID: "v1", Start: 1, Duration: 1, Speed: 1,
		Transition: &Transition{Type: TransitionFadeBlack, Duration: 1}}
	delete(s.clips, "B")
	if err := checkTrack(s, "v1"); err == nil {
		t.Error("checkTrack() = nil, want error for clip contained in its predecessor")
	}
}

func TestCheckTrack_OverlapOnlyWithPredecessor(t *testing.T) {
	s := &state{
		tracks: testTracks(),
		clips: map[string]Clip{
			"A": {ID: "A", TrackID: "v1", Start: 0, Duration: 10, Speed: 1},
			"B": {ID: "B", TrackID: "v1", Start: 9, Duration: 1.5, Speed: 1,
				Transition: &Transition{Type: TransitionCrossDissolve, Duration: 1}},
		},
	}
	if err := checkTrack(s, "v1"); err != nil {
		t.Fatalf("checkTrack() = %v, want nil", err)
	}

	s.clips["C"] = Clip{ID: "C", TrackID: "v1", Start: 9.8, Duration: 1, Speed: 1,
		Transition: &Transition{Type: TransitionCrossDissolve, Duration: 1}}
	var oe *OverlapError
	if err := checkTrack(s, "v1"); !errors.As(err, &oe) {
		t.Fatalf("checkTrack() = %v, want OverlapError", err)
	}
	if oe.ClipID != "C" || oe.OtherID != "A" || oe.Allowed != 0 {
		t.Errorf("OverlapError = %+v, want C against A with no allowance", oe)
	}
}

func TestTransitionOutlastingPredecessorRejected(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid10", "v1", 5)
	if _, err := tl.SetTransition(b.ID, TransitionCrossDissolve, 2); err != nil {
		t.Fatalf("SetTransition() error = %v", err)
	}

	var be *BoundsError
	if _, err := tl.Trim(a.ID, EdgeLeft, 3.5); !errors.As(err, &be) {
		t.Errorf("Trim() predecessor below transition error = %v, want BoundsError", err)
	}
	if _, _, err := tl.Split(a.ID, 4); !errors.As(err, &be) {
		t.Errorf("Split() predecessor below transition error = %v, want BoundsError", err)
	}
	if got, _ := tl.Clip(a.ID); got.Start != 0 || got.Duration != 5 {
		t.Errorf("predecessor = %+v, want unchanged", got)
	}
	if tl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tl.Len())
	}

	// Trimming the predecessor's far edge away from the transition is fine.
	if _, err := tl.Trim(a.ID, EdgeLeft, 2); err != nil {
		t.Errorf("Trim() keeping 3s predecessor error = %v", err)
	}
}

func TestSetTransition(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid10", "v1", 5)

	if _, err := tl.SetTransition(a.ID, TransitionFadeWhite, 1); !errors.Is(err, ErrNoPrecedingClip) {
		t.Errorf("SetTransition(first clip) error = %v, want ErrNoPrecedingClip", err)
	}

	var be *BoundsError
	if _, err := tl.SetTransition(b.ID, TransitionWipeLeft, 6); !errors.As(err, &be) {
		t.Errorf("SetTransition(longer than preceding clip) error = %v, want BoundsError", err)
	}
	if _, err := tl.SetTransition(b.ID, TransitionWipeLeft, 0); !errors.As(err, &be) {
		t.Errorf("SetTransition(0s) error = %v, want BoundsError", err)
	}
	if _, err := tl.SetTransition(b.ID, "spin", 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetTransition(unknown type) error = %v, want ErrInvalidArgument", err)
	}

	got, err := tl.SetTransition(b.ID, TransitionWipeRight, 2)
	if err != nil {
		t.Fatalf("SetTransition() error = %v", err)
	}
	if got.Transition == nil || got.Transition.Type != TransitionWipeRight || got.Transition.Duration != 2 {
		t.Errorf("Transition = %+v", got.Transition)
	}

	if _, err := tl.Move(b.ID, "", 3, SnapOptions{}); err != nil {
		t.Fatalf("Move() into window error = %v", err)
	}
	var oe *OverlapError
	if _, err := tl.SetTransition(b.ID, TransitionCrossDissolve, 1); !errors.As(err, &oe) {
		t.Errorf("shrinking transition below current overlap error = %v, want OverlapError", err)
	}
	if _, err := tl.SetTransition(b.ID, TransitionNone, 0); !errors.As(err, &oe) {
		t.Errorf("clearing transition while overlapping error = %v, want OverlapError", err)
	}

	if _, err := tl.Move(b.ID, "", 5, SnapOptions{}); err != nil {
		t.Fatalf("Move() out of window error = %v", err)
	}
	cleared, err := tl.SetTransition(b.ID, TransitionNone, 0)
	if err != nil {
		t.Fatalf("SetTransition(none) error = %v", err)
	}
	if cleared.Transition != nil {
		t.Errorf("Transition = %+v, want nil", cleared.Transition)
	}
}

func TestSplitMergeRoundTrip(t *testing.T) {
	points := []float64{4.5, 6.25, 8, 12.999}

	for _, at := range points {
		tl, _ := newTestTimeline(t)
		c := mustAdd(t, tl, "vid10", "v1", 3)
		orig, err := tl.Trim(c.ID, EdgeLeft, 4)
		if err != nil {
			t.Fatalf("Trim() error = %v", err)
		}

		left, right, err := tl.Split(orig.ID, at)
		if err != nil {
			t.Fatalf("Split(%v) error = %v", at, err)
		}
		if left.ID != orig.ID || right.ID == orig.ID {
			t.Errorf("Split(%v) ids = %s, %s", at, left.ID, right.ID)
		}
		if !approxEqual(right.Offset, orig.Offset+(at-orig.Start)) || !approxEqual(right.Start, at) {
			t.Errorf("Split(%v) right = %+v", at, right)
		}
		if !approxEqual(left.Duration+right.Duration, orig.Duration) {
			t.Errorf("Split(%v) durations %v + %v != %v", at, left.Duration, right.Duration, orig.Duration)
		}

		merged, err := tl.Merge(left.ID, right.ID)
		if err != nil {
			t.Fatalf("Merge() after Split(%v) error = %v", at, err)
		}
		if merged.ID != orig.ID || !approxEqual(merged.Start, orig.Start) ||
			!approxEqual(merged.Duration, orig.Duration) || !approxEqual(merged.Offset, orig.Offset) {
			t.Errorf("Merge(Split(%v)) = %+v, want %+v", at, merged, orig)
		}
		if tl.Len() != 1 {
			t.Errorf("Len() = %d after merge, want 1", tl.Len())
		}
	}
}

func TestSplit_OutsideClip(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 2)

	for _, at := range []float64{2, 12, 1, 15} {
		var be *BoundsError
		if _, _, err := tl.Split(c.ID, at); !errors.As(err, &be) {
			t.Errorf("Split(%v) error = %v, want BoundsError", at, err)
		}
	}
	if tl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tl.Len())
	}
}

func TestSplit_WithSpeed(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)
	c, err := tl.SetSpeed(c.ID, 2)
	if err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}

	_, right, err := tl.Split(c.ID, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if right.Offset != 4 || right.Duration != 3 {
		t.Errorf("right = offset %v dur %v, want 4, 3", right.Offset, right.Duration)
	}
}

func TestMerge_NotMergeable(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid5", "v1", 5)
	c := mustAdd(t, tl, "vid10", "v2", 0)

	tests := []struct {
		name        string
		left, right string
	}{
		{"discontinuous source", a.ID, b.ID},
		{"different tracks", a.ID, c.ID},
		{"same clip", a.ID, a.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tl.Merge(tt.left, tt.right); !errors.Is(err, ErrNotMergeable) {
				t.Errorf("Merge() error = %v, want ErrNotMergeable", err)
			}
		})
	}
}

func TestDelete_LeavesGap(t *testing.T) {
	tl, _ := newTestTimeline(t)
	mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid5", "v1", 5)
	c := mustAdd(t, tl, "vid5", "v1", 10)

	if err := tl.Delete(b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, _ := tl.Clip(c.ID)
	if got.Start != 10 {
		t.Errorf("later clip start = %v, want 10", got.Start)
	}
	if err := tl.Delete(b.ID); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrClipNotFound", err)
	}
}

func TestRippleDelete_Conservation(t *testing.T) {
	tl, _ := newTestTimeline(t)
	mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid10", "v1", 5)
	mustAdd(t, tl, "vid5", "v1", 16)
	mustAdd(t, tl, "vid5", "v1", 22)
	other := mustAdd(t, tl, "vid10", "v2", 7)
	audio := mustAdd(t, tl, "aud8", "a1", 3)

	span := func(trackID string) float64 {
		clips := tl.ClipsOnTrack(trackID)
		end := 0.0
		for _, c := range clips {
			end = max(end, c.End())
		}
		return end - clips[0].Start
	}
	before := span("v1")
	beforeStarts := []float64{}
	for _, c := range tl.ClipsOnTrack("v1") {
		if c.Start > b.Start {
			beforeStarts = append(beforeStarts, c.Start)
		}
	}

	if err := tl.RippleDelete(b.ID); err != nil {
		t.Fatalf("RippleDelete() error = %v", err)
	}

	if got := span("v1"); !approxEqual(got, before-b.Duration) {
		t.Errorf("span = %v, want %v", got, before-b.Duration)
	}
	clips := tl.ClipsOnTrack("v1")
	if len(clips) != 3 {
		t.Fatalf("v1 holds %d clips, want 3", len(clips))
	}
	for i, c := range clips[1:] {
		if !approxEqual(c.Start, beforeStarts[i]-b.Duration) {
			t.Errorf("clip %d start = %v, want %v", i, c.Start, beforeStarts[i]-b.Duration)
		}
	}

	if got, _ := tl.Clip(other.ID); got != other {
		t.Errorf("clip on another video track changed: %+v", got)
	}
	if got, _ := tl.Clip(audio.ID); got != audio {
		t.Errorf("clip on audio track changed: %+v", got)
	}
}

func TestRippleDelete_Undo(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid5", "v1", 5)
	c := mustAdd(t, tl, "vid5", "v1", 10)

	if err := tl.RippleDelete(a.ID); err != nil {
		t.Fatalf("RippleDelete() error = %v", err)
	}
	if _, err := tl.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	for _, want := range []Clip{a, b, c} {
		if got, ok := tl.Clip(want.ID); !ok || got != want {
			t.Errorf("after undo clip = %+v, want %+v", got, want)
		}
	}
}

func TestMove(t *testing.T) {
	tl, _ := newTestTimeline(t)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	b := mustAdd(t, tl, "vid5", "v2", 10)
	au := mustAdd(t, tl, "aud8", "a1", 0)

	snap := SnapOptions{Enabled: true, ThresholdPx: 10, PixelsPerSecond: 20}
	got, err := tl.Move(b.ID, "v1", 5.3, snap)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got.Start != 5 || got.TrackID != "v1" || got.Duration != b.Duration || got.Offset != b.Offset {
		t.Errorf("Move() with snap = %+v", got)
	}

	got, err = tl.Move(b.ID, "v1", 5.3, SnapOptions{})
	if err != nil {
		t.Fatalf("Move() without snap error = %v", err)
	}
	if got.Start != 5.3 {
		t.Errorf("Move() without snap start = %v, want 5.3", got.Start)
	}

	if _, err := tl.Move(au.ID, "v1", 20, SnapOptions{}); !errors.Is(err, ErrIncompatibleTrack) {
		t.Errorf("Move(audio to video) error = %v, want ErrIncompatibleTrack", err)
	}
	var oe *OverlapError
	if _, err := tl.Move(b.ID, "v1", 2, SnapOptions{}); !errors.As(err, &oe) {
		t.Errorf("Move() onto A error = %v, want OverlapError", err)
	}
	if _, err := tl.Move(a.ID, "missing", 0, SnapOptions{}); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Move() to missing track error = %v, want ErrTrackNotFound", err)
	}
}

func TestMove_SnapToPlayhead(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid5", "v1", 0)

	snap := SnapOptions{Enabled: true, Playhead: 12, ThresholdPx: 10, PixelsPerSecond: 20}
	got, err := tl.Move(c.ID, "", 11.7, snap)
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if got.Start != 12 {
		t.Errorf("Start = %v, want 12 (playhead)", got.Start)
	}
}

func TestSetSpeed(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)
	mustAdd(t, tl, "vid5", "v1", 10)

	fast, err := tl.SetSpeed(c.ID, 2)
	if err != nil {
		t.Fatalf("SetSpeed(2) error = %v", err)
	}
	if fast.Duration != 5 || fast.SourceEnd() != 10 {
		t.Errorf("SetSpeed(2) = dur %v src end %v", fast.Duration, fast.SourceEnd())
	}

	var oe *OverlapError
	if _, err := tl.SetSpeed(c.ID, 0.5); !errors.As(err, &oe) {
		t.Errorf("SetSpeed(0.5) error = %v, want OverlapError", err)
	}
	if _, err := tl.SetSpeed(c.ID, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetSpeed(0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestSetAudioDetached(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)

	got, err := tl.SetAudioDetached(c.ID, true)
	if err != nil || !got.IsAudioDetached {
		t.Fatalf("SetAudioDetached() = %+v, %v", got, err)
	}
	tl.Undo()
	if got, _ := tl.Clip(c.ID); got.IsAudioDetached {
		t.Error("IsAudioDetached still set after undo")
	}
}

func TestUndoRedo(t *testing.T) {
	tl, _ := newTestTimeline(t)

	if _, err := tl.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() on empty history error = %v", err)
	}

	c := mustAdd(t, tl, "vid10", "v1", 0)
	trimmed, _ := tl.Trim(c.ID, EdgeRight, 6)
	_, right, _ := tl.Split(c.ID, 4)

	if _, err := tl.Undo(); err != nil {
		t.Fatalf("Undo(split) error = %v", err)
	}
	if _, ok := tl.Clip(right.ID); ok {
		t.Error("right half still present after undoing split")
	}
	if got, _ := tl.Clip(c.ID); got != trimmed {
		t.Errorf("after undo(split) = %+v, want %+v", got, trimmed)
	}

	tl.Undo()
	tl.Undo()
	if tl.Len() != 0 {
		t.Errorf("Len() = %d after undoing add, want 0", tl.Len())
	}

	if _, err := tl.Redo(); err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if got, ok := tl.Clip(c.ID); !ok || got != c {
		t.Errorf("Redo(add) = %+v, want %+v", got, c)
	}

	mustAdd(t, tl, "vid5", "v2", 0)
	if tl.History().CanRedo() {
		t.Error("new edit did not clear the redo stack")
	}
	if _, err := tl.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() error = %v, want ErrNothingToRedo", err)
	}
}

func TestHistory_Bounded(t *testing.T) {
	tl := New(testMedia(), Options{HistoryDepth: 3}, testTracks())
	c := mustAdd(t, tl, "vid10", "v1", 0)
	for _, end := range []float64{9, 8, 7, 6} {
		if _, err := tl.Trim(c.ID, EdgeRight, end); err != nil {
			t.Fatalf("Trim() error = %v", err)
		}
	}
	undo, redo := tl.History().Depths()
	if undo != 3 || redo != 0 {
		t.Errorf("Depths() = %d, %d; want 3, 0", undo, redo)
	}
}

func TestLockedTrack(t *testing.T) {
	tl, _ := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)

	locked := true
	if _, err := tl.UpdateTrack("v1", TrackUpdate{Locked: &locked}); err != nil {
		t.Fatalf("UpdateTrack() error = %v", err)
	}

	if _, err := tl.Add("vid5", "v1", 20); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Add() error = %v, want ErrTrackLocked", err)
	}
	if _, err := tl.Trim(c.ID, EdgeRight, 5); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("Trim() error = %v, want ErrTrackLocked", err)
	}
	if err := tl.RippleDelete(c.ID); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("RippleDelete() error = %v, want ErrTrackLocked", err)
	}
	if err := tl.RemoveTrack("v1"); !errors.Is(err, ErrTrackLocked) {
		t.Errorf("RemoveTrack() error = %v, want ErrTrackLocked", err)
	}

	locked = false
	if _, err := tl.UpdateTrack("v1", TrackUpdate{Locked: &locked}); err != nil {
		t.Fatalf("UpdateTrack(unlock) error = %v", err)
	}
	if _, err := tl.Trim(c.ID, EdgeRight, 5); err != nil {
		t.Errorf("Trim() after unlock error = %v", err)
	}
}

func TestTracks(t *testing.T) {
	tl, _ := newTestTimeline(t)

	tr, err := tl.AddTrack("", TrackVideo)
	if err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	if tr.Name != "Video 3" || tr.Volume != 1 {
		t.Errorf("AddTrack() = %+v", tr)
	}
	if _, err := tl.AddTrack("x", "midi"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("AddTrack(midi) error = %v", err)
	}

	vol := 1.7
	muted := true
	got, err := tl.UpdateTrack(tr.ID, TrackUpdate{Volume: &vol, Muted: &muted})
	if err != nil {
		t.Fatalf("UpdateTrack() error = %v", err)
	}
	if got.Volume != 1 || !got.IsMuted {
		t.Errorf("UpdateTrack() = %+v, want volume clamped to 1 and muted", got)
	}

	c := mustAdd(t, tl, "vid5", "v2", 0)
	if err := tl.RemoveTrack("v2"); err != nil {
		t.Fatalf("RemoveTrack() error = %v", err)
	}
	if _, ok := tl.Clip(c.ID); ok {
		t.Error("clip survived removal of its track")
	}
	if len(tl.Tracks()) != 3 {
		t.Errorf("Tracks() = %d, want 3", len(tl.Tracks()))
	}

	if _, err := tl.Undo(); err != nil {
		t.Fatalf("Undo(remove track) error = %v", err)
	}
	tracks := tl.Tracks()
	if len(tracks) != 4 || tracks[1].ID != "v2" {
		t.Errorf("Tracks() after undo = %v, want v2 back at index 1", tracks)
	}
	if _, ok := tl.Clip(c.ID); !ok {
		t.Error("clip not restored with its track")
	}
}

func TestQueries(t *testing.T) {
	tl, _ := newTestTimeline(t)
	b := mustAdd(t, tl, "vid5", "v1", 6)
	a := mustAdd(t, tl, "vid5", "v1", 0)
	mustAdd(t, tl, "aud8", "a1", 4)

	clips := tl.ClipsOnTrack("v1")
	if len(clips) != 2 || clips[0].ID != a.ID || clips[1].ID != b.ID {
		t.Errorf("ClipsOnTrack() not ordered by start: %v", clips)
	}

	if got, ok := tl.ClipAt("v1", 6); !ok || got.ID != b.ID {
		t.Errorf("ClipAt(6) = %v, %v", got.ID, ok)
	}
	if _, ok := tl.ClipAt("v1", 5.5); ok {
		t.Error("ClipAt() in a gap should find nothing")
	}
	if _, ok := tl.ClipAt("v1", 5); ok {
		t.Error("ClipAt() at a clip end should find nothing")
	}
	if got := tl.TotalDuration(); got != 12 {
		t.Errorf("TotalDuration() = %v, want 12", got)
	}

	all := tl.Clips()
	if len(all) != 3 || all[0].ID != a.ID || all[2].TrackID != "a1" {
		t.Errorf("Clips() order = %v", all)
	}
}

func TestValidateAndPrune(t *testing.T) {
	tl, m := newTestTimeline(t)
	keep := mustAdd(t, tl, "vid5", "v1", 0)
	gone := mustAdd(t, tl, "vid10", "v1", 5)

	if issues := tl.Validate(); len(issues) != 0 {
		t.Fatalf("Validate() = %v, want none", issues)
	}

	delete(m, "vid10")
	issues := tl.Validate()
	if len(issues) != 1 || issues[0].ClipID != gone.ID || issues[0].Kind != IssueDanglingMedia {
		t.Fatalf("Validate() = %v", issues)
	}
	var de *DanglingReferenceError
	if !errors.As(issues[0].Err(), &de) || de.Ref != RefMedia || de.ID != "vid10" {
		t.Errorf("Issue.Err() = %v", issues[0].Err())
	}

	// Broken clips can still be moved around.
	if _, err := tl.Move(gone.ID, "", 8, SnapOptions{}); err != nil {
		t.Errorf("Move() of dangling clip error = %v", err)
	}

	removed, err := tl.PruneDangling()
	if err != nil {
		t.Fatalf("PruneDangling() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != gone.ID {
		t.Errorf("PruneDangling() = %v", removed)
	}
	if _, ok := tl.Clip(keep.ID); !ok {
		t.Error("valid clip pruned")
	}
	if removed, _ := tl.PruneDangling(); len(removed) != 0 {
		t.Errorf("second PruneDangling() = %v", removed)
	}
}

func TestValidate_ExceedsSourceAfterProbe(t *testing.T) {
	tl, m := newTestTimeline(t)
	c := mustAdd(t, tl, "vid10", "v1", 0)

	it := m["vid10"]
	it.Duration = 7
	m["vid10"] = it

	issues := tl.Validate()
	if len(issues) != 1 || issues[0].Kind != IssueExceedsSource {
		t.Fatalf("Validate() = %v, want exceeds_source", issues)
	}

	// Edits that do not extend the source span stay allowed.
	if _, err := tl.Move(c.ID, "", 3, SnapOptions{}); err != nil {
		t.Errorf("Move() error = %v", err)
	}
	if _, err := tl.Trim(c.ID, EdgeRight, 10); err != nil {
		t.Errorf("Trim() shortening error = %v", err)
	}
	var be *BoundsError
	if _, err := tl.Trim(c.ID, EdgeRight, 12); !errors.As(err, &be) {
		t.Errorf("Trim() extending error = %v, want BoundsError", err)
	}
}

func TestRandomEditsKeepInvariant(t *testing.T) {
	tl, _ := newTestTimeline(t)
	rng := rand.New(rand.NewPCG(7, 11))
	mediaIDs := []string{"vid5", "vid10", "img"}
	transitions := []TransitionType{TransitionCrossDissolve, TransitionFadeBlack, TransitionNone}

	randomClip := func() (Clip, bool) {
		clips := tl.Clips()
		if len(clips) == 0 {
			return Clip{}, false
		}
		return clips[rng.IntN(len(clips))], true
	}
	at := func() float64 { return float64(rng.IntN(400)) / 8 }

	for i := 0; i < 600; i++ {
		switch rng.IntN(9) {
		case 0, 1:
			tl.Add(mediaIDs[rng.IntN(len(mediaIDs))], []string{"v1", "v2"}[rng.IntN(2)], at())
		case 2:
			if c, ok := randomClip(); ok {
				tl.Trim(c.ID, []Edge{EdgeLeft, EdgeRight}[rng.IntN(2)], at())
			}
		case 3:
			if c, ok := randomClip(); ok {
				tl.Move(c.ID, "", at(), SnapOptions{Enabled: true, Playhead: at(), ThresholdPx: 10, PixelsPerSecond: 8})
			}
		case 4:
			if c, ok := randomClip(); ok {
				tl.Split(c.ID, c.Start+c.Duration*rng.Float64())
			}
		case 5:
			if c, ok := randomClip(); ok {
				tl.RippleDelete(c.ID)
			}
		case 6:
			if c, ok := randomClip(); ok {
				tl.SetTransition(c.ID, transitions[rng.IntN(len(transitions))], 0.5+rng.Float64())
			}
		case 7:
			tl.Undo()
		case 8:
			tl.Redo()
		}
		assertNoIllegalOverlap(t, tl)
	}
}
