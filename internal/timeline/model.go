package timeline

import (
	"slices"

	"github.com/storyreel/storyreel/internal/media"
)

type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

func (k TrackKind) Valid() bool {
	return k == TrackVideo || k == TrackAudio
}

// Accepts reports whether media of kind mk may be placed on a track of kind k.
func (k TrackKind) Accepts(mk media.Kind) bool {
	switch mk {
	case media.KindVideo, media.KindImage:
		return k == TrackVideo
	case media.KindAudio:
		return k == TrackAudio
	}
	return false
}

type Track struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     TrackKind `json:"kind"`
	Volume   float64   `json:"volume"`
	IsMuted  bool      `json:"is_muted"`
	IsLocked bool      `json:"is_locked"`
}

type TransitionType string

const (
	TransitionNone          TransitionType = "none"
	TransitionCrossDissolve TransitionType = "cross-dissolve"
	TransitionFadeBlack     TransitionType = "fade-black"
	TransitionFadeWhite     TransitionType = "fade-white"
	TransitionWipeLeft      TransitionType = "wipe-left"
	TransitionWipeRight     TransitionType = "wipe-right"
)

func (t TransitionType) Valid() bool {
	switch t {
	case TransitionNone, TransitionCrossDissolve, TransitionFadeBlack,
		TransitionFadeWhite, TransitionWipeLeft, TransitionWipeRight:
		return true
	}
	return false
}

// Transition blends a clip with the clip before it on the same track.
// The preceding clip may extend up to Duration seconds into this clip.
type Transition struct {
	Type     TransitionType `json:"type"`
	Duration float64        `json:"duration"`
}

// Clip places a span of one media item on one track.
// MediaID and TrackID are lookups, never ownership.
type Clip struct {
	ID              string      `json:"id"`
	MediaID         string      `json:"media_id"`
	TrackID         string      `json:"track_id"`
	Start           float64     `json:"start"`
	Duration        float64     `json:"duration"`
	Offset          float64     `json:"offset"`
	Speed           float64     `json:"speed"`
	Transition      *Transition `json:"transition,omitempty"`
	IsAudioDetached bool        `json:"is_audio_detached"`
}

func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// SourceEnd is the position in the media where playback of the clip stops.
func (c Clip) SourceEnd() float64 {
	return c.Offset + c.Duration*c.Speed
}

func (c Clip) allowedOverlap() float64 {
	if c.Transition == nil {
		return 0
	}
	return c.Transition.Duration
}

func (c Clip) clone() Clip {
	if c.Transition != nil {
		tr := *c.Transition
		c.Transition = &tr
	}
	return c
}

func clipPtr(c Clip) *Clip {
	c = c.clone()
	return &c
}

// MediaLookup resolves media ids. *media.Catalog satisfies it.
type MediaLookup interface {
	Get(id string) (media.Item, bool)
}

const (
	DefaultMaxClipDuration = 60.0
	DefaultMediaDuration   = 5.0
)

type Options struct {
	MaxClipDuration float64
	DefaultDuration float64
	HistoryDepth    int
}

type state struct {
	tracks []Track
	clips  map[string]Clip
}

func (s *state) clone() *state {
	out := &state{
		tracks: slices.Clone(s.tracks),
		clips:  make(map[string]Clip, len(s.clips)),
	}
	for id, c := range s.clips {
		out.clips[id] = c
	}
	return out
}

func (s *state) trackIndex(id string) int {
	return slices.IndexFunc(s.tracks, func(t Track) bool { return t.ID == id })
}

func (s *state) track(id string) (Track, bool) {
	i := s.trackIndex(id)
	if i < 0 {
		return Track{}, false
	}
	return s.tracks[i], true
}

func (s *state) clipsOnTrack(trackID string) []Clip {
	var out []Clip
	for _, c := range s.clips {
		if c.TrackID == trackID {
			out = append(out, c)
		}
	}
	sortClips(out)
	return out
}

func sortClips(clips []Clip) {
	slices.SortFunc(clips, func(a, b Clip) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// Timeline holds tracks and clips and applies edits to them. It is not
// safe for concurrent use; the editor serialises access.
type Timeline struct {
	media   MediaLookup
	opts    Options
	st      *state
	history *History
}

// New creates a timeline with the given initial tracks. Initial tracks are
// not recorded in history.
func New(lookup MediaLookup, opts Options, tracks []Track) *Timeline {
	if opts.MaxClipDuration <= 0 {
		opts.MaxClipDuration = DefaultMaxClipDuration
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultMediaDuration
	}
	return &Timeline{
		media:   lookup,
		opts:    opts,
		st:      &state{tracks: slices.Clone(tracks), clips: make(map[string]Clip)},
		history: NewHistory(opts.HistoryDepth),
	}
}

func (tl *Timeline) Tracks() []Track {
	return slices.Clone(tl.st.tracks)
}

func (tl *Timeline) Track(id string) (Track, bool) {
	return tl.st.track(id)
}

// Clips returns every clip ordered by track position, then start.
func (tl *Timeline) Clips() []Clip {
	out := make([]Clip, 0, len(tl.st.clips))
	for _, t := range tl.st.tracks {
		for _, c := range tl.st.clipsOnTrack(t.ID) {
			out = append(out, c.clone())
		}
	}
	// Clips on tracks that no longer exist still belong to the timeline.
	var orphans []Clip
	for _, c := range tl.st.clips {
		if tl.st.trackIndex(c.TrackID) < 0 {
			orphans = append(orphans, c.clone())
		}
	}
	sortClips(orphans)
	return append(out, orphans...)
}

func (tl *Timeline) Clip(id string) (Clip, bool) {
	c, ok := tl.st.clips[id]
	if !ok {
		return Clip{}, false
	}
	return c.clone(), true
}

// ClipsOnTrack returns the clips of one track ordered by start.
func (tl *Timeline) ClipsOnTrack(trackID string) []Clip {
	clips := tl.st.clipsOnTrack(trackID)
	for i := range clips {
		clips[i] = clips[i].clone()
	}
	return clips
}

// ClipAt returns the clip on trackID whose interval contains t. Inside a
// transition window the incoming clip wins.
func (tl *Timeline) ClipAt(trackID string, t float64) (Clip, bool) {
	clips := tl.st.clipsOnTrack(trackID)
	for i := len(clips) - 1; i >= 0; i-- {
		if Contains(clips[i].Start, clips[i].End(), t) {
			return clips[i].clone(), true
		}
	}
	return Clip{}, false
}

// TotalDuration is the latest clip end across all tracks.
func (tl *Timeline) TotalDuration() float64 {
	total := 0.0
	for _, c := range tl.st.clips {
		total = max(total, c.End())
	}
	return total
}

func (tl *Timeline) Len() int {
	return len(tl.st.clips)
}

func (tl *Timeline) History() *History {
	return tl.history
}

// mediaDuration returns the source length bound for a clip and whether
// the bound applies. Images and unresolved media are unbounded.
func (tl *Timeline) mediaDuration(mediaID string) (float64, bool) {
	if tl.media == nil {
		return 0, false
	}
	it, ok := tl.media.Get(mediaID)
	if !ok || it.Kind == media.KindImage || it.Duration <= 0 {
		return 0, false
	}
	return it.Duration, true
}
