package export

import (
	"cmp"
	"slices"
	"strings"

	"github.com/storyreel/storyreel/internal/media"
	"github.com/storyreel/storyreel/internal/timeline"
)

const maxClipNameLen = 160

// BuildEvents converts timeline clips to EDL events ordered by record
// position. Clips on muted or unknown tracks, or whose media is gone, are
// returned as skipped ids. An empty trackIDs selects every track.
func BuildEvents(clips []timeline.Clip, tracks []timeline.Track, lookup timeline.MediaLookup, trackIDs []string) ([]Event, []string) {
	byID := make(map[string]timeline.Track, len(tracks))
	order := make(map[string]int, len(tracks))
	for i, t := range tracks {
		byID[t.ID] = t
		order[t.ID] = i
	}

	events := make([]Event, 0, len(clips))
	skipped := make([]string, 0)
	for _, c := range clips {
		if len(trackIDs) > 0 && !slices.Contains(trackIDs, c.TrackID) {
			continue
		}
		tr, ok := byID[c.TrackID]
		if !ok || tr.IsMuted {
			skipped = append(skipped, c.ID)
			continue
		}
		it, ok := lookup.Get(c.MediaID)
		if !ok || it.URL == "" {
			skipped = append(skipped, c.ID)
			continue
		}
		events = append(events, newEvent(c, tr, it))
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.RecordIn, b.RecordIn); c != 0 {
			return c
		}
		if c := cmp.Compare(order[a.TrackID], order[b.TrackID]); c != 0 {
			return c
		}
		return strings.Compare(a.ClipID, b.ClipID)
	})
	return events, skipped
}

func newEvent(c timeline.Clip, tr timeline.Track, it media.Item) Event {
	name := SanitizeName(it.Name, maxClipNameLen)
	if name == "" {
		name = c.ID
	}
	ev := Event{
		ClipID:    c.ID,
		TrackID:   c.TrackID,
		Name:      name,
		MediaPath: it.URL,
		Channel:   "V",
		SourceIn:  c.Offset,
		SourceOut: c.SourceEnd(),
		RecordIn:  c.Start,
		RecordOut: c.End(),
		Speed:     c.Speed,
	}
	if tr.Kind == timeline.TrackAudio {
		ev.Channel = "A"
	}
	if c.Transition != nil {
		switch c.Transition.Type {
		case timeline.TransitionCrossDissolve:
			ev.Dissolve = c.Transition.Duration
		case timeline.TransitionNone:
		default:
			ev.Effect = string(c.Transition.Type)
		}
	}
	return ev
}
