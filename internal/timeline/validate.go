package timeline

import "fmt"

type IssueKind string

const (
	IssueDanglingMedia    IssueKind = "dangling_media"
	IssueDanglingTrack    IssueKind = "dangling_track"
	IssueOrphanTransition IssueKind = "orphan_transition"
	IssueExceedsSource    IssueKind = "exceeds_source"
)

// Issue is a validation warning about a clip. Clips with issues are kept
// so the editor can present them as broken.
type Issue struct {
	ClipID  string    `json:"clip_id"`
	Kind    IssueKind `json:"kind"`
	RefID   string    `json:"ref_id,omitempty"`
	Message string    `json:"message"`
}

// Err converts the issue into the matching typed error.
func (i Issue) Err() error {
	switch i.Kind {
	case IssueDanglingMedia:
		return &DanglingReferenceError{ClipID: i.ClipID, Ref: RefMedia, ID: i.RefID}
	case IssueDanglingTrack:
		return &DanglingReferenceError{ClipID: i.ClipID, Ref: RefTrack, ID: i.RefID}
	case IssueOrphanTransition:
		return &DanglingReferenceError{ClipID: i.ClipID, Ref: RefTransition}
	default:
		return &BoundsError{ClipID: i.ClipID, Reason: i.Message}
	}
}

// Validate reports clips whose references no longer resolve, transitions
// without a preceding clip, and clips whose source span outgrew probed media.
func (tl *Timeline) Validate() []Issue {
	var issues []Issue
	for _, c := range tl.Clips() {
		if _, ok := tl.st.track(c.TrackID); !ok {
			issues = append(issues, newIssue(c.ID, IssueDanglingTrack, c.TrackID))
		}
		if tl.media != nil {
			if _, ok := tl.media.Get(c.MediaID); !ok {
				issues = append(issues, newIssue(c.ID, IssueDanglingMedia, c.MediaID))
				continue
			}
		}
		if d, bounded := tl.mediaDuration(c.MediaID); bounded && c.SourceEnd() > d+Epsilon {
			issues = append(issues, Issue{
				ClipID:  c.ID,
				Kind:    IssueExceedsSource,
				RefID:   c.MediaID,
				Message: fmt.Sprintf("source span ends at %.3fs, media is %.3fs", c.SourceEnd(), d),
			})
		}
	}
	for _, t := range tl.st.tracks {
		clips := tl.st.clipsOnTrack(t.ID)
		for i, c := range clips {
			if c.Transition != nil && i == 0 {
				issues = append(issues, newIssue(c.ID, IssueOrphanTransition, ""))
			}
		}
	}
	return issues
}

func newIssue(clipID string, kind IssueKind, ref string) Issue {
	is := Issue{ClipID: clipID, Kind: kind, RefID: ref}
	is.Message = is.Err().Error()
	return is
}

// checkClip verifies the bounds of a clip after an edit. before is the
// clip's prior state, or nil for a new clip; a source span that already
// exceeded the media is tolerated as long as the edit does not extend it.
func (tl *Timeline) checkClip(s *state, before *Clip, c Clip) error {
	if _, ok := s.track(c.TrackID); !ok {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, c.TrackID)
	}
	if c.Duration <= Epsilon {
		return boundsErr(c.ID, "duration %.3fs must be positive", c.Duration)
	}
	if c.Start < -Epsilon {
		return boundsErr(c.ID, "start %.3fs is negative", c.Start)
	}
	if c.Offset < -Epsilon {
		return boundsErr(c.ID, "offset %.3fs is negative", c.Offset)
	}
	if c.Speed <= 0 {
		return boundsErr(c.ID, "speed %.3f must be positive", c.Speed)
	}
	if c.Transition != nil && c.Transition.Duration > c.Duration+Epsilon {
		return boundsErr(c.ID, "transition %.3fs is longer than the clip", c.Transition.Duration)
	}
	d, bounded := tl.mediaDuration(c.MediaID)
	if bounded && c.SourceEnd() > d+Epsilon {
		if before == nil || c.SourceEnd() > before.SourceEnd()+Epsilon {
			return boundsErr(c.ID, "source span ends at %.3fs, media is %.3fs", c.SourceEnd(), d)
		}
	}
	// Images and unresolved media have no source end; the clip cap bounds them.
	if !bounded && c.Duration > tl.opts.MaxClipDuration+Epsilon {
		if before == nil || c.Duration > before.Duration+Epsilon {
			return boundsErr(c.ID, "duration %.3fs exceeds the %.3fs clip limit", c.Duration, tl.opts.MaxClipDuration)
		}
	}
	return nil
}

// checkTrack verifies the per-track overlap rules. A clip may overlap only
// its immediate predecessor, by at most its own transition duration, and
// must end after it. A transition that pairs with an abutting or
// overlapping predecessor may not outlast that predecessor.
func checkTrack(s *state, trackID string) error {
	clips := s.clipsOnTrack(trackID)
	if len(clips) < 2 {
		return nil
	}
	// earlierEnd is the furthest end among clips before the predecessor.
	earlierEnd, earlierID := 0.0, ""
	for i, c := range clips[1:] {
		prev := clips[i]

		if overlap := earlierEnd - c.Start; overlap > Epsilon {
			return &OverlapError{
				TrackID: trackID,
				ClipID:  c.ID,
				OtherID: earlierID,
				Amount:  min(overlap, c.Duration),
			}
		}

		overlap := prev.End() - c.Start
		if overlap > Epsilon {
			allowed := c.allowedOverlap()
			if overlap > allowed+Epsilon || c.End() < prev.End()-Epsilon {
				return &OverlapError{
					TrackID: trackID,
					ClipID:  c.ID,
					OtherID: prev.ID,
					Amount:  min(overlap, c.Duration),
					Allowed: allowed,
				}
			}
		}
		if c.Transition != nil && overlap > -Epsilon && c.Transition.Duration > prev.Duration+Epsilon {
			return boundsErr(c.ID, "transition %.3fs outlasts preceding clip %s (%.3fs)",
				c.Transition.Duration, prev.ID, prev.Duration)
		}

		if i == 0 || prev.End() > earlierEnd {
			earlierEnd, earlierID = prev.End(), prev.ID
		}
	}
	return nil
}
