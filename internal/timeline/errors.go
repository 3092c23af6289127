package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrClipNotFound      = errors.New("clip not found")
	ErrTrackNotFound     = errors.New("track not found")
	ErrMediaNotFound     = errors.New("media not found")
	ErrTrackLocked       = errors.New("track is locked")
	ErrIncompatibleTrack = errors.New("media kind does not match track kind")
	ErrNoPrecedingClip   = errors.New("no preceding clip on track")
	ErrNotMergeable      = errors.New("clips are not mergeable")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
)

// OverlapError reports two clips on one track sharing more time than the
// later clip's transition allows.
type OverlapError struct {
	TrackID string
	ClipID  string
	OtherID string
	Amount  float64
	Allowed float64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("clip %s overlaps clip %s on track %s by %.3fs (allowed %.3fs)",
		e.ClipID, e.OtherID, e.TrackID, e.Amount, e.Allowed)
}

// BoundsError reports a non-positive duration, a negative position or
// offset, or a source span past the end of the media.
type BoundsError struct {
	ClipID string
	Reason string
}

func (e *BoundsError) Error() string {
	if e.ClipID == "" {
		return "out of bounds: " + e.Reason
	}
	return fmt.Sprintf("clip %s out of bounds: %s", e.ClipID, e.Reason)
}

type RefKind string

const (
	RefMedia      RefKind = "media"
	RefTrack      RefKind = "track"
	RefTransition RefKind = "transition"
)

// DanglingReferenceError reports a clip whose media, track or transition
// partner no longer exists.
type DanglingReferenceError struct {
	ClipID string
	Ref    RefKind
	ID     string
}

func (e *DanglingReferenceError) Error() string {
	if e.Ref == RefTransition {
		return fmt.Sprintf("clip %s has a transition but no preceding clip", e.ClipID)
	}
	return fmt.Sprintf("clip %s references missing %s %s", e.ClipID, e.Ref, e.ID)
}

func boundsErr(clipID, format string, args ...any) error {
	return &BoundsError{ClipID: clipID, Reason: fmt.Sprintf(format, args...)}
}
