package editor

import (
	"context"
	"fmt"

	"github.com/storyreel/storyreel/internal/command"
	"github.com/storyreel/storyreel/internal/session"
)

// Execute performs exactly one command. It makes *Editor a command.Target.
func (e *Editor) Execute(ctx context.Context, cmd command.Command) error {
	switch cmd.Action {
	case command.ActionPlayPause:
		e.TogglePlay()
	case command.ActionDelete, command.ActionRippleDelete:
		return e.deleteSelection(ctx, cmd.Action == command.ActionRippleDelete)
	case command.ActionSplit:
		_, _, err := e.SplitAtPlayhead()
		return err
	case command.ActionUndo:
		return e.Undo()
	case command.ActionRedo:
		return e.Redo()
	case command.ActionStepBackward:
		e.StepFrames(-1)
	case command.ActionStepForward:
		e.StepFrames(1)
	case command.ActionJumpBackward:
		e.Step(-1)
	case command.ActionJumpForward:
		e.Step(1)
	case command.ActionSeekStart:
		e.Seek(0)
	case command.ActionSeekEnd:
		e.Seek(e.Snapshot().TotalDuration)
	case command.ActionZoomIn:
		e.SetZoom(e.Zoom() * zoomStep)
	case command.ActionZoomOut:
		e.SetZoom(e.Zoom() / zoomStep)
	case command.ActionDeselect:
		return e.Select("", "")
	case command.ActionSaveSession:
		return e.touchSession(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return nil
}

func (e *Editor) deleteSelection(ctx context.Context, ripple bool) error {
	sel := e.Selection()
	if sel == nil {
		return ErrNoSelection
	}
	switch sel.Kind {
	case SelectClip:
		return e.DeleteClip(sel.ID, ripple)
	case SelectMedia:
		return e.RemoveMedia(ctx, sel.ID)
	}
	return ErrNoSelection
}

// touchSession re-saves the wizard session, refreshing its expiry.
func (e *Editor) touchSession(ctx context.Context) error {
	if e.sessions == nil {
		return nil
	}
	_, err := e.sessions.Save(ctx, session.Patch{})
	return err
}

var _ command.Target = (*Editor)(nil)
