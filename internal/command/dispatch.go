package command

import (
	"context"
	"log/slog"

	"github.com/storyreel/storyreel/internal/logging"
)

// KeyEvent is a raw key press from the input source.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
	// InTextInput is set while focus is inside a text-entry control.
	InTextInput bool `json:"in_text_input"`
}

func (e KeyEvent) Combo() Combo {
	var m Mod
	if e.Ctrl {
		m |= ModCtrl
	}
	if e.Shift {
		m |= ModShift
	}
	if e.Alt {
		m |= ModAlt
	}
	if e.Meta {
		m |= ModMeta
	}
	return Combo{Key: normalizeKey(e.Key), Mod: m}
}

// Command is a single editor action.
type Command struct {
	Action Action `json:"action"`
}

// Target executes commands. The editor implements it.
type Target interface {
	Execute(ctx context.Context, cmd Command) error
}

type Dispatcher struct {
	keymap Keymap
	target Target
	logger *slog.Logger
}

func NewDispatcher(target Target, keymap Keymap, logger *slog.Logger) *Dispatcher {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	return &Dispatcher{
		keymap: keymap,
		target: target,
		logger: logging.WithComponent(logging.OrDiscard(logger), "command"),
	}
}

// Resolve returns the action bound to ev. Focus in a text control
// suppresses every binding.
func (d *Dispatcher) Resolve(ev KeyEvent) (Action, bool) {
	if ev.InTextInput {
		return "", false
	}
	a, ok := d.keymap[ev.Combo()]
	return a, ok
}

// Dispatch invokes the target at most once for ev. It reports the action
// handled, or false when the event is not a shortcut.
func (d *Dispatcher) Dispatch(ctx context.Context, ev KeyEvent) (Action, bool, error) {
	a, ok := d.Resolve(ev)
	if !ok {
		return "", false, nil
	}
	err := d.target.Execute(ctx, Command{Action: a})
	if err != nil {
		d.logger.Debug("shortcut rejected", "combo", ev.Combo().String(), "action", a, "error", err)
	}
	return a, true, err
}

func (d *Dispatcher) Keymap() Keymap {
	return d.keymap
}
