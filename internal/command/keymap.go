// Package command maps keyboard input to editor commands.
package command

import (
	"fmt"
	"slices"
	"strings"
)

type Action string

const (
	ActionPlayPause    Action = "play_pause"
	ActionDelete       Action = "delete"
	ActionRippleDelete Action = "ripple_delete"
	ActionSplit        Action = "split"
	ActionUndo         Action = "undo"
	ActionRedo         Action = "redo"
	ActionStepBackward Action = "step_backward"
	ActionStepForward  Action = "step_forward"
	ActionJumpBackward Action = "jump_backward"
	ActionJumpForward  Action = "jump_forward"
	ActionSeekStart    Action = "seek_start"
	ActionSeekEnd      Action = "seek_end"
	ActionZoomIn       Action = "zoom_in"
	ActionZoomOut      Action = "zoom_out"
	ActionDeselect     Action = "deselect"
	ActionSaveSession  Action = "save_session"
)

var actions = []Action{
	ActionPlayPause, ActionDelete, ActionRippleDelete, ActionSplit, ActionUndo, ActionRedo,
	ActionStepBackward, ActionStepForward, ActionJumpBackward, ActionJumpForward,
	ActionSeekStart, ActionSeekEnd, ActionZoomIn, ActionZoomOut, ActionDeselect, ActionSaveSession,
}

func (a Action) Valid() bool {
	return slices.Contains(actions, a)
}

// Mod is a set of modifier keys.
type Mod uint8

const (
	ModCtrl Mod = 1 << iota
	ModShift
	ModAlt
	ModMeta
)

var modNames = []struct {
	mod  Mod
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModMeta, "meta"},
}

var modAliases = map[string]Mod{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"super":   ModMeta,
}

var keyAliases = map[string]string{
	" ":        "space",
	"spacebar": "space",
	"esc":      "escape",
	"del":      "delete",
	"left":     "arrowleft",
	"right":    "arrowright",
	"up":       "arrowup",
	"down":     "arrowdown",
	"plus":     "+",
	"minus":    "-",
	"equal":    "=",
}

func normalizeKey(k string) string {
	if k == " " {
		return "space"
	}
	k = strings.ToLower(strings.TrimSpace(k))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// Combo is a key together with the exact set of modifiers held.
type Combo struct {
	Key string
	Mod Mod
}

func (c Combo) String() string {
	var parts []string
	for _, m := range modNames {
		if c.Mod&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, c.Key), "+")
}

// ParseCombo parses forms like "ctrl+shift+z", "Space" or "cmd+=".
func ParseCombo(s string) (Combo, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Combo{}, fmt.Errorf("empty key combination")
	}

	// A trailing "+" is the plus key itself, as in "ctrl++".
	key := ""
	if strings.HasSuffix(s, "++") || s == "+" {
		key = "+"
		s = strings.TrimSuffix(strings.TrimSuffix(s, "+"), "+")
	}

	var parts []string
	if s != "" {
		parts = strings.Split(s, "+")
	}
	if key == "" {
		key = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}

	var c Combo
	for _, p := range parts {
		m, ok := modAliases[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier %q in %q", p, s)
		}
		c.Mod |= m
	}
	c.Key = normalizeKey(key)
	if c.Key == "" {
		return Combo{}, fmt.Errorf("missing key in %q", s)
	}
	return c, nil
}

// Keymap binds combinations to actions. Lookups are exact: a binding for
// ctrl+z does not match ctrl+shift+z.
type Keymap map[Combo]Action

func mustCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultKeymap returns the built-in bindings. Ctrl and Meta variants are
// both bound so the same map serves every platform.
func DefaultKeymap() Keymap {
	km := Keymap{}
	bind := func(a Action, combos ...string) {
		for _, s := range combos {
			km[mustCombo(s)] = a
		}
	}
	bind(ActionPlayPause, "space")
	bind(ActionDelete, "delete", "backspace")
	bind(ActionRippleDelete, "shift+delete")
	bind(ActionSplit, "s")
	bind(ActionUndo, "ctrl+z", "meta+z")
	bind(ActionRedo, "ctrl+shift+z", "meta+shift+z", "ctrl+y")
	bind(ActionStepBackward, "arrowleft")
	bind(ActionStepForward, "arrowright")
	bind(ActionJumpBackward, "shift+arrowleft")
	bind(ActionJumpForward, "shift+arrowright")
	bind(ActionSeekStart, "home")
	bind(ActionSeekEnd, "end")
	bind(ActionZoomIn, "=", "shift+=", "+", "shift++")
	bind(ActionZoomOut, "-")
	bind(ActionDeselect, "escape")
	bind(ActionSaveSession, "ctrl+s", "meta+s")
	return km
}

// Apply merges overrides of the form combo -> action. An empty action or
// "none" removes the binding.
func (k Keymap) Apply(overrides map[string]string) error {
	for combo, name := range overrides {
		c, err := ParseCombo(combo)
		if err != nil {
			return err
		}
		a := Action(strings.ToLower(strings.TrimSpace(name)))
		if a == "" || a == "none" {
			delete(k, c)
			continue
		}
		if !a.Valid() {
			return fmt.Errorf("unknown action %q for %q", name, combo)
		}
		k[c] = a
	}
	return nil
}

// Bindings lists the keymap as combo string -> action, for display.
func (k Keymap) Bindings() map[string]Action {
	out := make(map[string]Action, len(k))
	for c, a := range k {
		out[c.String()] = a
	}
	return out
}
