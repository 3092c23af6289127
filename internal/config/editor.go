package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TrackTemplate describes one lane created when the editor starts.
type TrackTemplate struct {
	Name   string   `yaml:"name"`
	Kind   string   `yaml:"kind"`
	Volume *float64 `yaml:"volume,omitempty"`
	Muted  bool     `yaml:"muted,omitempty"`
	Locked bool     `yaml:"locked,omitempty"`
}

// EditorFile is the on-disk editor.yaml layout.
type EditorFile struct {
	Version int             `yaml:"version"`
	Tracks  []TrackTemplate `yaml:"tracks"`
	// Keymap maps a key combination ("ctrl+shift+z") to a command name ("redo").
	// Entries override or extend the built-in keymap; an empty command unbinds.
	Keymap map[string]string `yaml:"keymap"`
}

// DefaultTracks is the template used when editor.yaml has no tracks.
func DefaultTracks() []TrackTemplate {
	return []TrackTemplate{
		{Name: "Video 1", Kind: "video"},
		{Name: "Video 2", Kind: "video"},
		{Name: "Audio 1", Kind: "audio"},
		{Name: "Audio 2", Kind: "audio"},
	}
}

// LoadEditorFile reads the editor YAML file at path. A missing file is not an
// error and yields the default track template with no keymap overrides.
func LoadEditorFile(path string) (*EditorFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &EditorFile{Version: 1, Tracks: DefaultTracks()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read editor file: %w", err)
	}
	return ParseEditorFile(data)
}

// ParseEditorFile decodes and validates editor YAML.
func ParseEditorFile(data []byte) (*EditorFile, error) {
	var ef EditorFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("parse editor file: %w", err)
	}
	if ef.Version == 0 {
		ef.Version = 1
	}
	if len(ef.Tracks) == 0 {
		ef.Tracks = DefaultTracks()
	}

	for i, t := range ef.Tracks {
		kind := strings.ToLower(strings.TrimSpace(t.Kind))
		if kind != "video" && kind != "audio" {
			return nil, fmt.Errorf("tracks[%d]: kind must be video or audio, got %q", i, t.Kind)
		}
		ef.Tracks[i].Kind = kind
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("tracks[%d]: name is required", i)
		}
		if t.Volume != nil && (*t.Volume < 0 || *t.Volume > 1) {
			return nil, fmt.Errorf("tracks[%d]: volume must be within [0,1]", i)
		}
	}

	return &ef, nil
}
