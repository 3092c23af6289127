// Package session persists the state of the storyboard generation wizard so
// it can be resumed after a restart.
package session

import (
	"maps"
	"slices"
	"time"
)

type Step string

const (
	StepPrompt     Step = "prompt"
	StepTransition Step = "transition"
	StepProcess    Step = "process"
	StepSelection  Step = "selection"
	StepResult     Step = "result"
)

var steps = []Step{StepPrompt, StepTransition, StepProcess, StepSelection, StepResult}

func (s Step) Valid() bool {
	return slices.Contains(steps, s)
}

type MasterData struct {
	URL        string `json:"url"`
	Prompt     string `json:"prompt"`
	PanelCount int    `json:"panelCount"`
}

// Session is the persisted wizard record. Field names are part of the
// stored format.
type Session struct {
	Step             Step            `json:"step"`
	MasterData       *MasterData     `json:"masterData,omitempty"`
	ProcessedPanels  []string        `json:"processedPanels,omitempty"`
	FinalPanels      []string        `json:"finalPanels,omitempty"`
	LinkedPanelData  map[int]string  `json:"linkedPanelData,omitempty"`
	TransitionPanels []string        `json:"transitionPanels,omitempty"`
	Prompts          map[int]string  `json:"prompts,omitempty"`
	Durations        map[int]float64 `json:"durations,omitempty"`
	VideoURLs        map[int]string  `json:"videoUrls,omitempty"`
	// Timestamp is the last write time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// SavedAt returns Timestamp as a time.
func (s *Session) SavedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Patch is a partial update. An empty Step keeps the stored step. Nil
// slices and MasterData keep the stored value; a non-nil slice replaces it.
// Maps are merged key by key.
type Patch struct {
	Step             Step            `json:"step,omitempty"`
	MasterData       *MasterData     `json:"masterData,omitempty"`
	ProcessedPanels  []string        `json:"processedPanels,omitempty"`
	FinalPanels      []string        `json:"finalPanels,omitempty"`
	LinkedPanelData  map[int]string  `json:"linkedPanelData,omitempty"`
	TransitionPanels []string        `json:"transitionPanels,omitempty"`
	Prompts          map[int]string  `json:"prompts,omitempty"`
	Durations        map[int]float64 `json:"durations,omitempty"`
	VideoURLs        map[int]string  `json:"videoUrls,omitempty"`
}

func merge(prior *Session, p Patch, now time.Time) *Session {
	out := &Session{Step: StepPrompt}
	if prior != nil {
		*out = *prior
		out.MasterData = cloneMaster(prior.MasterData)
		out.ProcessedPanels = slices.Clone(prior.ProcessedPanels)
		out.FinalPanels = slices.Clone(prior.FinalPanels)
		out.TransitionPanels = slices.Clone(prior.TransitionPanels)
		out.LinkedPanelData = maps.Clone(prior.LinkedPanelData)
		out.Prompts = maps.Clone(prior.Prompts)
		out.Durations = maps.Clone(prior.Durations)
		out.VideoURLs = maps.Clone(prior.VideoURLs)
	}

	if p.Step != "" {
		out.Step = p.Step
	}
	if p.MasterData != nil {
		out.MasterData = cloneMaster(p.MasterData)
	}
	if p.ProcessedPanels != nil {
		out.ProcessedPanels = slices.Clone(p.ProcessedPanels)
	}
	if p.FinalPanels != nil {
		out.FinalPanels = slices.Clone(p.FinalPanels)
	}
	if p.TransitionPanels != nil {
		out.TransitionPanels = slices.Clone(p.TransitionPanels)
	}
	out.LinkedPanelData = mergeMap(out.LinkedPanelData, p.LinkedPanelData)
	out.Prompts = mergeMap(out.Prompts, p.Prompts)
	out.Durations = mergeMap(out.Durations, p.Durations)
	out.VideoURLs = mergeMap(out.VideoURLs, p.VideoURLs)

	out.Timestamp = now.UnixMilli()
	return out
}

func mergeMap[V any](dst, src map[int]V) map[int]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[int]V, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

func cloneMaster(m *MasterData) *MasterData {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
