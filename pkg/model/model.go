package model

import (
	"fmt"
	"strings"
)

// Element kinds understood by the composer. The set is open: anything else is
// carried through decoding and dropped at scheduling time.
const (
	KindRectangle = "rectangle"
	KindCircle    = "circle"
	KindArrow     = "arrow"
	KindText      = "text"
)

// Entrance animations.
const (
	AnimFadeIn         = "FadeIn"
	AnimWrite          = "Write"
	AnimCreate         = "Create"
	AnimGrowFromCenter = "GrowFromCenter"
)

// Defaults applied after decoding LLM output.
const (
	DefaultElementColor    = "#00d4ff"
	DefaultBackgroundColor = "#1a1a1a"
	DefaultAnimation       = AnimFadeIn
)

// ScriptScene is one narrated segment of the video.
type ScriptScene struct {
	SceneNumber       int      `json:"scene_number" yaml:"scene_number" validate:"min=1"`
	Duration          float64  `json:"duration" yaml:"duration" validate:"gt=0"`
	Narration         string   `json:"narration" yaml:"narration" validate:"required"`
	VisualDescription string   `json:"visual_description" yaml:"visual_description"`
	KeyConcepts       []string `json:"key_concepts,omitempty" yaml:"key_concepts,omitempty"`
}

// Script is the narration plan for a topic.
type Script struct {
	Topic         string        `json:"topic" yaml:"topic" validate:"required"`
	TotalDuration float64       `json:"total_duration" yaml:"total_duration"` // Advisory only
	Scenes        []ScriptScene `json:"scenes" yaml:"scenes" validate:"min=1,dive"`
	StyleNotes    string        `json:"style_notes,omitempty" yaml:"style_notes,omitempty"`
}

// SceneDurationSum returns the sum of all scene durations.
func (s *Script) SceneDurationSum() float64 {
	var sum float64
	for _, sc := range s.Scenes {
		sum += sc.Duration
	}
	return sum
}

// Scene returns the scene with the given number, or nil.
func (s *Script) Scene(n int) *ScriptScene {
	for i := range s.Scenes {
		if s.Scenes[i].SceneNumber == n {
			return &s.Scenes[i]
		}
	}
	return nil
}

// VisualElement is one drawable item of a scene blueprint.
type VisualElement struct {
	ElementType string             `json:"element_type" yaml:"element_type"`
	Label       string             `json:"label,omitempty" yaml:"label,omitempty"`
	Color       string             `json:"color,omitempty" yaml:"color,omitempty"`
	Position    map[string]float64 `json:"position,omitempty" yaml:"position,omitempty"`
	Size        map[string]float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Animation   string             `json:"animation,omitempty" yaml:"animation,omitempty"`
	Timing      float64            `json:"timing,omitempty" yaml:"timing,omitempty"`
}

// Kind returns the normalized element kind.
func (e *VisualElement) Kind() string {
	return strings.ToLower(strings.TrimSpace(e.ElementType))
}

// Pos returns a named position field and whether it was present.
func (e *VisualElement) Pos(name string) (float64, bool) {
	v, ok := e.Position[name]
	return v, ok
}

// Dim returns a named size field, or fallback when absent or non-positive.
func (e *VisualElement) Dim(name string, fallback float64) float64 {
	if v, ok := e.Size[name]; ok && v > 0 {
		return v
	}
	return fallback
}

// SceneBlueprint is the animation plan for one scene.
type SceneBlueprint struct {
	SceneNumber     int             `json:"scene_number" yaml:"scene_number" validate:"min=1"`
	Duration        float64         `json:"duration" yaml:"duration" validate:"gt=0"`
	BackgroundColor string          `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	Elements        []VisualElement `json:"elements" yaml:"elements"`
	Transitions     []string        `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	NarrationText   string          `json:"narration_text" yaml:"narration_text"`
}

// ElementID identifies an element of this scene in logs.
func (s *SceneBlueprint) ElementID(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return s.Elements[i].ID(i)
}

// ID returns the label, or the kind plus index when unlabeled.
func (e VisualElement) ID(index int) string {
	if l := strings.TrimSpace(e.Label); l != "" {
		return l
	}
	return fmt.Sprintf("%s#%d", e.Kind(), index)
}

// VideoBlueprint is the complete animation plan produced from a Script.
type VideoBlueprint struct {
	Topic           string           `json:"topic" yaml:"topic" validate:"required"`
	TotalDuration   float64          `json:"total_duration" yaml:"total_duration"`
	SceneBlueprints []SceneBlueprint `json:"scene_blueprints" yaml:"scene_blueprints" validate:"min=1,dive"`
	StyleProfile    map[string]any   `json:"style_profile,omitempty" yaml:"style_profile,omitempty"`
}

// Scene returns the scene blueprint with the given number, or nil.
func (b *VideoBlueprint) Scene(n int) *SceneBlueprint {
	for i := range b.SceneBlueprints {
		if b.SceneBlueprints[i].SceneNumber == n {
			return &b.SceneBlueprints[i]
		}
	}
	return nil
}

// SceneDurationSum returns the sum of all scene durations.
func (b *VideoBlueprint) SceneDurationSum() float64 {
	var sum float64
	for _, sc := range b.SceneBlueprints {
		sum += sc.Duration
	}
	return sum
}

// ApplyDefaults fills optional fields the model left empty.
func (b *VideoBlueprint) ApplyDefaults() {
	if b.StyleProfile == nil {
		b.StyleProfile = map[string]any{}
	}
	for i := range b.SceneBlueprints {
		sc := &b.SceneBlueprints[i]
		if strings.TrimSpace(sc.BackgroundColor) == "" {
			sc.BackgroundColor = DefaultBackgroundColor
		}
		if sc.Transitions == nil {
			sc.Transitions = []string{}
		}
		for j := range sc.Elements {
			el := &sc.Elements[j]
			if strings.TrimSpace(el.Color) == "" {
				el.Color = DefaultElementColor
			}
			if strings.TrimSpace(el.Animation) == "" {
				el.Animation = DefaultAnimation
			}
			if el.Position == nil {
				el.Position = map[string]float64{}
			}
			if el.Size == nil {
				el.Size = map[string]float64{}
			}
		}
	}
}

// ApplyDefaults fills optional fields the model left empty.
func (s *Script) ApplyDefaults() {
	for i := range s.Scenes {
		if s.Scenes[i].KeyConcepts == nil {
			s.Scenes[i].KeyConcepts = []string{}
		}
	}
}
