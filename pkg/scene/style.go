// Package scene turns blueprint elements into engine-neutral drawables under a
// configurable visual style.
package scene

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"explainergo/pkg/model"
)

// Label placements relative to the element.
const (
	LabelInside = "inside"
	LabelAbove  = "above"
	LabelBelow  = "below"
)

// Preset names.
const (
	StyleClassic  = "classic"
	StyleEnhanced = "enhanced"
	StyleBest     = "best"
	StylePerfect  = "perfect"
	StyleUltimate = "ultimate"
)

// Palette holds the colors a style draws with.
type Palette struct {
	Background string `yaml:"background"`
	Primary    string `yaml:"primary"`
	Accent     string `yaml:"accent"`
	Text       string `yaml:"text"`
	Highlight  string `yaml:"highlight"`
}

// Style describes how blueprint elements are drawn and animated.
type Style struct {
	Name           string  `yaml:"name"`
	Palette        Palette `yaml:"palette"`
	CornerRadius   float64 `yaml:"corner_radius"`
	FillOpacity    float64 `yaml:"fill_opacity"`
	StrokeWidth    float64 `yaml:"stroke_width"`
	LabelPlacement string  `yaml:"label_placement"` // inside, above, below
	FontSize       float64 `yaml:"font_size"`
	TitleFontSize  float64 `yaml:"title_font_size"`
	FontPath       string  `yaml:"font_path"`
	Shadow         bool    `yaml:"shadow"`

	// AnimationOverride replaces the requested animation per element kind.
	AnimationOverride map[string]string `yaml:"animation_override"`
	// ForceAnimation, when set, is used for every element.
	ForceAnimation string `yaml:"force_animation"`
	// RetainAnimations lists requested animations that are kept as-is.
	// Any other request is replaced by FallbackAnimation. Empty keeps all.
	RetainAnimations  []string `yaml:"retain_animations"`
	FallbackAnimation string   `yaml:"fallback_animation"`
}

var defaultPalette = Palette{
	Background: model.DefaultBackgroundColor,
	Primary:    model.DefaultElementColor,
	Accent:     "#ff6b35",
	Text:       "#ffffff",
	Highlight:  "#00e5ff",
}

// Classic is the plain look: square corners, labels inside, animations as
// requested.
func Classic() Style {
	return Style{
		Name:           StyleClassic,
		Palette:        defaultPalette,
		FillOpacity:    0.2,
		StrokeWidth:    3,
		LabelPlacement: LabelInside,
		FontSize:       24,
		TitleFontSize:  40,
	}
}

// Preset returns a named built-in style.
func Preset(name string) (Style, bool) {
	s := Classic()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StyleClassic:
	case StyleEnhanced:
		s.Name = StyleEnhanced
		s.CornerRadius = 0.2
		s.LabelPlacement = LabelAbove
	case StyleBest:
		s.Name = StyleBest
		s.CornerRadius = 0.3
		s.FillOpacity = 0.5
		s.AnimationOverride = map[string]string{
			model.KindRectangle: model.AnimGrowFromCenter,
			model.KindCircle:    model.AnimGrowFromCenter,
			model.KindArrow:     model.AnimGrowFromCenter,
			model.KindText:      model.AnimWrite,
		}
	case StylePerfect:
		s.Name = StylePerfect
		s.CornerRadius = 0.2
		s.FillOpacity = 0.3
		s.RetainAnimations = []string{model.AnimWrite}
		s.FallbackAnimation = model.AnimGrowFromCenter
	case StyleUltimate:
		s.Name = StyleUltimate
		s.Palette.Background = "#0f172a"
		s.CornerRadius = 0.25
		s.FillOpacity = 0.18
		s.StrokeWidth = 1.2
		s.LabelPlacement = LabelAbove
		s.FontSize = 22
		s.Shadow = true
		s.AnimationOverride = map[string]string{model.KindText: model.AnimWrite}
		s.RetainAnimations = []string{model.AnimWrite}
		s.FallbackAnimation = model.AnimFadeIn
	default:
		return Style{}, false
	}
	return s, true
}

// PresetNames lists the built-in styles.
func PresetNames() []string {
	return []string{StyleClassic, StyleEnhanced, StyleBest, StylePerfect, StyleUltimate}
}

// ResolveAnimation picks the entrance animation for el under this style.
// The result is always a known animation.
func (s Style) ResolveAnimation(el model.VisualElement) string {
	if a, ok := knownAnimation(s.ForceAnimation); ok {
		return a
	}
	if a, ok := knownAnimation(s.AnimationOverride[el.Kind()]); ok {
		return a
	}
	if a, ok := knownAnimation(el.Animation); ok && s.retains(a) {
		return a
	}
	if a, ok := knownAnimation(s.FallbackAnimation); ok {
		return a
	}
	return model.DefaultAnimation
}

func (s Style) retains(anim string) bool {
	if len(s.RetainAnimations) == 0 {
		return true
	}
	for _, r := range s.RetainAnimations {
		if strings.EqualFold(r, anim) {
			return true
		}
	}
	return false
}

var animations = map[string]string{
	"fadein":         model.AnimFadeIn,
	"write":          model.AnimWrite,
	"create":         model.AnimCreate,
	"growfromcenter": model.AnimGrowFromCenter,
}

// knownAnimation normalizes an animation name, reporting whether it is known.
func knownAnimation(name string) (string, bool) {
	a, ok := animations[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// NormalizeAnimation maps a requested animation to its canonical name, or to
// the default for unknown values.
func NormalizeAnimation(name string) string {
	if a, ok := knownAnimation(name); ok {
		return a
	}
	return model.DefaultAnimation
}

// Styles is a set of named styles.
type Styles map[string]Style

// LoadStyles reads extra styles from a YAML file of the form
//
//	styles:
//	  mine:
//	    base: ultimate
//	    fill_opacity: 0.4
//
// Each entry starts from its base preset (classic when unset) and overrides
// only the fields it names. Loaded styles replace presets of the same name.
func LoadStyles(path string) (Styles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read styles file: %w", err)
	}

	var file struct {
		Styles map[string]yaml.Node `yaml:"styles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse styles file: %w", err)
	}

	out := make(Styles, len(file.Styles))
	for name, node := range file.Styles {
		var head struct {
			Base string `yaml:"base"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		s, ok := Preset(head.Base)
		if !ok {
			return nil, fmt.Errorf("style %q: unknown base %q", name, head.Base)
		}
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		s.Name = name
		if err := s.check(); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// Resolve returns the named style, preferring loaded styles over presets.
func (ss Styles) Resolve(name string) (Style, error) {
	if s, ok := ss[name]; ok {
		return s, nil
	}
	if s, ok := Preset(name); ok {
		return s, nil
	}
	names := PresetNames()
	for n := range ss {
		names = append(names, n)
	}
	sort.Strings(names)
	return Style{}, fmt.Errorf("unknown style %q (available: %s)", name, strings.Join(names, ", "))
}

func (s Style) check() error {
	switch s.LabelPlacement {
	case LabelInside, LabelAbove, LabelBelow:
	default:
		return fmt.Errorf("invalid label_placement %q", s.LabelPlacement)
	}
	if s.FillOpacity < 0 || s.FillOpacity > 1 {
		return fmt.Errorf("fill_opacity %.2f out of range [0,1]", s.FillOpacity)
	}
	for _, c := range []string{s.Palette.Background, s.Palette.Primary, s.Palette.Accent, s.Palette.Text, s.Palette.Highlight} {
		if _, err := ParseHex(c); err != nil {
			return err
		}
	}
	return nil
}
