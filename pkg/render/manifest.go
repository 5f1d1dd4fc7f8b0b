package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"explainergo/pkg/scene"
	"explainergo/pkg/timeline"
)

// Manifest is the engine-neutral description of a rendered scene.
type Manifest struct {
	Scene      int             `yaml:"scene"`
	Background string          `yaml:"background"`
	Duration   float64         `yaml:"duration"`
	Items      []ManifestItem  `yaml:"items"`
	Holds      []ManifestRange `yaml:"holds,omitempty"`
}

// ManifestItem is one element and the window in which it enters.
type ManifestItem struct {
	Animation string         `yaml:"animation"`
	Enter     float64        `yaml:"enter"`
	RunTime   float64        `yaml:"run_time"`
	Drawable  scene.Drawable `yaml:"drawable"`
}

// ManifestRange is a span of time with nothing entering.
type ManifestRange struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
}

// ManifestSurface writes one scene_NN.yaml per scene into Dir.
type ManifestSurface struct {
	Dir string

	cur   *Manifest
	clock float64
}

// NewManifestSurface returns a surface writing into dir.
func NewManifestSurface(dir string) *ManifestSurface {
	return &ManifestSurface{Dir: dir}
}

func (m *ManifestSurface) Begin(sceneNumber int, background string) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}
	m.cur = &Manifest{Scene: sceneNumber, Background: background}
	m.clock = 0
	return nil
}

func (m *ManifestSurface) Play(_ context.Context, a timeline.Action) error {
	if m.cur == nil {
		return errors.New("play outside of scene")
	}
	if a.Drawable == nil {
		return errors.New("nothing to draw")
	}
	m.cur.Items = append(m.cur.Items, ManifestItem{
		Animation: a.Animation,
		Enter:     m.clock,
		RunTime:   a.Seconds,
		Drawable:  *a.Drawable,
	})
	m.clock += a.Seconds
	return nil
}

func (m *ManifestSurface) Wait(_ context.Context, seconds float64) error {
	if m.cur == nil {
		return errors.New("wait outside of scene")
	}
	m.cur.Holds = append(m.cur.Holds, ManifestRange{From: m.clock, To: m.clock + seconds})
	m.clock += seconds
	return nil
}

func (m *ManifestSurface) End() (Output, error) {
	if m.cur == nil {
		return Output{}, errors.New("end outside of scene")
	}
	man := m.cur
	m.cur = nil
	man.Duration = m.clock

	data, err := yaml.Marshal(man)
	if err != nil {
		return Output{}, fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(m.Dir, fmt.Sprintf("scene_%02d.yaml", man.Scene))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Output{}, fmt.Errorf("failed to write manifest: %w", err)
	}
	return Output{Scene: man.Scene, Path: path, Duration: man.Duration, Frames: len(man.Items)}, nil
}

// ReadManifest loads a manifest written by ManifestSurface.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var man Manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &man, nil
}
