package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"explainergo/pkg/model"
	"explainergo/pkg/render"
)

// Artifact file names inside a run directory.
const (
	ScriptFile    = "script.json"
	BlueprintFile = "blueprint.json"
	NarrationFile = "narration.json"
	RenderFile    = "render.json"
	FinalFile     = "final.mp4"
)

type paths struct {
	dir       string
	script    string
	blueprint string
	narration string
	render    string
	audio     string
	scenes    string
	final     string
}

func pathsFor(dir string) paths {
	return paths{
		dir:       dir,
		script:    filepath.Join(dir, ScriptFile),
		blueprint: filepath.Join(dir, BlueprintFile),
		narration: filepath.Join(dir, NarrationFile),
		render:    filepath.Join(dir, RenderFile),
		audio:     filepath.Join(dir, "audio"),
		scenes:    filepath.Join(dir, "scenes"),
		final:     filepath.Join(dir, FinalFile),
	}
}

// SceneAudio is the narration track of one scene.
type SceneAudio struct {
	Scene   int     `json:"scene"`
	Path    string  `json:"path"`
	Seconds float64 `json:"seconds"`
	Silent  bool    `json:"silent,omitempty"`
}

// runState carries artifacts between stages, loading them from disk when a
// resumed run starts past the stage that produced them.
type runState struct {
	run   *model.Run
	paths paths

	script    *model.Script
	blueprint *model.VideoBlueprint
	audio     []SceneAudio
	outputs   []render.Output
}

func (r *runState) loadScript() (*model.Script, error) {
	if r.script != nil {
		return r.script, nil
	}
	var s model.Script
	if err := readJSON(r.paths.script, &s); err != nil {
		return nil, err
	}
	r.script = &s
	return r.script, nil
}

func (r *runState) loadBlueprint() (*model.VideoBlueprint, error) {
	if r.blueprint != nil {
		return r.blueprint, nil
	}
	var b model.VideoBlueprint
	if err := readJSON(r.paths.blueprint, &b); err != nil {
		return nil, err
	}
	b.ApplyDefaults()
	r.blueprint = &b
	return r.blueprint, nil
}

func (r *runState) loadAudio() ([]SceneAudio, error) {
	if r.audio != nil {
		return r.audio, nil
	}
	var a []SceneAudio
	if err := readJSON(r.paths.narration, &a); err != nil {
		return nil, err
	}
	r.audio = a
	return r.audio, nil
}

func (r *runState) loadOutputs() ([]render.Output, error) {
	if r.outputs != nil {
		return r.outputs, nil
	}
	var o []render.Output
	if err := readJSON(r.paths.render, &o); err != nil {
		return nil, err
	}
	r.outputs = o
	return r.outputs, nil
}

func audioFor(audio []SceneAudio, sceneNumber int) (SceneAudio, bool) {
	for _, a := range audio {
		if a.Scene == sceneNumber {
			return a, true
		}
	}
	return SceneAudio{}, false
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("missing artifact %s (run the earlier stage first): %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
