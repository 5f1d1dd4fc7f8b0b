// Package generator asks the LLM for the script and the animation blueprint
// and turns the raw responses into validated model objects.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"explainergo/pkg/config"
	"explainergo/pkg/llm"
	"explainergo/pkg/llm/prompts"
	"explainergo/pkg/model"
	"explainergo/pkg/recovery"
	"explainergo/pkg/schema"
)

// Profiles route each call to its configured model.
const (
	ProfileScript    = "script"
	ProfileBlueprint = "blueprint"
)

const (
	scriptTemplate    = "script.tmpl"
	blueprintTemplate = "blueprint.tmpl"

	scriptSystem    = "You are an expert educational content creator. Always respond with valid JSON."
	blueprintSystem = "You are an animation director. Always respond with valid JSON following the exact schema provided. Keep responses concise."

	// FailedScriptFile and FailedBlueprintFile hold the last unusable
	// response of their stage.
	FailedScriptFile    = "failed_script_response.txt"
	FailedBlueprintFile = "failed_blueprint_response.txt"
)

var (
	scriptSchema    = schema.For[model.Script]("video_script")
	blueprintSchema = schema.For[model.VideoBlueprint]("video_blueprint")
)

// Options tunes the LLM calls.
type Options struct {
	ScriptTemperature float32
	MaxTokens         int
	MaxAttempts       int
	AttemptTimeout    time.Duration
}

// OptionsFrom reads Options from the llm config section.
func OptionsFrom(cfg config.LLMConfig) Options {
	return Options{
		ScriptTemperature: cfg.ScriptTemperature,
		MaxTokens:         cfg.MaxTokens,
		MaxAttempts:       cfg.MaxAttempts,
		AttemptTimeout:    cfg.AttemptTimeout.Std(),
	}
}

type promptData struct {
	Topic  string
	Style  string
	Script *model.Script
}

// ScriptGenerator writes the scene-by-scene script for a topic.
type ScriptGenerator struct {
	llm     llm.Provider
	prompts *prompts.Manager
	opts    Options
}

// NewScriptGenerator creates a ScriptGenerator.
func NewScriptGenerator(p llm.Provider, pm *prompts.Manager, opts Options) *ScriptGenerator {
	return &ScriptGenerator{llm: p, prompts: pm, opts: opts}
}

// Generate returns a validated script for topic. sink may be nil.
func (g *ScriptGenerator) Generate(ctx context.Context, topic, style string, sink recovery.DebugSink) (*model.Script, error) {
	if sink == nil {
		sink = recovery.DiscardSink{}
	}
	prompt, err := g.prompts.Render(scriptTemplate, promptData{Topic: topic, Style: style})
	if err != nil {
		return nil, fmt.Errorf("render script prompt: %w", err)
	}

	slog.Info("Generating script", "topic", topic, "temperature", g.opts.ScriptTemperature)

	tries := newAttempts(g.llm)
	gen := func(ctx context.Context, attempt int, temperature float32) (string, error) {
		return tries.generate(ctx, attempt, llm.Request{
			Profile:     ProfileScript,
			System:      scriptSystem,
			Prompt:      prompt,
			Temperature: temperature,
			MaxTokens:   g.opts.MaxTokens,
			JSON:        true,
		})
	}

	script, err := recovery.Recover(ctx, gen, recovery.Options[model.Script]{
		Name:           "script",
		Schema:         scriptSchema,
		MaxAttempts:    g.opts.MaxAttempts,
		Sink:           sink,
		AttemptTimeout: g.opts.AttemptTimeout,
		Temperature:    func(int) float32 { return g.opts.ScriptTemperature },
		Rejected:       tries.rejected(ctx),
		Validate: func(s *model.Script) error {
			s.ApplyDefaults()
			return s.Validate()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}
	tries.accept(ctx)

	slog.Info("Generated script", "scenes", len(script.Scenes), "total_duration", script.TotalDuration, "scene_sum", script.SceneDurationSum())
	return script, nil
}

// BlueprintGenerator turns a script into a video blueprint.
type BlueprintGenerator struct {
	llm     llm.Provider
	prompts *prompts.Manager
	opts    Options
}

// NewBlueprintGenerator creates a BlueprintGenerator.
func NewBlueprintGenerator(p llm.Provider, pm *prompts.Manager, opts Options) *BlueprintGenerator {
	return &BlueprintGenerator{llm: p, prompts: pm, opts: opts}
}

// Generate returns a validated blueprint for script. The last unusable
// response is handed to sink when every attempt fails. sink may be nil.
func (g *BlueprintGenerator) Generate(ctx context.Context, script *model.Script, style string, sink recovery.DebugSink) (*model.VideoBlueprint, error) {
	if sink == nil {
		sink = recovery.DiscardSink{}
	}
	prompt, err := g.prompts.Render(blueprintTemplate, promptData{Topic: script.Topic, Style: style, Script: script})
	if err != nil {
		return nil, fmt.Errorf("render blueprint prompt: %w", err)
	}

	slog.Info("Generating blueprint", "topic", script.Topic, "scenes", len(script.Scenes))

	tries := newAttempts(g.llm)
	gen := func(ctx context.Context, attempt int, temperature float32) (string, error) {
		slog.Debug("Blueprint attempt", "attempt", attempt, "temperature", temperature)
		return tries.generate(ctx, attempt, llm.Request{
			Profile:     ProfileBlueprint,
			System:      blueprintSystem,
			Prompt:      prompt,
			Temperature: temperature,
			MaxTokens:   g.opts.MaxTokens,
			JSON:        true,
			Schema:      blueprintSchema,
		})
	}

	bp, err := recovery.Recover(ctx, gen, recovery.Options[model.VideoBlueprint]{
		Name:           "blueprint",
		Schema:         blueprintSchema,
		MaxAttempts:    g.opts.MaxAttempts,
		Sink:           sink,
		AttemptTimeout: g.opts.AttemptTimeout,
		Rejected:       tries.rejected(ctx),
		Validate: func(b *model.VideoBlueprint) error {
			b.ApplyDefaults()
			return b.Validate()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("blueprint generation failed: %w", err)
	}
	tries.accept(ctx)

	if len(bp.SceneBlueprints) != len(script.Scenes) {
		slog.Warn("Blueprint scene count differs from script", "script", len(script.Scenes), "blueprint", len(bp.SceneBlueprints))
	}
	fillNarration(bp, script)

	slog.Info("Generated blueprint", "scenes", len(bp.SceneBlueprints), "scene_sum", bp.SceneDurationSum())
	return bp, nil
}

// fillNarration copies script narration into blueprint scenes that lack it.
func fillNarration(bp *model.VideoBlueprint, script *model.Script) {
	for i := range bp.SceneBlueprints {
		sc := &bp.SceneBlueprints[i]
		if sc.NarrationText != "" {
			continue
		}
		if src := script.Scene(sc.SceneNumber); src != nil {
			sc.NarrationText = src.Narration
		}
	}
}
