package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"explainergo/pkg/generator"
	"explainergo/pkg/model"
	"explainergo/pkg/recovery"
	"explainergo/pkg/render"
	"explainergo/pkg/scene"
	"explainergo/pkg/timeline"
)

func (p *Pipeline) scriptStage(ctx context.Context, r *runState) error {
	if p.deps.Script == nil {
		return fmt.Errorf("no script generator configured")
	}
	sink := recovery.FileSink{Path: filepath.Join(r.paths.dir, generator.FailedScriptFile)}
	script, err := p.deps.Script.Generate(ctx, r.run.Topic, r.run.Style, sink)
	if err != nil {
		return err
	}
	r.script = script
	return writeJSON(r.paths.script, script)
}

func (p *Pipeline) blueprintStage(ctx context.Context, r *runState) error {
	if p.deps.Blueprint == nil {
		return fmt.Errorf("no blueprint generator configured")
	}
	script, err := r.loadScript()
	if err != nil {
		return err
	}
	sink := recovery.FileSink{Path: filepath.Join(r.paths.dir, generator.FailedBlueprintFile)}
	bp, err := p.deps.Blueprint.Generate(ctx, script, r.run.Style, sink)
	if err != nil {
		return err
	}
	r.blueprint = bp
	return writeJSON(r.paths.blueprint, bp)
}

func (p *Pipeline) renderStage(ctx context.Context, r *runState) error {
	bp, err := r.loadBlueprint()
	if err != nil {
		return err
	}
	audio, err := r.loadAudio()
	if err != nil {
		return err
	}
	style, err := p.deps.Styles.Resolve(r.run.Style)
	if err != nil {
		return err
	}

	surface, err := p.newSurface(r.paths.scenes, style)
	if err != nil {
		return err
	}
	composer := scene.NewComposer(style)

	outputs := make([]render.Output, 0, len(bp.SceneBlueprints))
	for _, sc := range bp.SceneBlueprints {
		plan := timeline.Schedule(sc.Elements, sc.Duration, composer.Build)
		if plan.Dropped > 0 {
			slog.Warn("Elements dropped from scene", "scene", sc.SceneNumber, "dropped", plan.Dropped)
		}
		if plan.Overrun > 0 {
			slog.Debug("Scene plays run past duration", "scene", sc.SceneNumber, "overrun", plan.Overrun)
		}
		if a, ok := audioFor(audio, sc.SceneNumber); ok && a.Seconds > plan.Total() {
			slog.Info("Extending scene to fit narration", "scene", sc.SceneNumber, "video", plan.Total(), "audio", a.Seconds)
			plan.ExtendTo(a.Seconds)
		}

		rep, err := render.Execute(ctx, sc.SceneNumber, background(sc, style), plan, surface)
		if err != nil {
			return err
		}
		if len(rep.Failed) > 0 {
			slog.Warn("Scene rendered with skipped elements", "scene", sc.SceneNumber, "skipped", len(rep.Failed))
		}
		outputs = append(outputs, rep.Output)
	}

	r.outputs = outputs
	return writeJSON(r.paths.render, outputs)
}

func (p *Pipeline) newSurface(dir string, style scene.Style) (render.Surface, error) {
	if p.opts.Surface == SurfaceManifest {
		return render.NewManifestSurface(dir), nil
	}
	font := p.opts.FontPath
	if style.FontPath != "" {
		font = style.FontPath
	}
	return render.NewRasterSurface(dir, p.opts.Width, p.opts.Height, font)
}

// background prefers an explicit scene color over the style's palette.
func background(sc model.SceneBlueprint, style scene.Style) string {
	if sc.BackgroundColor != "" && sc.BackgroundColor != model.DefaultBackgroundColor {
		return sc.BackgroundColor
	}
	if style.Palette.Background != "" {
		return style.Palette.Background
	}
	return model.DefaultBackgroundColor
}

func (p *Pipeline) assembleStage(ctx context.Context, r *runState) error {
	outputs, err := r.loadOutputs()
	if err != nil {
		return err
	}

	if p.opts.Surface == SurfaceManifest {
		r.run.Output = r.paths.scenes
		slog.Info("Manifest surface: skipping video encoding", "manifests", len(outputs), "dir", r.paths.scenes)
		return nil
	}
	if p.deps.Encoder == nil {
		return fmt.Errorf("no video encoder configured")
	}

	audio, err := r.loadAudio()
	if err != nil {
		return err
	}

	clips := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		base := filepath.Join(r.paths.scenes, fmt.Sprintf("scene_%02d", out.Scene))
		silent := base + ".mp4"
		if err := p.deps.Encoder.EncodeKeyframes(ctx, out.Path, silent, p.opts.FPS); err != nil {
			return fmt.Errorf("scene %d: %w", out.Scene, err)
		}

		a, ok := audioFor(audio, out.Scene)
		if !ok {
			slog.Warn("Scene has no narration track, keeping silent clip", "scene", out.Scene)
			clips = append(clips, silent)
			continue
		}
		muxed := base + "_av.mp4"
		if err := p.deps.Encoder.Mux(ctx, silent, a.Path, muxed, out.Duration, a.Seconds); err != nil {
			return fmt.Errorf("scene %d: %w", out.Scene, err)
		}
		clips = append(clips, muxed)
	}

	if err := p.deps.Encoder.Concatenate(ctx, clips, r.paths.final, r.paths.dir); err != nil {
		return err
	}
	r.run.Output = r.paths.final
	return nil
}
