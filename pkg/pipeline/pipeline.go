// Package pipeline runs the topic-to-video stages and records their progress
// so an interrupted or failed run can be resumed from any stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"explainergo/pkg/model"
	"explainergo/pkg/recovery"
	"explainergo/pkg/request"
	"explainergo/pkg/scene"
	"explainergo/pkg/store"
	"explainergo/pkg/tts"
)

// Surface names.
const (
	SurfaceRaster   = "raster"
	SurfaceManifest = "manifest"
)

// LastRun resolves to the most recently started run.
const LastRun = "last"

// ScriptWriter produces the script for a topic.
type ScriptWriter interface {
	Generate(ctx context.Context, topic, style string, sink recovery.DebugSink) (*model.Script, error)
}

// BlueprintWriter turns a script into a blueprint.
type BlueprintWriter interface {
	Generate(ctx context.Context, script *model.Script, style string, sink recovery.DebugSink) (*model.VideoBlueprint, error)
}

// Encoder is the subset of video.Encoder the assemble stage needs.
type Encoder interface {
	EncodeKeyframes(ctx context.Context, concatList, out string, fps int) error
	Mux(ctx context.Context, videoPath, audioPath, out string, videoSeconds, audioSeconds float64) error
	Concatenate(ctx context.Context, clips []string, out, tmpDir string) error
}

// Options are the per-installation pipeline settings.
type Options struct {
	OutputDir   string
	Style       string
	Surface     string
	Width       int
	Height      int
	FPS         int
	FontPath    string
	Voice       string
	TTSName     string
	Concurrency int
	TTSAttempts int
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Runs      store.RunStore
	State     store.StateStore
	Script    ScriptWriter
	Blueprint BlueprintWriter
	TTS       tts.Provider
	Backoff   *request.ProviderBackoff
	Encoder   Encoder
	Styles    scene.Styles
}

// Pipeline runs the stages for one run at a time.
type Pipeline struct {
	opts Options
	deps Deps
}

// New creates a Pipeline.
func New(opts Options, deps Deps) (*Pipeline, error) {
	if deps.Runs == nil {
		return nil, errors.New("pipeline: run store required")
	}
	switch opts.Surface {
	case "":
		opts.Surface = SurfaceRaster
	case SurfaceRaster, SurfaceManifest:
	default:
		return nil, fmt.Errorf("pipeline: unknown surface %q", opts.Surface)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.TTSAttempts <= 0 {
		opts.TTSAttempts = 3
	}
	if deps.Backoff == nil {
		deps.Backoff = request.NewProviderBackoff(time.Second, time.Minute)
	}
	return &Pipeline{opts: opts, deps: deps}, nil
}

// Start creates a run for topic and executes every stage.
func (p *Pipeline) Start(ctx context.Context, topic, style string) (*model.Run, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if style == "" {
		style = p.opts.Style
	}
	if _, err := p.deps.Styles.Resolve(style); err != nil {
		return nil, err
	}

	run := &model.Run{Topic: topic, Style: style, Stage: model.StageScript, Status: model.RunRunning}
	if err := p.deps.Runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	run.Dir = filepath.Join(p.opts.OutputDir, run.ID)
	if err := os.MkdirAll(run.Dir, 0o755); err != nil {
		return run, fmt.Errorf("failed to create run dir: %w", err)
	}
	if err := p.deps.Runs.UpdateRun(ctx, run); err != nil {
		return run, err
	}
	p.rememberLast(ctx, run.ID)

	slog.Info("Run started", "id", run.ID, "topic", topic, "style", style, "dir", run.Dir)
	return run, p.execute(ctx, run, model.StageScript)
}

// Resume re-runs a stored run. An empty from restarts at the stage that did
// not finish; a completed run needs an explicit from. style overrides the
// run's style when set.
func (p *Pipeline) Resume(ctx context.Context, id string, from model.Stage, style string) (*model.Run, error) {
	if id == LastRun {
		last, ok := p.lastRunID(ctx)
		if !ok {
			return nil, errors.New("no previous run recorded")
		}
		id = last
	}

	run, err := p.deps.Runs.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}

	if from == "" {
		if run.Status == model.RunDone {
			return run, fmt.Errorf("run %s already completed; pass a stage to re-run from", id)
		}
		from = run.Stage
	}
	if from.Index() < 0 {
		return run, fmt.Errorf("unknown stage %q", from)
	}
	if style != "" && style != run.Style {
		if _, err := p.deps.Styles.Resolve(style); err != nil {
			return run, err
		}
		slog.Info("Run style changed", "id", run.ID, "from", run.Style, "to", style)
		run.Style = style
	}

	p.rememberLast(ctx, run.ID)
	slog.Info("Run resumed", "id", run.ID, "topic", run.Topic, "from", from)
	return run, p.execute(ctx, run, from)
}

type stageFunc func(ctx context.Context, r *runState) error

func (p *Pipeline) stage(s model.Stage) stageFunc {
	switch s {
	case model.StageScript:
		return p.scriptStage
	case model.StageBlueprint:
		return p.blueprintStage
	case model.StageNarration:
		return p.narrationStage
	case model.StageRender:
		return p.renderStage
	default:
		return p.assembleStage
	}
}

func (p *Pipeline) execute(ctx context.Context, run *model.Run, from model.Stage) error {
	rs := &runState{run: run, paths: pathsFor(run.Dir)}

	for _, st := range model.Stages[from.Index():] {
		run.Stage = st
		run.Status = model.RunRunning
		run.Error = ""
		if err := p.deps.Runs.UpdateRun(ctx, run); err != nil {
			return err
		}

		start := time.Now()
		slog.Info("Stage started", "run", run.ID, "stage", st)
		if err := p.stage(st)(ctx, rs); err != nil {
			p.fail(run, err)
			return fmt.Errorf("stage %s: %w", st, err)
		}
		slog.Info("Stage finished", "run", run.ID, "stage", st, "duration", time.Since(start).Round(time.Millisecond))
	}

	run.Status = model.RunDone
	if err := p.deps.Runs.UpdateRun(ctx, run); err != nil {
		return err
	}
	slog.Info("Run finished", "id", run.ID, "output", run.Output)
	return nil
}

// fail records the error. The update uses a fresh context so a canceled run
// is still marked.
func (p *Pipeline) fail(run *model.Run, err error) {
	run.Status = model.RunFailed
	if errors.Is(err, context.Canceled) {
		run.Status = model.RunInterrupted
	}
	run.Error = err.Error()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if uerr := p.deps.Runs.UpdateRun(ctx, run); uerr != nil {
		slog.Error("Failed to record run failure", "run", run.ID, "error", uerr)
	}
	slog.Error("Stage failed", "run", run.ID, "stage", run.Stage, "status", run.Status, "error", err)
}

func (p *Pipeline) rememberLast(ctx context.Context, id string) {
	if p.deps.State == nil {
		return
	}
	if err := p.deps.State.SetState(ctx, store.KeyLastRun, id); err != nil {
		slog.Warn("Failed to remember last run", "error", err)
	}
}

func (p *Pipeline) lastRunID(ctx context.Context) (string, bool) {
	if p.deps.State != nil {
		if id, ok := p.deps.State.GetState(ctx, store.KeyLastRun); ok && id != "" {
			return id, true
		}
	}
	runs, err := p.deps.Runs.ListRuns(ctx, 1)
	if err != nil || len(runs) == 0 {
		return "", false
	}
	return runs[0].ID, true
}
