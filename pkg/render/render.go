// Package render executes scene timelines against a drawing surface.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"explainergo/pkg/logging"
	"explainergo/pkg/timeline"
)

// Output describes what a surface produced for one scene.
type Output struct {
	Scene int
	// Path is the primary artifact: a manifest file or a keyframe concat list.
	Path     string
	Duration float64
	Frames   int
}

// Surface draws one scene at a time.
type Surface interface {
	Begin(scene int, background string) error
	Play(ctx context.Context, a timeline.Action) error
	Wait(ctx context.Context, seconds float64) error
	End() (Output, error)
}

// Failure records a play action the surface could not realize.
type Failure struct {
	Index   int
	Element string
	Err     error
}

// Report summarizes one Execute call.
type Report struct {
	Scene  int
	Played int
	Waited float64
	Failed []Failure
	Output Output
}

// Execute runs every action of plan on s. A failing Play is recorded and
// skipped; the rest of the plan still runs. Errors from Begin, Wait, End or
// the context abort the scene.
func Execute(ctx context.Context, scene int, background string, plan timeline.Plan, s Surface) (Report, error) {
	rep := Report{Scene: scene}
	if err := s.Begin(scene, background); err != nil {
		return rep, fmt.Errorf("scene %d: begin: %w", scene, err)
	}

	for i, a := range plan.Actions {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("scene %d: %w", scene, err)
		}
		switch a.Kind {
		case timeline.Wait:
			if a.Seconds <= 0 {
				continue
			}
			if err := s.Wait(ctx, a.Seconds); err != nil {
				return rep, fmt.Errorf("scene %d: wait: %w", scene, err)
			}
			rep.Waited += a.Seconds
		case timeline.Play:
			logging.TraceDefault("Render: play", "scene", scene, "element", elementID(a), "animation", a.Animation, "start", a.Start, "seconds", a.Seconds)
			if err := s.Play(ctx, a); err != nil {
				id := elementID(a)
				slog.Warn("Render: element skipped", "scene", scene, "element", id, "animation", a.Animation, "error", err)
				rep.Failed = append(rep.Failed, Failure{Index: i, Element: id, Err: err})
				continue
			}
			rep.Played++
		}
	}

	out, err := s.End()
	if err != nil {
		return rep, fmt.Errorf("scene %d: end: %w", scene, err)
	}
	rep.Output = out
	slog.Debug("Render: scene done", "scene", scene, "played", rep.Played, "failed", len(rep.Failed), "output", out.Path)
	return rep, nil
}

func elementID(a timeline.Action) string {
	if a.Element.Label != "" {
		return a.Element.Label
	}
	return a.Element.Kind()
}
