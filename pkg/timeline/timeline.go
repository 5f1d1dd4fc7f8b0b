// Package timeline turns a scene's unordered elements into a deterministic
// sequence of wait and play actions followed by a final hold.
package timeline

import (
	"math"
	"sort"

	"explainergo/pkg/model"
	"explainergo/pkg/scene"
)

// Run times per animation, in seconds.
const (
	RunGrowFromCenter = 0.6
	RunWrite          = 0.8
	RunCreate         = 0.7
	RunFadeIn         = 0.5
)

// ActionKind distinguishes waits from plays.
type ActionKind string

const (
	Wait ActionKind = "wait"
	Play ActionKind = "play"
)

// Action is one step of a plan. Element, Drawable and Animation are set for
// Play actions only. Start is the scene clock when the action begins.
type Action struct {
	Kind      ActionKind
	Start     float64
	Seconds   float64
	Element   model.VisualElement
	Drawable  *scene.Drawable
	Animation string
}

// Builder resolves an element into a drawable and its animation. A nil
// drawable drops the element.
type Builder func(model.VisualElement) (*scene.Drawable, string)

// Plan is the scheduled timeline of one scene.
type Plan struct {
	Duration  float64
	Actions   []Action
	FinalHold float64
	// Overrun is how far the plays extend past Duration, or 0.
	Overrun float64
	// Dropped counts elements the builder rejected.
	Dropped int
}

// RunTime returns the play duration for an animation. Unknown animations use
// the default animation's run time.
func RunTime(anim string) float64 {
	switch scene.NormalizeAnimation(anim) {
	case model.AnimGrowFromCenter:
		return RunGrowFromCenter
	case model.AnimWrite:
		return RunWrite
	case model.AnimCreate:
		return RunCreate
	default:
		return RunFadeIn
	}
}

type entry struct {
	el       model.VisualElement
	drawable *scene.Drawable
	anim     string
	at       float64
}

// Schedule orders elements by timing (ties keep input order) and emits a Wait
// before each element that starts later than the clock, a Play for the element
// itself, and a trailing Wait for the remaining scene time.
func Schedule(elements []model.VisualElement, duration float64, build Builder) Plan {
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	plan := Plan{Duration: duration}

	entries := make([]entry, 0, len(elements))
	for _, el := range elements {
		d, anim := build(el)
		if d == nil {
			plan.Dropped++
			continue
		}
		entries = append(entries, entry{el: el, drawable: d, anim: anim, at: clamp(el.Timing, duration)})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at < entries[j].at
	})

	clock := 0.0
	for _, e := range entries {
		if e.at > clock {
			plan.Actions = append(plan.Actions, Action{Kind: Wait, Start: clock, Seconds: e.at - clock})
			clock = e.at
		}
		rt := RunTime(e.anim)
		plan.Actions = append(plan.Actions, Action{
			Kind:      Play,
			Start:     clock,
			Seconds:   rt,
			Element:   e.el,
			Drawable:  e.drawable,
			Animation: scene.NormalizeAnimation(e.anim),
		})
		clock += rt
	}

	plan.FinalHold = math.Max(0, duration-clock)
	plan.Overrun = math.Max(0, clock-duration)
	plan.Actions = append(plan.Actions, Action{Kind: Wait, Start: clock, Seconds: plan.FinalHold})
	return plan
}

func clamp(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}

// Total returns the length of the plan in seconds.
func (p *Plan) Total() float64 {
	var sum float64
	for _, a := range p.Actions {
		sum += a.Seconds
	}
	return sum
}

// Plays returns the play actions in order.
func (p *Plan) Plays() []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Kind == Play {
			out = append(out, a)
		}
	}
	return out
}

// ExtendTo lengthens the final hold so the plan lasts at least seconds.
// It never shortens the plan.
func (p *Plan) ExtendTo(seconds float64) {
	extra := seconds - p.Total()
	if extra <= 0 {
		return
	}
	if n := len(p.Actions); n == 0 || p.Actions[n-1].Kind != Wait {
		p.Actions = append(p.Actions, Action{Kind: Wait, Start: p.Total()})
		p.FinalHold = 0
	}
	p.FinalHold += extra
	p.Actions[len(p.Actions)-1].Seconds = p.FinalHold
}
