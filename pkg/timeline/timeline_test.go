package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explainergo/pkg/model"
	"explainergo/pkg/scene"
)

func classicBuilder() Builder {
	return scene.NewComposer(scene.Classic()).Build
}

func el(kind, label string, timing float64, anim string) model.VisualElement {
	return model.VisualElement{ElementType: kind, Label: label, Timing: timing, Animation: anim}
}

func playLabels(p Plan) []string {
	var out []string
	for _, a := range p.Plays() {
		out = append(out, a.Element.Label)
	}
	return out
}

func TestSchedule_TiesKeepInputOrder(t *testing.T) {
	elements := []model.VisualElement{
		el("rectangle", "A", 1.0, ""),
		el("rectangle", "B", 1.0, ""),
		el("rectangle", "C", 0.5, ""),
	}

	for i := 0; i < 20; i++ {
		plan := Schedule(elements, 10, classicBuilder())
		assert.Equal(t, []string{"C", "A", "B"}, playLabels(plan))
	}
}

func TestSchedule_WaitPlayHold(t *testing.T) {
	plan := Schedule([]model.VisualElement{el("text", "Hello", 2.0, "Write")}, 5.0, classicBuilder())

	require.Len(t, plan.Actions, 3)

	assert.Equal(t, Wait, plan.Actions[0].Kind)
	assert.InDelta(t, 2.0, plan.Actions[0].Seconds, 1e-9)

	assert.Equal(t, Play, plan.Actions[1].Kind)
	assert.Equal(t, model.AnimWrite, plan.Actions[1].Animation)
	assert.InDelta(t, 0.8, plan.Actions[1].Seconds, 1e-9)
	assert.InDelta(t, 2.0, plan.Actions[1].Start, 1e-9)

	assert.Equal(t, Wait, plan.Actions[2].Kind)
	assert.InDelta(t, 2.2, plan.Actions[2].Seconds, 1e-9)
	assert.InDelta(t, 2.2, plan.FinalHold, 1e-9)

	assert.InDelta(t, 5.0, plan.Total(), 1e-9)
	assert.Zero(t, plan.Overrun)
}

func TestSchedule_NegativeHoldClamped(t *testing.T) {
	elements := []model.VisualElement{
		el("rectangle", "a", 0, "Write"),
		el("rectangle", "b", 0, "Write"),
		el("rectangle", "c", 0, "Write"),
	}
	plan := Schedule(elements, 1.0, classicBuilder())

	assert.Zero(t, plan.FinalHold)
	assert.InDelta(t, 1.4, plan.Overrun, 1e-9)
	last := plan.Actions[len(plan.Actions)-1]
	assert.Equal(t, Wait, last.Kind)
	assert.Zero(t, last.Seconds)
}

func TestSchedule_UnknownKindDropped(t *testing.T) {
	elements := []model.VisualElement{
		el("rectangle", "box", 0.5, ""),
		el("hexagon", "hex", 1.0, ""),
		el("circle", "dot", 1.5, ""),
	}
	plan := Schedule(elements, 4, classicBuilder())

	assert.Equal(t, []string{"box", "dot"}, playLabels(plan))
	assert.Equal(t, 1, plan.Dropped)
	for _, a := range plan.Actions {
		assert.NotEqual(t, "hex", a.Element.Label)
	}
}

func TestSchedule_TimingClamped(t *testing.T) {
	elements := []model.VisualElement{
		el("rectangle", "late", 9, ""),
		el("rectangle", "early", -3, ""),
		el("rectangle", "nan", math.NaN(), ""),
	}
	plan := Schedule(elements, 4, classicBuilder())

	assert.Equal(t, []string{"early", "nan", "late"}, playLabels(plan))
	plays := plan.Plays()
	assert.InDelta(t, 4.0, plays[2].Start, 1e-9)
	assert.InDelta(t, 0.5, plan.Overrun, 1e-9)
}

func TestSchedule_NoElements(t *testing.T) {
	plan := Schedule(nil, 3, classicBuilder())
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, Wait, plan.Actions[0].Kind)
	assert.InDelta(t, 3.0, plan.FinalHold, 1e-9)
}

func TestSchedule_StyleDrivesAnimation(t *testing.T) {
	best, _ := scene.Preset(scene.StyleBest)
	plan := Schedule([]model.VisualElement{el("circle", "c", 0, "FadeIn")}, 2, scene.NewComposer(best).Build)

	plays := plan.Plays()
	require.Len(t, plays, 1)
	assert.Equal(t, model.AnimGrowFromCenter, plays[0].Animation)
	assert.InDelta(t, RunGrowFromCenter, plays[0].Seconds, 1e-9)
}

func TestRunTime(t *testing.T) {
	tests := []struct {
		anim string
		want float64
	}{
		{"GrowFromCenter", 0.6},
		{"Write", 0.8},
		{"Create", 0.7},
		{"FadeIn", 0.5},
		{"write", 0.8},
		{"Spin", 0.5},
		{"", 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RunTime(tt.anim), tt.anim)
	}
}

func TestExtendTo(t *testing.T) {
	plan := Schedule([]model.VisualElement{el("text", "x", 1, "Write")}, 3, classicBuilder())
	require.InDelta(t, 3.0, plan.Total(), 1e-9)

	plan.ExtendTo(2)
	assert.InDelta(t, 3.0, plan.Total(), 1e-9)

	plan.ExtendTo(7.5)
	assert.InDelta(t, 7.5, plan.Total(), 1e-9)
	assert.InDelta(t, 5.7, plan.FinalHold, 1e-9)
	assert.Len(t, plan.Actions, 3)

	var empty Plan
	empty.ExtendTo(2)
	require.Len(t, empty.Actions, 1)
	assert.InDelta(t, 2.0, empty.FinalHold, 1e-9)
}
