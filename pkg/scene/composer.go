package scene

import (
	"log/slog"
	"math"

	"explainergo/pkg/model"
)

// Default geometry in world units, used when the blueprint omits a size.
const (
	DefaultRectWidth  = 3.0
	DefaultRectHeight = 2.0
	DefaultRadius     = 0.5
	DefaultFontSize   = 24.0

	labelGap    = 0.4
	shadowShift = 0.08
)

// Geometry is the placement of a drawable in world units. The origin is the
// frame center and y grows upwards.
type Geometry struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	W        float64 `yaml:"w,omitempty" json:"w,omitempty"`
	H        float64 `yaml:"h,omitempty" json:"h,omitempty"`
	R        float64 `yaml:"r,omitempty" json:"r,omitempty"`
	X2       float64 `yaml:"x2,omitempty" json:"x2,omitempty"`
	Y2       float64 `yaml:"y2,omitempty" json:"y2,omitempty"`
	FontSize float64 `yaml:"font_size,omitempty" json:"font_size,omitempty"`
}

// Point is a world-space coordinate.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Drawable is a fully resolved, engine-neutral description of one element.
type Drawable struct {
	Kind        string   `yaml:"kind" json:"kind"`
	Label       string   `yaml:"label,omitempty" json:"label,omitempty"`
	Color       string   `yaml:"color" json:"color"`
	Fill        string   `yaml:"fill,omitempty" json:"fill,omitempty"`
	Opacity     float64  `yaml:"opacity" json:"opacity"`
	Corner      float64  `yaml:"corner,omitempty" json:"corner,omitempty"`
	StrokeWidth float64  `yaml:"stroke_width" json:"stroke_width"`
	Geometry    Geometry `yaml:"geometry" json:"geometry"`
	LabelAt     *Point   `yaml:"label_at,omitempty" json:"label_at,omitempty"`
	LabelColor  string   `yaml:"label_color,omitempty" json:"label_color,omitempty"`
	LabelSize   float64  `yaml:"label_size,omitempty" json:"label_size,omitempty"`
	Shadow      *Point   `yaml:"shadow,omitempty" json:"shadow,omitempty"`
}

// Composer builds drawables for one style.
type Composer struct {
	Style Style
}

// NewComposer returns a composer for s.
func NewComposer(s Style) *Composer {
	return &Composer{Style: s}
}

// Compose returns the drawable for el, or nil when the element kind is unknown
// or the element lacks required geometry.
func (c *Composer) Compose(el model.VisualElement) *Drawable {
	st := c.Style
	d := &Drawable{
		Kind:        el.Kind(),
		Label:       el.Label,
		Color:       normalizeHex(el.Color, normalizeHex(st.Palette.Primary, model.DefaultElementColor)),
		StrokeWidth: st.StrokeWidth,
		Opacity:     1,
	}
	x, _ := el.Pos("x")
	y, _ := el.Pos("y")

	switch d.Kind {
	case model.KindRectangle:
		d.Geometry = Geometry{X: x, Y: y, W: el.Dim("width", DefaultRectWidth), H: el.Dim("height", DefaultRectHeight)}
		d.Fill = d.Color
		d.Opacity = st.FillOpacity
		d.Corner = math.Min(st.CornerRadius, math.Min(d.Geometry.W, d.Geometry.H)/2)
		c.placeLabel(d, d.Geometry.H/2)
		c.placeShadow(d)

	case model.KindCircle:
		r := el.Dim("radius", DefaultRadius)
		d.Geometry = Geometry{X: x, Y: y, W: 2 * r, H: 2 * r, R: r}
		d.Fill = d.Color
		d.Opacity = st.FillOpacity
		c.placeLabel(d, r)
		c.placeShadow(d)

	case model.KindArrow:
		x1, ok1 := el.Pos("x_start")
		y1, ok2 := el.Pos("y_start")
		x2, ok3 := el.Pos("x_end")
		y2, ok4 := el.Pos("y_end")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			slog.Debug("Scene: arrow without endpoints dropped", "label", el.Label)
			return nil
		}
		d.Geometry = Geometry{X: x1, Y: y1, X2: x2, Y2: y2}
		if d.Label != "" {
			d.LabelAt = &Point{X: (x1 + x2) / 2, Y: (y1+y2)/2 + labelGap}
			d.LabelColor = normalizeHex(st.Palette.Text, "#ffffff")
			d.LabelSize = c.fontSize(0)
		}

	case model.KindText:
		if d.Label == "" {
			slog.Debug("Scene: empty text element dropped")
			return nil
		}
		d.Geometry = Geometry{X: x, Y: y, FontSize: el.Dim("font_size", c.fontSize(0))}

	default:
		return nil
	}
	return d
}

// Build composes el and resolves its animation in one step.
func (c *Composer) Build(el model.VisualElement) (*Drawable, string) {
	d := c.Compose(el)
	if d == nil {
		return nil, ""
	}
	return d, c.Style.ResolveAnimation(el)
}

func (c *Composer) placeLabel(d *Drawable, halfHeight float64) {
	if d.Label == "" {
		return
	}
	g := d.Geometry
	at := Point{X: g.X, Y: g.Y}
	switch c.Style.LabelPlacement {
	case LabelAbove:
		at.Y += halfHeight + labelGap
	case LabelBelow:
		at.Y -= halfHeight + labelGap
	}
	d.LabelAt = &at
	d.LabelColor = normalizeHex(c.Style.Palette.Text, "#ffffff")
	d.LabelSize = c.fontSize(g.W)
}

func (c *Composer) placeShadow(d *Drawable) {
	if !c.Style.Shadow {
		return
	}
	d.Shadow = &Point{X: d.Geometry.X + shadowShift, Y: d.Geometry.Y - shadowShift}
}

// fontSize returns the style's label size, shrunk for narrow containers.
func (c *Composer) fontSize(width float64) float64 {
	size := c.Style.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	if width > 0 {
		size = math.Min(size, math.Max(12, width*9))
	}
	return size
}
