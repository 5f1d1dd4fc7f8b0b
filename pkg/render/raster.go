package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"explainergo/pkg/model"
	"explainergo/pkg/scene"
	"explainergo/pkg/timeline"
)

// World extent in scene units. The frame center is the origin.
const (
	worldWidth  = 16.0
	worldHeight = 9.0
)

// Keyframe is one still image and how long it is shown.
type Keyframe struct {
	Path    string
	Seconds float64
}

// RasterSurface draws one PNG keyframe per action and writes an ffmpeg concat
// list describing how long each keyframe is shown.
type RasterSurface struct {
	Dir    string
	Width  int
	Height int

	fonts *fontCache

	sceneNum   int
	background string
	visible    []scene.Drawable
	frames     []Keyframe
}

// NewRasterSurface returns a surface writing keyframes under dir. An empty
// fontPath uses the built-in bitmap face.
func NewRasterSurface(dir string, width, height int, fontPath string) (*RasterSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", width, height)
	}
	fc, err := newFontCache(fontPath)
	if err != nil {
		return nil, err
	}
	return &RasterSurface{Dir: dir, Width: width, Height: height, fonts: fc}, nil
}

func (r *RasterSurface) sceneDir() string {
	return filepath.Join(r.Dir, fmt.Sprintf("scene_%02d", r.sceneNum))
}

func (r *RasterSurface) Begin(sceneNumber int, background string) error {
	r.sceneNum = sceneNumber
	r.background = background
	r.visible = r.visible[:0]
	r.frames = nil
	if err := os.MkdirAll(r.sceneDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create frame dir: %w", err)
	}
	return nil
}

// Play draws the entering element at half strength for the run time, then
// keeps it fully visible for the rest of the scene.
func (r *RasterSurface) Play(ctx context.Context, a timeline.Action) error {
	if a.Drawable == nil {
		return errors.New("nothing to draw")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.keyframe(a.Drawable, a.Seconds); err != nil {
		return err
	}
	r.visible = append(r.visible, *a.Drawable)
	return nil
}

func (r *RasterSurface) Wait(ctx context.Context, seconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.keyframe(nil, seconds)
}

func (r *RasterSurface) End() (Output, error) {
	if len(r.frames) == 0 {
		if err := r.keyframe(nil, 0.1); err != nil {
			return Output{}, err
		}
	}
	list := filepath.Join(r.sceneDir(), "frames.txt")
	if err := os.WriteFile(list, []byte(ConcatList(r.frames)), 0o644); err != nil {
		return Output{}, fmt.Errorf("failed to write concat list: %w", err)
	}
	var total float64
	for _, f := range r.frames {
		total += f.Seconds
	}
	return Output{Scene: r.sceneNum, Path: list, Duration: total, Frames: len(r.frames)}, nil
}

// ConcatList renders keyframes in ffmpeg concat demuxer format. The last file
// is repeated so its duration is honored.
func ConcatList(frames []Keyframe) string {
	var sb strings.Builder
	for _, f := range frames {
		fmt.Fprintf(&sb, "file '%s'\n", filepath.Base(f.Path))
		fmt.Fprintf(&sb, "duration %.3f\n", f.Seconds)
	}
	if n := len(frames); n > 0 {
		fmt.Fprintf(&sb, "file '%s'\n", filepath.Base(frames[n-1].Path))
	}
	return sb.String()
}

func (r *RasterSurface) keyframe(entering *scene.Drawable, seconds float64) error {
	dc := gg.NewContext(r.Width, r.Height)
	bg, err := scene.ParseHex(r.background)
	if err != nil {
		bg, _ = scene.ParseHex(model.DefaultBackgroundColor)
	}
	dc.SetColor(bg)
	dc.Clear()

	for i := range r.visible {
		if err := r.draw(dc, &r.visible[i], 1); err != nil {
			return err
		}
	}
	if entering != nil {
		if err := r.draw(dc, entering, 0.5); err != nil {
			return err
		}
	}

	path := filepath.Join(r.sceneDir(), fmt.Sprintf("frame_%04d.png", len(r.frames)+1))
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save keyframe: %w", err)
	}
	r.frames = append(r.frames, Keyframe{Path: path, Seconds: seconds})
	return nil
}

// px maps world coordinates to pixels.
func (r *RasterSurface) px(x, y float64) (float64, float64) {
	sx := float64(r.Width) / worldWidth
	sy := float64(r.Height) / worldHeight
	return (x + worldWidth/2) * sx, (worldHeight/2 - y) * sy
}

func (r *RasterSurface) unit() float64 {
	return float64(r.Width) / worldWidth
}

func (r *RasterSurface) draw(dc *gg.Context, d *scene.Drawable, strength float64) error {
	stroke, err := scene.ParseHex(d.Color)
	if err != nil {
		return err
	}
	g := d.Geometry
	u := r.unit()
	lw := math.Max(1, d.StrokeWidth*float64(r.Height)/540)

	setRGBA := func(hex string, alpha float64) {
		c, err := scene.ParseHex(hex)
		if err != nil {
			c = stroke
		}
		dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, alpha*strength)
	}

	shape := func(x, y float64) {
		cx, cy := r.px(x, y)
		switch d.Kind {
		case model.KindRectangle:
			w, h := g.W*u, g.H*u
			if d.Corner > 0 {
				dc.DrawRoundedRectangle(cx-w/2, cy-h/2, w, h, d.Corner*u)
			} else {
				dc.DrawRectangle(cx-w/2, cy-h/2, w, h)
			}
		case model.KindCircle:
			dc.DrawCircle(cx, cy, g.R*u)
		}
	}

	switch d.Kind {
	case model.KindRectangle, model.KindCircle:
		if d.Shadow != nil {
			shape(d.Shadow.X, d.Shadow.Y)
			dc.SetRGBA(0, 0, 0, 0.25*strength)
			dc.Fill()
		}
		shape(g.X, g.Y)
		setRGBA(d.Fill, d.Opacity)
		dc.FillPreserve()
		setRGBA(d.Color, 1)
		dc.SetLineWidth(lw)
		dc.Stroke()

	case model.KindArrow:
		x1, y1 := r.px(g.X, g.Y)
		x2, y2 := r.px(g.X2, g.Y2)
		setRGBA(d.Color, 1)
		dc.SetLineWidth(lw)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		drawArrowHead(dc, x1, y1, x2, y2, 0.25*u)

	case model.KindText:
		x, y := r.px(g.X, g.Y)
		return r.text(dc, d.Label, x, y, g.FontSize, d.Color, strength)

	default:
		return fmt.Errorf("unsupported kind %q", d.Kind)
	}

	if d.Label != "" && d.LabelAt != nil {
		x, y := r.px(d.LabelAt.X, d.LabelAt.Y)
		return r.text(dc, d.Label, x, y, d.LabelSize, d.LabelColor, strength)
	}
	return nil
}

func (r *RasterSurface) text(dc *gg.Context, s string, x, y, size float64, hex string, strength float64) error {
	face, err := r.fonts.face(size * float64(r.Height) / 540)
	if err != nil {
		return err
	}
	c, err := scene.ParseHex(hex)
	if err != nil {
		c, _ = scene.ParseHex("#ffffff")
	}
	dc.SetFontFace(face)
	dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, strength)
	dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
	return nil
}

func drawArrowHead(dc *gg.Context, x1, y1, x2, y2, size float64) {
	angle := math.Atan2(y2-y1, x2-x1)
	const spread = math.Pi / 7
	dc.MoveTo(x2, y2)
	dc.LineTo(x2-size*math.Cos(angle-spread), y2-size*math.Sin(angle-spread))
	dc.LineTo(x2-size*math.Cos(angle+spread), y2-size*math.Sin(angle+spread))
	dc.ClosePath()
	dc.Fill()
}
