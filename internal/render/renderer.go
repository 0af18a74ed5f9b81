package render

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/banshee-data/ptview/internal/frame"
	"github.com/banshee-data/ptview/internal/visual"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Renderer rasterizes layers of points. It is not safe for concurrent use.
type Renderer struct {
	Width, Height int
	Background    visual.RGBA

	// AxisLength is the world length of the red/green/blue axis triad;
	// zero hides it.
	AxisLength float64
}

// NewRenderer returns a renderer with a unit-length axis triad.
func NewRenderer(width, height int, background visual.RGBA) *Renderer {
	return &Renderer{Width: width, Height: height, Background: background, AxisLength: 1}
}

var axisColors = [3]color.Color{
	color.NRGBA{R: 255, A: 255},
	color.NRGBA{G: 255, A: 255},
	color.NRGBA{B: 255, A: 255},
}

type point struct {
	Projected
	color visual.RGBA
	size  float64
}

// Render draws every layer through cam. Points from all layers are sorted
// far to near so nearer points cover farther ones.
func (r *Renderer) Render(cam *Camera, layers ...*frame.Renderable) (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid render size %dx%d", r.Width, r.Height)
	}

	var pts []point
	for _, l := range layers {
		if l == nil {
			continue
		}
		for i, pos := range l.Positions {
			pr, ok := cam.Project(pos, r.Width, r.Height)
			if !ok {
				continue
			}
			pts = append(pts, point{Projected: pr, color: l.Colors[i], size: l.Sizes[i]})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Depth > pts[j].Depth })

	p := plot.New()
	p.HideAxes()
	p.X.Padding, p.Y.Padding = 0, 0
	p.BackgroundColor = r.Background.Color()

	if r.AxisLength > 0 {
		if err := r.addAxes(p, cam); err != nil {
			return nil, err
		}
	}

	if len(pts) > 0 {
		xys := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build scatter: %w", err)
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  pts[i].color.Color(),
				Radius: vg.Length(pts[i].size / 2),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(unpadded{sc})
	}

	// Pixel coordinates map one to one at 72 dpi.
	p.X.Min, p.X.Max = 0, float64(r.Width)
	p.Y.Min, p.Y.Max = 0, float64(r.Height)

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(r.Width), vg.Length(r.Height)),
		vgimg.UseDPI(72),
		vgimg.UseBackgroundColor(r.Background.Color()),
	)
	p.Draw(draw.New(c))
	return c.Image(), nil
}

func (r *Renderer) addAxes(p *plot.Plot, cam *Camera) error {
	origin, ok := cam.Project(r3.Vec{}, r.Width, r.Height)
	if !ok {
		return nil
	}
	for i, axis := range [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		end, ok := cam.Project(r3.Scale(r.AxisLength, axis), r.Width, r.Height)
		if !ok {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{{X: origin.X, Y: origin.Y}, {X: end.X, Y: end.Y}})
		if err != nil {
			return fmt.Errorf("failed to build axis: %w", err)
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
	}
	return nil
}

// unpadded hides the scatter's glyph boxes so the plot does not shrink the
// data area to fit large glyphs; pixel positions stay exact.
type unpadded struct {
	s *plotter.Scatter
}

func (u unpadded) Plot(c draw.Canvas, p *plot.Plot) {
	u.s.Plot(c, p)
}
