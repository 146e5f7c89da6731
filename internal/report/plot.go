package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/HamletTheHamster/nixsw/internal/argand"
	"github.com/HamletTheHamster/nixsw/internal/dataio"
	"github.com/HamletTheHamster/nixsw/internal/nixerr"
)

// Figure is the side length of every saved figure.
const Figure = 15 * vg.Inch

var errEmpty = errors.New("nothing to plot")

// Curve is a named set of points. Err, when present, holds one
// symmetric y error per point.
type Curve struct {
	Label string
	X, Y  []float64
	Err   []float64
}

// Check reports an empty curve or mismatched column lengths.
func (c Curve) Check() error {

	if len(c.X) == 0 {
		return fmt.Errorf("%s: %w", c.Label, errEmpty)
	}
	if len(c.Y) != len(c.X) || (c.Err != nil && len(c.Err) != len(c.X)) {
		return fmt.Errorf(
			"%w: %s has %d x, %d y and %d error values",
			nixerr.ErrShapeMismatch, c.Label, len(c.X), len(c.Y), len(c.Err),
		)
	}
	return nil
}

func buildData(
	x, y []float64,
) plotter.XYs {

	xy := make(plotter.XYs, len(x))
	for i := range xy {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	return xy
}

func buildErrors(
	σ []float64,
) plotter.Errors {

	e := make(plotter.Errors, len(σ))
	for i := range e {
		e[i].Low, e[i].High = σ[i], σ[i]
	}
	return e
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// span returns a range enclosing every value with a 5 % margin.
func span(values ...[]float64) [2]float64 {

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if len(v) == 0 {
			continue
		}
		lo = math.Min(lo, floats.Min(v))
		hi = math.Max(hi, floats.Max(v))
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return [2]float64{0, 1}
	}
	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 0.5
	}
	return [2]float64{lo - pad, hi + pad}
}

// prepPlot styles an empty figure and returns the lines closing its top
// and right edges.
func prepPlot(
	title, xlabel, ylabel string,
	xrange, yrange [2]float64,
	slide bool,
) (
	*plot.Plot,
	*plotter.Line, *plotter.Line,
	error,
) {

	p := plot.New()
	p.BackgroundColor = color.RGBA{A: 0}
	p.Title.Text = title
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.LineStyle.Width = vg.Points(1.5)
	p.X.Min, p.X.Max = xrange[0], xrange[1]
	p.X.Tick.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Padding = vg.Points(-8)

	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.Y.Min, p.Y.Max = yrange[0], yrange[1]
	p.Y.Tick.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Padding = vg.Points(-6)

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-25)
	p.Legend.YOffs = vg.Points(25)
	p.Legend.Padding = vg.Points(10)
	p.Legend.ThumbnailWidth = vg.Points(50)

	titleSize, label, tick, legend := font.Length(50), font.Length(36), font.Length(36), font.Length(28)
	if slide {
		titleSize, label, tick, legend = 80, 56, 56, 56
	}
	p.Title.TextStyle.Font.Size = titleSize
	p.Title.Padding = titleSize
	p.X.Label.TextStyle.Font.Size = label
	p.X.Label.Padding = label / 2
	p.X.Tick.Label.Font.Size = tick
	p.Y.Label.TextStyle.Font.Size = label
	p.Y.Label.Padding = label / 2
	p.Y.Tick.Label.Font.Size = tick
	p.Legend.TextStyle.Font.Size = legend

	top, err := plotter.NewLine(plotter.XYs{{X: xrange[0], Y: yrange[1]}, {X: xrange[1], Y: yrange[1]}})
	if err != nil {
		return nil, nil, nil, err
	}
	right, err := plotter.NewLine(plotter.XYs{{X: xrange[1], Y: yrange[0]}, {X: xrange[1], Y: yrange[1]}})
	if err != nil {
		return nil, nil, nil, err
	}
	return p, top, right, nil
}

// palette cycles through paired colours; dark is the shade for fit lines.
func palette(
	brush int,
	dark bool,
) color.RGBA {

	light := []color.RGBA{
		{R: 31, G: 211, B: 172, A: 255},
		{R: 255, G: 122, B: 180, A: 255},
		{R: 122, G: 156, B: 255, A: 255},
		{R: 255, G: 193, B: 122, A: 255},
		{R: 188, G: 117, B: 255, A: 255},
	}
	shade := []color.RGBA{
		{R: 27, G: 170, B: 139, A: 255},
		{R: 201, G: 104, B: 146, A: 255},
		{R: 99, G: 124, B: 198, A: 255},
		{R: 183, G: 139, B: 89, A: 255},
		{R: 122, G: 41, B: 104, A: 255},
	}
	if dark {
		return shade[brush%len(shade)]
	}
	return light[brush%len(light)]
}

// FitPlot draws measured points with their error bars and the fitted
// curve through them.
func FitPlot(
	title, xlabel, ylabel string,
	data, fit Curve,
	slide bool,
) (
	*plot.Plot, error,
) {

	if err := data.Check(); err != nil {
		return nil, err
	}
	if err := fit.Check(); err != nil {
		return nil, err
	}

	lo, hi := data.Y, data.Y
	if data.Err != nil {
		lo, hi = make([]float64, len(data.Y)), make([]float64, len(data.Y))
		floats.SubTo(lo, data.Y, data.Err)
		floats.AddTo(hi, data.Y, data.Err)
	}
	p, t, r, err := prepPlot(title, xlabel, ylabel, span(data.X, fit.X), span(lo, hi, fit.Y), slide)
	if err != nil {
		return nil, err
	}

	pts := buildData(data.X, data.Y)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = palette(0, false)
	scatter.GlyphStyle.Radius = vg.Points(3)
	if slide {
		scatter.GlyphStyle.Radius = vg.Points(5)
	}
	scatter.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	if data.Err != nil {
		e, err := plotter.NewYErrorBars(errorPoints{XYs: pts, YErrors: plotter.YErrors(buildErrors(data.Err))})
		if err != nil {
			return nil, err
		}
		e.LineStyle.Color = palette(0, false)
		p.Add(e)
	}

	line, err := plotter.NewLine(buildData(fit.X, fit.Y))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = palette(0, true)
	line.LineStyle.Width = vg.Points(3)
	p.Add(t, r, line)

	p.Legend.Add(data.Label, scatter)
	p.Legend.Add(fit.Label, line)
	return p, nil
}

// ParseColor reads an "(r, g, b)" colour of an Argand record.
func ParseColor(s string) (color.RGBA, bool) {

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return color.RGBA{}, false
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return color.RGBA{}, false
	}
	var rgb [3]uint8
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return color.RGBA{}, false
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}

func glyph(symbol string) draw.GlyphDrawer {
	switch symbol {
	case "+":
		return draw.PlusGlyph{}
	case "x":
		return draw.CrossGlyph{}
	case "s":
		return draw.SquareGlyph{}
	case "^":
		return draw.TriangleGlyph{}
	case "*":
		return draw.RingGlyph{}
	}
	return draw.CircleGlyph{}
}

func cartesian(rec dataio.Record) (plotter.XY, bool) {

	pc, ok1 := rec.Float("Pc")
	fc, ok2 := rec.Float("Fc")
	if !ok1 || !ok2 {
		return plotter.XY{}, false
	}
	z := argand.ToCartesian(argand.Vector{Pc: pc, Fc: fc})
	return plotter.XY{X: real(z), Y: imag(z)}, true
}

// ArgandPlot draws the checked groups of an arena in the complex plane:
// the checked points of each group and, larger, the group vector, inside
// the unit circle.
func ArgandPlot(
	title string,
	a *argand.Arena,
	slide bool,
) (
	*plot.Plot, error,
) {

	rng := [2]float64{-1.1, 1.1}
	p, t, r, err := prepPlot(title, "Fc cos 2πPc", "Fc sin 2πPc", rng, rng, slide)
	if err != nil {
		return nil, err
	}

	circle := make(plotter.XYs, 361)
	for i := range circle {
		s, c := math.Sincos(float64(i) * math.Pi / 180)
		circle[i] = plotter.XY{X: c, Y: s}
	}
	unit, err := plotter.NewLine(circle)
	if err != nil {
		return nil, err
	}
	unit.LineStyle.Color = color.Gray{Y: 128}
	unit.LineStyle.Dashes = []vg.Length{vg.Points(15), vg.Points(5)}
	p.Add(t, r, unit)

	for _, g := range a.Groups() {
		if !g.Checked {
			continue
		}
		col, ok := ParseColor(g.Record["Color"])
		if !ok {
			col = color.RGBA{A: 255}
		}

		points, err := a.Points(g.ID)
		if err != nil {
			return nil, err
		}
		var xy plotter.XYs
		for _, pt := range points {
			if !pt.Checked {
				continue
			}
			if v, ok := cartesian(pt.Record); ok {
				xy = append(xy, v)
			}
		}
		if len(xy) > 0 {
			s, err := plotter.NewScatter(xy)
			if err != nil {
				return nil, err
			}
			s.GlyphStyle.Color = col
			s.GlyphStyle.Radius = vg.Points(3)
			s.Shape = draw.CircleGlyph{}
			p.Add(s)
		}

		v, ok := cartesian(g.Record)
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(plotter.XYs{v})
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = col
		s.GlyphStyle.Radius = vg.Points(8)
		s.Shape = glyph(g.Record["Symbol"])
		p.Add(s)
		p.Legend.Add(g.Record["Name"], s)
	}
	return p, nil
}

// Save writes p as png, svg and pdf into dir, which is created if needed.
func Save(
	p *plot.Plot,
	dir, name string,
) error {

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", nixerr.ErrIO, err)
	}
	path := filepath.Join(dir, name)
	for _, ext := range []string{".png", ".svg", ".pdf"} {
		if err := p.Save(Figure, Figure, path+ext); err != nil {
			return fmt.Errorf("%w: figure %s: %v", nixerr.ErrIO, name+ext, err)
		}
	}
	return nil
}
