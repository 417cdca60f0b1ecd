package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

// stepTicks places major ticks every Step starting at the axis minimum
type stepTicks struct {
	Step float64
}

// Ticks implements plot.Ticker
func (s stepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for v := min; v <= max+s.Step*1e-9; v += s.Step {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%g", v)})
	}
	return ticks
}

// WritePDF renders a figure as a single-page PDF
func WritePDF(w io.Writer, fig Figure, style Style) error {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XTitle
	p.Y.Label.Text = fig.YTitle
	p.X.Tick.Marker = plot.TimeTicks{Format: style.DateFormat}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	yMin, yMax := fig.valueRange()

	for _, s := range fig.Shades {
		x0, x1 := unixSeconds(s.Start), unixSeconds(s.End)
		band, err := plotter.NewPolygon(plotter.XYs{
			{X: x0, Y: yMin}, {X: x1, Y: yMin}, {X: x1, Y: yMax}, {X: x0, Y: yMax},
		})
		if err != nil {
			return fmt.Errorf("failed to build shade: %w", err)
		}
		band.Color = withOpacity(style.ShadeColor, s.Opacity)
		band.LineStyle.Width = 0
		p.Add(band)
	}

	for i, t := range fig.Traces {
		xys := make(plotter.XYs, len(t.Points))
		for j, pt := range t.Points {
			xys[j].X = unixSeconds(pt.At)
			xys[j].Y = pt.Value
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("failed to build trace %q: %w", t.Name, err)
		}
		c := plotutil.Color(i)
		line.Color = c
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(1.5)

		p.Add(line, points)
		p.Legend.Add(t.Name, line, points)
	}

	if fig.YAxis != nil {
		p.Y.Min, p.Y.Max = fig.YAxis.Min, fig.YAxis.Max
		if fig.YAxis.Step > 0 {
			p.Y.Tick.Marker = stepTicks{Step: fig.YAxis.Step}
		}
	}

	canvas := vgpdf.New(vg.Length(style.Width)*vg.Inch, vg.Length(style.Height)*vg.Inch)
	p.Draw(draw.New(canvas))
	if _, err := canvas.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(math.Max(0, math.Min(1, opacity)) * 255))
	return c
}
