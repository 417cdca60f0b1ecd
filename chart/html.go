package chart

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const pixelsPerInch = 96

// WriteHTML renders a figure as a standalone interactive HTML page
func WriteHTML(w io.Writer, fig Figure, style Style) error {
	line := charts.NewLine()

	yAxis := opts.YAxis{Name: fig.YTitle, Scale: true}
	if fig.YAxis != nil {
		yAxis.Min = fig.YAxis.Min
		yAxis.Max = fig.YAxis.Max
		if fig.YAxis.Step > 0 {
			yAxis.SplitNumber = int((fig.YAxis.Max - fig.YAxis.Min) / fig.YAxis.Step)
		}
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fig.Title,
			Width:     fmt.Sprintf("%dpx", int(style.Width*pixelsPerInch)),
			Height:    fmt.Sprintf("%dpx", int(style.Height*pixelsPerInch)),
		}),
		charts.WithTitleOpts(opts.Title{Title: fig.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true, Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: fig.XTitle, Type: "time"}),
		charts.WithYAxisOpts(yAxis),
	)

	yMin, yMax := fig.valueRange()
	areas := make([]opts.MarkAreaNameCoordItem, 0, len(fig.Shades))
	for _, s := range fig.Shades {
		areas = append(areas, opts.MarkAreaNameCoordItem{
			Name:        string(s.Kind),
			Coordinate0: []interface{}{epochMillis(s.Start), yMin},
			Coordinate1: []interface{}{epochMillis(s.End), yMax},
			ItemStyle: &opts.ItemStyle{
				Color:   style.ShadeColorName,
				Opacity: float32(s.Opacity),
			},
		})
	}

	for i, t := range fig.Traces {
		data := make([]opts.LineData, len(t.Points))
		for j, pt := range t.Points {
			data[j] = opts.LineData{Value: []interface{}{epochMillis(pt.At), pt.Value}}
		}

		var seriesOpts []charts.SeriesOpts
		if i == 0 && len(areas) > 0 {
			seriesOpts = append(seriesOpts, charts.WithMarkAreaNameCoordItemOpts(areas...))
		}
		line.AddSeries(t.Name, data, seriesOpts...)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to write html: %w", err)
	}
	return nil
}

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
