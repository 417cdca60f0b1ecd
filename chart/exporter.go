package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"load_cell_report/config"
	"load_cell_report/derivation"
	"load_cell_report/logger"
)

type renderer func(io.Writer, Figure, Style) error

var renderers = map[string]renderer{
	config.FormatPDF:  WritePDF,
	config.FormatHTML: WriteHTML,
}

// Exporter writes figures to an output directory in the configured formats
type Exporter struct {
	dir     string
	formats []string
	style   Style
}

// NewExporter creates an exporter. Unknown formats are rejected.
func NewExporter(dir string, formats []string, style Style) (*Exporter, error) {
	for _, f := range formats {
		if _, ok := renderers[f]; !ok {
			return nil, fmt.Errorf("unsupported chart format: %s", f)
		}
	}
	return &Exporter{dir: dir, formats: formats, style: style}, nil
}

// NewExporterFromConfig creates an exporter from the output section
func NewExporterFromConfig(cfg *config.Config) (*Exporter, error) {
	style := DefaultStyle()
	style.Width = cfg.Output.Width
	style.Height = cfg.Output.Height
	style.PercentAxis = Axis{
		Min:  cfg.Output.PercentAxis.Min,
		Max:  cfg.Output.PercentAxis.Max,
		Step: cfg.Output.PercentAxis.Step,
	}
	return NewExporter(cfg.Output.Dir, cfg.Output.Formats, style)
}

// ExportSeries writes the Load and Percent charts of one instrument
func (e *Exporter) ExportSeries(r *derivation.Result) ([]string, error) {
	return e.write(LoadFigure(r, e.style), PercentFigure(r, e.style))
}

// ExportFleet writes the four fleet comparison charts
func (e *Exporter) ExportFleet(fleet derivation.Fleet) ([]string, error) {
	return e.write(FleetFigures(fleet, e.style)...)
}

func (e *Exporter) write(figures ...Figure) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, fig := range figures {
		for _, format := range e.formats {
			path := filepath.Join(e.dir, fig.FileName+"."+format)
			if err := writeFile(path, fig, e.style, renderers[format]); err != nil {
				return written, err
			}
			logger.Debugf("Wrote chart %s\n", path)
			written = append(written, path)
		}
	}
	return written, nil
}

func writeFile(path string, fig Figure, style Style, render renderer) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(file, fig, style); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}
