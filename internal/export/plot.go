package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/latctl/internal/sim"
)

var (
	ErrNoData       = errors.New("export: not enough samples to plot")
	ErrUnknownPanel = errors.New("export: unknown panel")
)

// Panel names.
const (
	PanelCurvature = "curvature"
	PanelTorque    = "torque"
	PanelTerms     = "terms"
	PanelOffset    = "offset"
)

var (
	cyan   = color.RGBA{R: 0x00, G: 0x87, B: 0xd7, A: 0xff}
	orange = color.RGBA{R: 0xff, G: 0x87, B: 0x00, A: 0xff}
	purple = color.RGBA{R: 0x87, G: 0x5f, B: 0xd7, A: 0xff}
	green  = color.RGBA{R: 0x00, G: 0xaf, B: 0x5f, A: 0xff}
)

// Series is one line on a chart, sampled at the chart's time base.
type Series struct {
	Name   string
	Color  color.Color
	Values []float64
}

// Chart plots series against t.
func Chart(title, ylabel string, t []float64, series []Series) (*plot.Plot, error) {
	if len(t) < 2 || len(series) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for _, s := range series {
		if len(s.Values) != len(t) {
			return nil, fmt.Errorf("export: series %s has %d values, want %d", s.Name, len(s.Values), len(t))
		}
		pts := make(plotter.XYs, len(t))
		for i := range t {
			pts[i].X = t[i]
			pts[i].Y = s.Values[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("export: series %s: %w", s.Name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = s.Color
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return p, nil
}

// Panel builds one of the standard charts of a run.
func Panel(samples []sim.Sample, name string) (*plot.Plot, error) {
	t := column(samples, func(s sim.Sample) float64 { return s.Time })

	switch name {
	case PanelCurvature:
		return Chart("curvature tracking", "curvature (1/km)", t, []Series{
			{"desired", cyan, column(samples, func(s sim.Sample) float64 { return s.DesiredCurvature * 1000 })},
			{"actual", orange, column(samples, func(s sim.Sample) float64 { return s.ActualCurvature * 1000 })},
		})
	case PanelTorque:
		return Chart("steering torque", "torque", t, []Series{
			{"torque", green, column(samples, func(s sim.Sample) float64 { return s.Torque })},
		})
	case PanelTerms:
		return Chart("controller terms", "contribution", t, []Series{
			{"p", cyan, column(samples, func(s sim.Sample) float64 { return s.Diagnostics.P })},
			{"i", orange, column(samples, func(s sim.Sample) float64 { return s.Diagnostics.I })},
			{"d", purple, column(samples, func(s sim.Sample) float64 { return s.Diagnostics.D })},
			{"f", green, column(samples, func(s sim.Sample) float64 { return s.Diagnostics.F })},
		})
	case PanelOffset:
		return Chart("lateral offset", "offset (m)", t, []Series{
			{"offset", cyan, column(samples, func(s sim.Sample) float64 { return s.Offset })},
		})
	default:
		return nil, fmt.Errorf("%w %q (curvature, torque, terms, offset)", ErrUnknownPanel, name)
	}
}

// WritePanel renders a panel to w. format is any format plot.WriterTo
// accepts, e.g. svg, png or pdf.
func WritePanel(w io.Writer, samples []sim.Sample, panel, format string, width, height vg.Length) error {
	p, err := Panel(samples, panel)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

func column(samples []sim.Sample, f func(sim.Sample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}
