package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mlviz/internal/dataset"
	"mlviz/internal/stats"
)

const paletteSize = 255

var nanColor = color.Gray{Y: 200}

// HeatmapBuilder draws the Pearson correlation matrix of the selected
// columns on a diverging scale centred at zero.
type HeatmapBuilder struct{}

func (HeatmapBuilder) Build(ds *dataset.Dataset, sel Selection) (*Chart, error) {
	if len(sel.Columns) < 2 {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonInsufficientNumeric}
	}
	for _, name := range sel.Columns {
		if !ds.Has(name) {
			return nil, &SelectionError{Kind: sel.Kind, Reason: ReasonUnknownColumn, Column: name}
		}
	}

	m, err := stats.Correlate(ds, sel.Columns)
	if err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonFitFailed, Err: err}
	}

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	h := plotter.NewHeatMap(corrGrid(m.Values), cm.Palette(paletteSize))
	h.Min, h.Max = -1, 1
	h.NaN = nanColor
	p.Add(h)

	labels, err := cellLabels(m.Values)
	if err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonRenderFailed, Err: err}
	}
	p.Add(labels)

	n := len(m.Columns)
	xticks := make(plot.ConstantTicks, n)
	yticks := make(plot.ConstantTicks, n)
	for i, name := range m.Columns {
		xticks[i] = plot.Tick{Value: float64(i), Label: name}
		yticks[i] = plot.Tick{Value: float64(i), Label: m.Columns[n-1-i]}
	}
	p.X.Tick.Marker = xticks
	p.Y.Tick.Marker = yticks
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YTop

	return &Chart{
		Plot:        p,
		Width:       heatmapWidth,
		Height:      heatmapHeight,
		Points:      ds.Len(),
		Correlation: &m,
	}, nil
}

// corrGrid lays a square matrix out with its first row at the top.
type corrGrid [][]float64

func (g corrGrid) Dims() (c, r int)   { return len(g), len(g) }
func (g corrGrid) Z(c, r int) float64 { return g[len(g)-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

func cellLabels(values [][]float64) (*plotter.Labels, error) {
	g := corrGrid(values)
	n, _ := g.Dims()
	xyl := plotter.XYLabels{
		XYs:    make(plotter.XYs, 0, n*n),
		Labels: make([]string, 0, n*n),
	}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := g.Z(c, r)
			xyl.XYs = append(xyl.XYs, plotter.XY{X: g.X(c), Y: g.Y(r)})
			xyl.Labels = append(xyl.Labels, annotate(v))
		}
	}

	l, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		v := g.Z(i%n, i/n)
		l.TextStyle[i] = text.Style{
			Color:   annotationColor(v),
			Font:    l.TextStyle[i].Font,
			XAlign:  draw.XCenter,
			YAlign:  draw.YCenter,
			Handler: plot.DefaultTextHandler,
		}
		l.TextStyle[i].Font.Size = vg.Points(11)
	}
	return l, nil
}

func annotate(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

// annotationColor keeps text readable on strongly saturated cells.
func annotationColor(v float64) color.Color {
	if !math.IsNaN(v) && math.Abs(v) > 0.6 {
		return color.White
	}
	return color.Black
}
