package chart

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mlviz/internal/dataset"
)

// ScatterBuilder plots Y against X over rows where both are numeric.
type ScatterBuilder struct{}

func (ScatterBuilder) Build(ds *dataset.Dataset, sel Selection) (*Chart, error) {
	x, y, err := pairRows(ds, sel)
	if err != nil {
		return nil, err
	}

	p := newPlot(fmt.Sprintf("Scatter Plot: %s vs %s", sel.Y, sel.X), sel.X, sel.Y)
	p.Add(plotter.NewGrid())
	if err := addPoints(p, x, y); err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonRenderFailed, Err: err}
	}

	return &Chart{Plot: p, Width: xyWidth, Height: xyHeight, Points: len(x)}, nil
}

func addPoints(p *plot.Plot, x, y []float64) error {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	s.GlyphStyle.Color = pointColor
	p.Add(s)
	return nil
}
