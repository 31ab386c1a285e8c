package chart

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"mlviz/internal/dataset"
	"mlviz/internal/stats"
)

const regressionSamples = 100

// RegressionBuilder plots the cleaned X/Y pairs with their OLS line. A
// single valid row is drawn without a line.
type RegressionBuilder struct{}

func (RegressionBuilder) Build(ds *dataset.Dataset, sel Selection) (*Chart, error) {
	x, y, err := pairRows(ds, sel)
	if err != nil {
		return nil, err
	}

	p := newPlot(fmt.Sprintf("Linear Regression: %s vs %s", sel.Y, sel.X), sel.X, sel.Y)
	p.Add(plotter.NewGrid())
	if err := addPoints(p, x, y); err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonRenderFailed, Err: err}
	}
	c := &Chart{Plot: p, Width: xyWidth, Height: xyHeight, Points: len(x)}
	if len(x) < 2 {
		return c, nil
	}

	fit, err := stats.FitLinear(x, y)
	if err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonFitFailed, Err: err}
	}
	c.Regression = &fit

	xs := stats.Span(floats.Min(x), floats.Max(x), regressionSamples)
	line := make(plotter.XYs, len(xs))
	for i, v := range xs {
		line[i].X, line[i].Y = v, fit.Predict(v)
	}
	l, err := plotter.NewLine(line)
	if err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonRenderFailed, Err: err}
	}
	l.LineStyle.Color = lineColor
	l.LineStyle.Width = vg.Points(2)
	p.Add(l)
	p.Legend.Top = true
	p.Legend.Add(fmt.Sprintf("Regression line (R² = %.3f)", fit.RSquared), l)

	return c, nil
}
