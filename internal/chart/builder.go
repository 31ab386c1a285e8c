package chart

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"mlviz/internal/dataset"
	"mlviz/internal/stats"
)

// Builder renders one chart kind from a validated selection.
type Builder interface {
	Build(ds *dataset.Dataset, sel Selection) (*Chart, error)
}

// Chart is a built, not yet encoded, chart plus the statistics computed
// while building it.
type Chart struct {
	Plot   *plot.Plot
	Width  vg.Length
	Height vg.Length

	// Points is the number of rows that survived cleaning.
	Points int

	Regression  *stats.LinearFit
	Correlation *stats.CorrelationMatrix
	Tree        *TreeSummary
}

// Figure sizes per kind.
var (
	xyWidth, xyHeight           = 10 * vg.Inch, 6 * vg.Inch
	heatmapWidth, heatmapHeight = 12 * vg.Inch, 8 * vg.Inch
	treeWidth, treeHeight       = 15 * vg.Inch, 10 * vg.Inch
)

var (
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 153}
	lineColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	return p
}

// pairRows applies the shared row cleaning to the selected x and y.
func pairRows(ds *dataset.Dataset, sel Selection) (x, y []float64, err error) {
	for _, name := range []string{sel.X, sel.Y} {
		if !ds.Has(name) {
			return nil, nil, &SelectionError{Kind: sel.Kind, Reason: ReasonUnknownColumn, Column: name}
		}
	}
	cols, err := ds.CompleteRows(sel.X, sel.Y)
	if err != nil {
		return nil, nil, err
	}
	if len(cols[0]) == 0 {
		return nil, nil, &ChartError{Kind: sel.Kind, Reason: ReasonNoValidPoints}
	}
	return cols[0], cols[1], nil
}
