package chart

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"mlviz/internal/tree"
)

func treePlot(s *TreeSummary) *plot.Plot {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Decision Tree (max depth %d)", s.MaxDepth)
	p.HideAxes()
	p.Add(newTreePlotter(s))
	return p
}

// treePlotter draws a fitted tree as boxed nodes joined by edges. In data
// coordinates leaves sit on consecutive integers in order, parents are
// centred over their children and depth d is drawn at y = -d.
type treePlotter struct {
	nodes   []placedNode
	classes []string
	depth   int
	leaves  int

	TextStyle text.Style
	LineStyle draw.LineStyle
	Padding   vg.Length
}

type placedNode struct {
	node   *tree.Node
	x, y   float64
	parent int
}

func newTreePlotter(s *TreeSummary) *treePlotter {
	tp := &treePlotter{
		classes: s.Classes,
		depth:   s.Root.Depth(),
		leaves:  s.Root.Leaves(),
		TextStyle: text.Style{
			Color:   color.Black,
			Font:    font.From(plot.DefaultFont, vg.Points(10)),
			XAlign:  draw.XCenter,
			YAlign:  draw.YCenter,
			Handler: plot.DefaultTextHandler,
		},
		LineStyle: draw.LineStyle{Color: color.Gray{Y: 90}, Width: vg.Points(1)},
		Padding:   vg.Points(6),
	}
	next := 0
	tp.place(s.Root, 0, -1, &next)
	return tp
}

// place lays out the subtree at n and returns its x coordinate.
func (tp *treePlotter) place(n *tree.Node, depth, parent int, nextLeaf *int) float64 {
	i := len(tp.nodes)
	tp.nodes = append(tp.nodes, placedNode{node: n, y: -float64(depth), parent: parent})
	var x float64
	if n.IsLeaf() {
		x = float64(*nextLeaf)
		*nextLeaf++
	} else {
		l := tp.place(n.Left, depth+1, i, nextLeaf)
		r := tp.place(n.Right, depth+1, i, nextLeaf)
		x = (l + r) / 2
	}
	tp.nodes[i].x = x
	return x
}

func (tp *treePlotter) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)

	boxes := make([]vg.Rectangle, len(tp.nodes))
	for i, pn := range tp.nodes {
		txt := tp.nodeText(pn.node)
		w := tp.TextStyle.Width(txt)/2 + tp.Padding
		h := tp.TextStyle.Height(txt)/2 + tp.Padding
		ctr := vg.Point{X: trX(pn.x), Y: trY(pn.y)}
		boxes[i] = vg.Rectangle{
			Min: vg.Point{X: ctr.X - w, Y: ctr.Y - h},
			Max: vg.Point{X: ctr.X + w, Y: ctr.Y + h},
		}
	}

	for i, pn := range tp.nodes {
		if pn.parent < 0 {
			continue
		}
		from := boxes[pn.parent]
		to := boxes[i]
		c.StrokeLines(tp.LineStyle, []vg.Point{
			{X: (from.Min.X + from.Max.X) / 2, Y: from.Min.Y},
			{X: (to.Min.X + to.Max.X) / 2, Y: to.Max.Y},
		})
	}

	for i, pn := range tp.nodes {
		b := boxes[i]
		corners := []vg.Point{b.Min, {X: b.Max.X, Y: b.Min.Y}, b.Max, {X: b.Min.X, Y: b.Max.Y}}
		c.FillPolygon(nodeColor(pn.node), corners)
		c.StrokeLines(tp.LineStyle, append(corners, b.Min))
		ctr := vg.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
		c.FillText(tp.TextStyle, ctr, tp.nodeText(pn.node))
	}
}

// DataRange leaves half a slot of room around the outermost nodes.
func (tp *treePlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	return -0.5, float64(tp.leaves) - 0.5, -float64(tp.depth) - 0.5, 0.5
}

func (tp *treePlotter) nodeText(n *tree.Node) string {
	var lines []string
	if !n.IsLeaf() {
		lines = append(lines, fmt.Sprintf("%s <= %.3f", n.Name, n.Threshold))
	}
	counts := make([]string, len(n.Value))
	for i, v := range n.Value {
		counts[i] = strconv.Itoa(v)
	}
	lines = append(lines,
		fmt.Sprintf("gini = %.3f", n.Gini),
		fmt.Sprintf("samples = %d", n.Samples),
		fmt.Sprintf("value = [%s]", strings.Join(counts, ", ")),
		fmt.Sprintf("class = %s", tp.className(n.Class)),
	)
	return strings.Join(lines, "\n")
}

func (tp *treePlotter) className(code int) string {
	if code >= 0 && code < len(tp.classes) {
		return tp.classes[code]
	}
	return strconv.Itoa(code)
}

// nodeColor blends the predicted class colour toward white. The blend
// weight is (p1-p2)/(1-p2) for the two largest class proportions, so pure
// nodes get the full colour and ties get white.
func nodeColor(n *tree.Node) color.Color {
	base := color.RGBAModel.Convert(plotutil.Color(n.Class)).(color.RGBA)
	return blend(base, purity(n.Value))
}

func purity(counts []int) float64 {
	total := 0
	var p1, p2 int
	for _, c := range counts {
		total += c
		switch {
		case c > p1:
			p1, p2 = c, p1
		case c > p2:
			p2 = c
		}
	}
	if total == 0 {
		return 0
	}
	f1 := float64(p1) / float64(total)
	f2 := float64(p2) / float64(total)
	if f2 >= 1 {
		return 0
	}
	return (f1 - f2) / (1 - f2)
}

func blend(c color.RGBA, alpha float64) color.RGBA {
	mix := func(v uint8) uint8 {
		return uint8(float64(v)*alpha + 255*(1-alpha) + 0.5)
	}
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 255}
}
