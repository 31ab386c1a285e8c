package chart

import (
	"errors"

	"mlviz/internal/dataset"
	"mlviz/internal/tree"
)

// TreeSummary is the fitted tree and the class naming used to draw it.
type TreeSummary struct {
	Root     *tree.Node `json:"root"`
	Features []string   `json:"features"`
	Target   string     `json:"target"`
	// Classes[i] names class code i.
	Classes []string `json:"classes"`
	// ClassCodes is set only for categorical targets.
	ClassCodes map[string]int `json:"class_codes,omitempty"`
	MaxDepth   int            `json:"max_depth"`
	Depth      int            `json:"depth"`
	Leaves     int            `json:"leaves"`
	Samples    int            `json:"samples"`
}

// DecisionTreeBuilder fits a depth-capped classification tree on the
// selected numeric features and draws it.
type DecisionTreeBuilder struct {
	// Options override the default depth and seed.
	Options []tree.Option
}

func (b DecisionTreeBuilder) Build(ds *dataset.Dataset, sel Selection) (*Chart, error) {
	if len(sel.Features) == 0 {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonNoNumericFeatures}
	}
	for _, name := range append(append([]string(nil), sel.Features...), sel.Target) {
		if !ds.Has(name) {
			return nil, &SelectionError{Kind: sel.Kind, Reason: ReasonUnknownColumn, Column: name}
		}
	}

	X, y, labels, categorical, err := treeData(ds, sel)
	if err != nil {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonFitFailed, Err: err}
	}
	if len(X) == 0 {
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonNoValidPoints}
	}

	clf := tree.New(b.Options...)
	if err := clf.Fit(X, y, sel.Features, len(labels.Names)); err != nil {
		if errors.Is(err, tree.ErrEmpty) {
			return nil, &ChartError{Kind: sel.Kind, Reason: ReasonNoValidPoints, Err: err}
		}
		return nil, &ChartError{Kind: sel.Kind, Reason: ReasonFitFailed, Err: err}
	}

	summary := &TreeSummary{
		Root:     clf.Root,
		Features: clf.Features,
		Target:   sel.Target,
		Classes:  labels.Names,
		MaxDepth: clf.MaxDepth,
		Depth:    clf.Root.Depth(),
		Leaves:   clf.Root.Leaves(),
		Samples:  len(X),
	}
	if categorical {
		summary.ClassCodes = labels.Codes
	}

	return &Chart{
		Plot:   treePlot(summary),
		Width:  treeWidth,
		Height: treeHeight,
		Points: len(X),
		Tree:   summary,
	}, nil
}

// treeData keeps rows where every feature is numeric and the target is
// present, and encodes the target. Numeric targets are treated as
// discrete labels.
func treeData(ds *dataset.Dataset, sel Selection) ([][]float64, []int, tree.Labels, bool, error) {
	categorical := !ds.IsNumeric(sel.Target)

	var idx []int
	var err error
	if categorical {
		idx, err = ds.CompleteIndex(sel.Features...)
	} else {
		idx, err = ds.CompleteIndex(append(append([]string(nil), sel.Features...), sel.Target)...)
	}
	if err != nil {
		return nil, nil, tree.Labels{}, false, err
	}

	raw, err := ds.Values(sel.Target)
	if err != nil {
		return nil, nil, tree.Labels{}, false, err
	}
	if categorical {
		kept := idx[:0]
		for _, r := range idx {
			if !dataset.IsMissing(raw[r]) {
				kept = append(kept, r)
			}
		}
		idx = kept
	}

	cols := make([][]float64, len(sel.Features))
	for j, name := range sel.Features {
		if cols[j], err = ds.Floats(name); err != nil {
			return nil, nil, tree.Labels{}, false, err
		}
	}
	X := make([][]float64, len(idx))
	for k, r := range idx {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = cols[j][r]
		}
		X[k] = row
	}

	var y []int
	var labels tree.Labels
	if categorical {
		names := make([]string, len(idx))
		for k, r := range idx {
			names[k] = raw[r]
		}
		y, labels = tree.EncodeLabels(names)
	} else {
		nums := make([]float64, len(idx))
		for k, r := range idx {
			nums[k], _ = dataset.Coerce(raw[r])
		}
		y, labels = tree.EncodeNumericLabels(nums)
	}
	return X, y, labels, categorical, nil
}
