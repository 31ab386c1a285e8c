package chart

import "mlviz/internal/dataset"

// Spec is a raw column choice for one chart.
type Spec struct {
	Kind     Kind     `json:"chart_type"`
	Features []string `json:"columns"`
	Target   string   `json:"target,omitempty"`
}

// Selection is a Spec narrowed to the columns a chart kind actually uses.
// Only the fields relevant to Kind are set.
type Selection struct {
	Kind Kind `json:"chart_type"`

	// Scatter and Regression.
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`

	// Heatmap, in dataset order.
	Columns []string `json:"columns,omitempty"`

	// DecisionTree.
	Features []string `json:"features,omitempty"`
	Target   string   `json:"target,omitempty"`
}

// Select validates spec against the columns of ds. It looks only at column
// names and inferred kinds, never at row values.
func Select(ds *dataset.Dataset, spec Spec) (Selection, error) {
	fail := func(r Reason, col string) (Selection, error) {
		return Selection{}, &SelectionError{Kind: spec.Kind, Reason: r, Column: col}
	}

	for _, f := range spec.Features {
		if !ds.Has(f) {
			return fail(ReasonUnknownColumn, f)
		}
	}
	if spec.Target != "" && !ds.Has(spec.Target) {
		return fail(ReasonUnknownColumn, spec.Target)
	}

	switch spec.Kind {
	case Scatter, Regression:
		numeric := numericIn(ds, spec.Features, "")
		if len(numeric) < 2 {
			return fail(ReasonInsufficientNumeric, "")
		}
		return Selection{Kind: spec.Kind, X: numeric[0], Y: numeric[1]}, nil

	case Heatmap:
		wanted := spec.Features
		if len(wanted) == 0 {
			wanted = ds.Columns()
		}
		set := make(map[string]struct{}, len(wanted))
		for _, w := range wanted {
			set[w] = struct{}{}
		}
		var cols []string
		for _, c := range ds.NumericColumns() {
			if _, ok := set[c]; ok {
				cols = append(cols, c)
			}
		}
		if len(cols) < 2 {
			return fail(ReasonInsufficientNumeric, "")
		}
		return Selection{Kind: Heatmap, Columns: cols}, nil

	case DecisionTree:
		if spec.Target == "" {
			return fail(ReasonMissingTarget, "")
		}
		features := numericIn(ds, spec.Features, spec.Target)
		if len(features) == 0 {
			return fail(ReasonNoNumericFeatures, "")
		}
		return Selection{Kind: DecisionTree, Features: features, Target: spec.Target}, nil
	}

	return fail(ReasonUnknownKind, spec.Kind.String())
}

// numericIn keeps the numeric names of want in the order given, skipping
// duplicates and exclude.
func numericIn(ds *dataset.Dataset, want []string, exclude string) []string {
	seen := make(map[string]bool, len(want))
	var out []string
	for _, w := range want {
		if w == exclude || seen[w] || !ds.IsNumeric(w) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
