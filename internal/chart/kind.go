// Package chart turns a dataset and a column choice into one of four fixed
// chart types, rendered as PNG or PDF.
package chart

import "fmt"

// Kind is the closed set of supported chart types.
type Kind int

const (
	Scatter Kind = iota + 1
	Regression
	Heatmap
	DecisionTree
)

var kindNames = map[Kind]string{
	Scatter:      "scatter",
	Regression:   "regression",
	Heatmap:      "heatmap",
	DecisionTree: "decision_tree",
}

// Kinds lists every chart kind in display order.
func Kinds() []Kind {
	return []Kind{Scatter, Regression, Heatmap, DecisionTree}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a wire token such as "decision_tree" to its Kind.
func ParseKind(token string) (Kind, error) {
	for k, name := range kindNames {
		if name == token {
			return k, nil
		}
	}
	return 0, &SelectionError{Reason: ReasonUnknownKind, Column: token}
}

// MarshalText encodes the kind as its wire token.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("chart: invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire token.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
