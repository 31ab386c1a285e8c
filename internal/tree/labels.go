package tree

import (
	"sort"
	"strconv"
)

// Labels maps class names to the integer codes the tree is trained on.
// Names[i] is the class with code i.
type Labels struct {
	Names []string       `json:"names"`
	Codes map[string]int `json:"codes"`
}

// EncodeLabels codes categorical labels by the sorted order of their
// distinct values, so the mapping does not depend on row order.
func EncodeLabels(values []string) ([]int, Labels) {
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	names := make([]string, 0, len(distinct))
	for v := range distinct {
		names = append(names, v)
	}
	sort.Strings(names)
	return encode(values, names)
}

// EncodeNumericLabels codes numeric labels by ascending value. Names are
// the shortest decimal form of each value.
func EncodeNumericLabels(values []float64) ([]int, Labels) {
	distinct := make(map[float64]struct{}, len(values))
	for _, v := range values {
		distinct[v] = struct{}{}
	}
	nums := make([]float64, 0, len(distinct))
	for v := range distinct {
		nums = append(nums, v)
	}
	sort.Float64s(nums)

	names := make([]string, len(nums))
	for i, v := range nums {
		names[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	asText := make([]string, len(values))
	for i, v := range values {
		asText[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return encode(asText, names)
}

func encode(values, names []string) ([]int, Labels) {
	l := Labels{Names: names, Codes: make(map[string]int, len(names))}
	for i, n := range names {
		l.Codes[n] = i
	}
	codes := make([]int, len(values))
	for i, v := range values {
		codes[i] = l.Codes[v]
	}
	return codes, l
}
