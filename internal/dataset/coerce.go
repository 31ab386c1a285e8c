package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingMarkers are the cell values read as "no value", matching what
// common CSV readers treat as NA by default.
var missingMarkers = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"<NA>":     {},
	"#N/A":     {},
	"#NA":      {},
	"#N/A N/A": {},
	"-1.#IND":  {},
	"1.#IND":   {},
	"-1.#QNAN": {},
	"1.#QNAN":  {},
}

// IsMissing reports whether a raw cell is a missing-value marker.
func IsMissing(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

// Coerce parses a cell as a finite number. Missing markers, unparseable
// text and infinities all yield ok == false.
func Coerce(s string) (float64, bool) {
	if IsMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Floats coerces every cell of a column, using NaN for cells that fail.
func (d *Dataset) Floats(name string) ([]float64, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(d.rows))
	for r, row := range d.rows {
		v, ok := Coerce(row[i])
		if !ok {
			v = math.NaN()
		}
		out[r] = v
	}
	return out, nil
}

// CompleteIndex returns the indices of rows where every named column
// coerces to a number.
func (d *Dataset) CompleteIndex(names ...string) ([]int, error) {
	cols := make([]int, len(names))
	for j, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cols[j] = i
	}

	idx := make([]int, 0, len(d.rows))
rows:
	for r, row := range d.rows {
		for _, c := range cols {
			if _, ok := Coerce(row[c]); !ok {
				continue rows
			}
		}
		idx = append(idx, r)
	}
	return idx, nil
}

// CompleteRows is the shared row-cleaning step for numeric charts: it
// coerces the named columns and keeps only rows where all of them are
// numbers. The result is indexed [column][row], columns in argument order.
func (d *Dataset) CompleteRows(names ...string) ([][]float64, error) {
	idx, err := d.CompleteIndex(names...)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(names))
	for j, name := range names {
		c := d.index[name]
		vals := make([]float64, len(idx))
		for k, r := range idx {
			vals[k], _ = Coerce(d.rows[r][c])
		}
		out[j] = vals
	}
	return out, nil
}
