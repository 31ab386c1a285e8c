package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"mlviz/internal/dataset"
)

// CorrelationMatrix is a symmetric Pearson matrix over named columns.
// Values[i][j] is NaN when the pair has fewer than two complete rows or
// either side is constant over them.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Correlate computes pairwise-complete Pearson correlations between the
// named columns of ds. The diagonal is 1 by definition.
func Correlate(ds *dataset.Dataset, columns []string) (CorrelationMatrix, error) {
	n := len(columns)
	m := CorrelationMatrix{
		Columns: append([]string(nil), columns...),
		Values:  make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pair, err := ds.CompleteRows(columns[i], columns[j])
			if err != nil {
				return CorrelationMatrix{}, err
			}
			r := pearson(pair[0], pair[1])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	// floating error can push a perfect fit just past ±1
	return math.Max(-1, math.Min(1, r))
}

// At returns the correlation between two named columns.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}
