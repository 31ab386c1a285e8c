// Package dataset loads delimited tabular text into an in-memory table and
// answers the type questions the chart layer asks of it.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Kind is the inferred type category of a column.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// LoadError reports a source that could not be read or parsed as CSV.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load dataset: %v", e.Err)
	}
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrEmpty is returned when the source has no header row.
var ErrEmpty = errors.New("no header row")

// Dataset is an ordered set of named columns with a fixed row count.
// It is read-only after construction and safe to share between goroutines.
type Dataset struct {
	headers []string
	kinds   []Kind
	index   map[string]int
	rows    [][]string
}

// Load reads CSV text with a header row. Rows shorter than the header are
// padded with missing cells; longer rows are rejected.
func Load(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, &LoadError{Err: ErrEmpty}
	}
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Err: err}
		}
		rows = append(rows, record)
	}

	return FromRecords(headers, rows)
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer file.Close()

	ds, err := Load(file)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return ds, nil
}

// FromRecords builds a dataset from a header and string rows. Duplicate
// header names are made unique by suffixing ".1", ".2", ...
func FromRecords(headers []string, rows [][]string) (*Dataset, error) {
	if len(headers) == 0 {
		return nil, &LoadError{Err: ErrEmpty}
	}

	d := &Dataset{
		headers: uniqueHeaders(headers),
		index:   make(map[string]int, len(headers)),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, h := range d.headers {
		d.index[h] = i
	}

	for n, record := range rows {
		if len(record) > len(d.headers) {
			return nil, &LoadError{Err: fmt.Errorf("row %d: expected %d fields, saw %d", n+2, len(d.headers), len(record))}
		}
		row := make([]string, len(d.headers))
		copy(row, record)
		d.rows = append(d.rows, row)
	}

	d.kinds = make([]Kind, len(d.headers))
	for i := range d.headers {
		d.kinds[i] = d.inferKind(i)
	}
	return d, nil
}

func uniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// inferKind marks a column numeric when every non-missing cell parses as a
// number. A column with no present cells is numeric as well.
func (d *Dataset) inferKind(col int) Kind {
	for _, row := range d.rows {
		val := row[col]
		if IsMissing(val) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err != nil {
			return Categorical
		}
	}
	return Numeric
}

// Columns returns all column names in file order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.headers...)
}

// NumericColumns returns the numeric column names in file order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for i, h := range d.headers {
		if d.kinds[i] == Numeric {
			out = append(out, h)
		}
	}
	return out
}

// Has reports whether name is a column of d.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Kind returns the inferred kind of a column.
func (d *Dataset) Kind(name string) (Kind, bool) {
	i, ok := d.index[name]
	if !ok {
		return "", false
	}
	return d.kinds[i], true
}

// IsNumeric reports whether name exists and is numeric.
func (d *Dataset) IsNumeric(name string) bool {
	k, ok := d.Kind(name)
	return ok && k == Numeric
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Values returns the raw cells of a column.
func (d *Dataset) Values(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]string, len(d.rows))
	for r, row := range d.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Records returns a copy of the data rows.
func (d *Dataset) Records() [][]string {
	out := make([][]string, len(d.rows))
	for i, row := range d.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// WriteCSV writes the header and rows as CSV.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.headers); err != nil {
		return err
	}
	if err := cw.WriteAll(d.rows); err != nil {
		return err
	}
	return cw.Error()
}
