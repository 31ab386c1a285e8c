package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `id,height,weight,species,notes
1,1.5,50,cat,
2,1.7,NA,dog,ok
3,,61,dog,x
4,1.9,70.5,cat,
5,2.1,80,bird,y
`

func TestLoad(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, []string{"id", "height", "weight", "species", "notes"}, ds.Columns())
	assert.Equal(t, []string{"id", "height", "weight"}, ds.NumericColumns())

	kind, ok := ds.Kind("species")
	require.True(t, ok)
	assert.Equal(t, Categorical, kind)

	_, ok = ds.Kind("missing")
	assert.False(t, ok)
	assert.True(t, ds.IsNumeric("weight"))
	assert.False(t, ds.IsNumeric("notes"))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too many fields", "a,b\n1,2,3\n"},
		{"bare quote", "a,b\n1,\"2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			var le *LoadError
			require.True(t, errors.As(err, &le), "got %v", err)
		})
	}
}

func TestLoadFileSetsPath(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.csv"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Path, "absent.csv")

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1,2\n"), 0o600))
	_, err = LoadFile(path)
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.Path)
}

func TestShortRowsArePadded(t *testing.T) {
	ds, err := Load(strings.NewReader("a,b,c\n1,2\n3,4,5\n"))
	require.NoError(t, err)

	vals, err := ds.Values("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "5"}, vals)
	assert.True(t, ds.IsNumeric("c"))
}

func TestDuplicateHeaders(t *testing.T) {
	ds, err := Load(strings.NewReader("\ufeffx,x,x.1,x\n1,2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x.1", "x.1.1", "x.2"}, ds.Columns())
}

func TestAllMissingColumnIsNumeric(t *testing.T) {
	ds, err := Load(strings.NewReader("a,b\n1,\n2,NA\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.NumericColumns())
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{" 2 ", 2, true},
		{"-3e2", -300, true},
		{"", 0, false},
		{"NA", 0, false},
		{"nan", 0, false},
		{"abc", 0, false},
		{"inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := Coerce(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-12, tt.in)
		}
	}
}

func TestCompleteRowsDropsPairwise(t *testing.T) {
	ds, err := Load(strings.NewReader("x,y\n1,10\n2,20\n,30\n4,40\n5,50\n"))
	require.NoError(t, err)

	cols, err := ds.CompleteRows("x", "y")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, []float64{1, 2, 4, 5}, cols[0])
	assert.Equal(t, []float64{10, 20, 40, 50}, cols[1])

	idx, err := ds.CompleteIndex("y")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, idx)

	_, err = ds.CompleteRows("x", "nope")
	require.Error(t, err)
}

func TestCompleteRowsOnCategoricalColumn(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	cols, err := ds.CompleteRows("height", "species")
	require.NoError(t, err)
	assert.Empty(t, cols[0])
}

func TestFloats(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	vals, err := ds.Floats("weight")
	require.NoError(t, err)
	require.Len(t, vals, 5)
	assert.Equal(t, 50.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]), "NA should coerce to NaN")
}

func TestProfile(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	profile := ds.Profile()
	require.Len(t, profile, 5)

	assert.Equal(t, ColumnProfile{Name: "height", Kind: Numeric, NonMissing: 4, Missing: 1, DistinctCount: 4}, profile[1])
	assert.Equal(t, ColumnProfile{Name: "species", Kind: Categorical, NonMissing: 5, Missing: 0, DistinctCount: 3}, profile[3])
}

func TestWriteCSVRoundTrip(t *testing.T) {
	ds, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, ds.WriteCSV(&sb))

	again, err := Load(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, ds.Columns(), again.Columns())
	assert.Equal(t, ds.Records(), again.Records())
}
