// Package testutil provides shared test helpers.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// WriteFile writes content to name inside a fresh temp dir and returns
// the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// IrisCSV is a small mixed-type fixture with a categorical target.
const IrisCSV = `sepal_length,sepal_width,petal_length,species,note
5.1,3.5,1.4,setosa,a
4.9,3.0,1.4,setosa,b
4.7,3.2,1.3,setosa,
7.0,3.2,4.7,versicolor,c
6.4,3.2,4.5,versicolor,d
6.9,3.1,4.9,versicolor,e
6.3,3.3,6.0,virginica,f
5.8,2.7,5.1,virginica,g
7.1,3.0,5.9,virginica,h
`
