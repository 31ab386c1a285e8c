package chart

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"mlviz/internal/dataset"
)

// Mode selects where a rendered chart goes.
type Mode int

const (
	// Inline returns PNG bytes for embedding.
	Inline Mode = iota
	// File persists the chart at Request.Path and also returns its bytes.
	File
)

func (m Mode) String() string {
	if m == File {
		return "file"
	}
	return "inline"
}

// Request is one dispatch call.
type Request struct {
	Spec
	Mode Mode
	// Format is used in File mode; Inline always produces PNG.
	Format Format
	// Path is the destination in File mode.
	Path string
}

// Result is a rendered chart.
type Result struct {
	*Chart
	Kind      Kind
	Selection Selection
	Image     []byte
	Format    Format
	DPI       int
	// Path is set in File mode.
	Path string
}

// Dispatcher runs selection and the matching builder for each request.
// It holds no per-request state and may be shared.
type Dispatcher struct {
	logger   *slog.Logger
	builders map[Kind]Builder
}

// NewDispatcher returns a dispatcher with the four standard builders.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		builders: map[Kind]Builder{
			Scatter:      ScatterBuilder{},
			Regression:   RegressionBuilder{},
			Heatmap:      HeatmapBuilder{},
			DecisionTree: DecisionTreeBuilder{},
		},
	}
}

// Builder returns the builder for k.
func (d *Dispatcher) Builder(k Kind) (Builder, bool) {
	b, ok := d.builders[k]
	return b, ok
}

// Dispatch validates req against ds, builds the chart and encodes it.
// SelectionError and ChartError are returned unchanged.
func (d *Dispatcher) Dispatch(ds *dataset.Dataset, req Request) (*Result, error) {
	b, ok := d.builders[req.Kind]
	if !ok {
		return nil, &SelectionError{Kind: req.Kind, Reason: ReasonUnknownKind, Column: req.Kind.String()}
	}

	sel, err := Select(ds, req.Spec)
	if err != nil {
		return nil, err
	}

	c, err := b.Build(ds, sel)
	if err != nil {
		return nil, err
	}

	res := &Result{Chart: c, Kind: req.Kind, Selection: sel, Format: PNG, DPI: InlineDPI}
	if req.Mode == File {
		res.DPI = FileDPI
		if req.Format != "" {
			res.Format = req.Format
		}
	}

	img, err := EncodeBytes(c.Plot, c.Width, c.Height, res.Format, res.DPI)
	if err != nil {
		return nil, &ChartError{Kind: req.Kind, Reason: ReasonRenderFailed, Err: err}
	}
	res.Image = img

	if req.Mode == File {
		if req.Path == "" {
			return nil, &ChartError{Kind: req.Kind, Reason: ReasonWriteFailed, Err: errors.New("no output path")}
		}
		if err := writeFile(req.Path, img); err != nil {
			return nil, &ChartError{Kind: req.Kind, Reason: ReasonWriteFailed, Err: err}
		}
		res.Path = req.Path
	}

	d.logger.Debug("chart rendered",
		"kind", req.Kind.String(),
		"mode", req.Mode.String(),
		"format", string(res.Format),
		"points", c.Points,
		"bytes", len(img))
	return res, nil
}

// writeFile writes through a temp file in the same directory so a failed
// write never leaves a truncated chart at path.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".chart-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := bytes.NewReader(data).WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
