package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mlviz/internal/chart"
	"mlviz/internal/dataset"
	"mlviz/internal/models"
	"mlviz/internal/stats"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	CSV      string
	Kind     string
	Features []string
	Target   string
	Format   string
	Out      string
}

// RenderOutput is the JSON summary printed after a chart is written.
type RenderOutput struct {
	ChartType   string                    `json:"chart_type"`
	Path        string                    `json:"path"`
	Format      string                    `json:"format"`
	DPI         int                       `json:"dpi"`
	Points      int                       `json:"points"`
	Selection   chart.Selection           `json:"selection"`
	Regression  *stats.LinearFit          `json:"regression,omitempty"`
	Correlation *models.CorrelationMatrix `json:"correlation,omitempty"`
	Tree        *chart.TreeSummary        `json:"tree,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one chart from a CSV file",
		Long: `Render a chart from a CSV file and write it at print resolution.

A JSON summary of the chart statistics is printed to stdout.`,
		Example: `  # Scatter of two columns
  mlviz render --csv iris.csv --kind scatter --features sepal_length,petal_length

  # Correlation heatmap of every numeric column as PDF
  mlviz render --csv iris.csv --kind heatmap --format pdf --out iris.pdf

  # Decision tree predicting species
  mlviz render --csv iris.csv --kind decision_tree --features sepal_length,petal_length --target species`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.CSV, "csv", "", "CSV file to chart")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Chart type (scatter|regression|heatmap|decision_tree)")
	cmd.Flags().StringSliceVar(&opts.Features, "features", nil, "Feature columns")
	cmd.Flags().StringVar(&opts.Target, "target", "", "Target column for decision_tree")
	cmd.Flags().StringVar(&opts.Format, "format", "png", "Output format (png|pdf)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Output path (default: <kind>.<format> next to the CSV)")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("kind")

	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, k := range chart.Kinds() {
			names = append(names, k.String())
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	logger := GetLogger(cmd.Context())

	kind, err := chart.ParseKind(opts.Kind)
	if err != nil {
		return err
	}
	format, err := chart.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	ds, err := dataset.LoadFile(opts.CSV)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.CSV, err)
	}

	out := opts.Out
	if out == "" {
		out = filepath.Join(filepath.Dir(opts.CSV), kind.String()+format.Ext())
	}

	res, err := chart.NewDispatcher(logger).Dispatch(ds, chart.Request{
		Spec:   chart.Spec{Kind: kind, Features: opts.Features, Target: opts.Target},
		Mode:   chart.File,
		Format: format,
		Path:   out,
	})
	if err != nil {
		var ce *chart.ChartError
		if errors.As(err, &ce) && !ce.UserFacing() {
			logger.Error("render failed", "kind", kind.String(), "error", err)
		}
		return err
	}
	logger.Info("chart written", "path", res.Path, "format", string(res.Format), "points", res.Points)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(RenderOutput{
		ChartType:   kind.String(),
		Path:        res.Path,
		Format:      string(res.Format),
		DPI:         res.DPI,
		Points:      res.Points,
		Selection:   res.Selection,
		Regression:  res.Regression,
		Correlation: models.NewCorrelationMatrix(res.Correlation),
		Tree:        res.Tree,
	})
}
