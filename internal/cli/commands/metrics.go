package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// MetricsOptions holds options for the metrics command.
type MetricsOptions struct {
	Path           string
	Limit          int
	Offset         int
	WithDimensions bool
	Concurrency    int
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand() *cobra.Command {
	opts := &MetricsOptions{}
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "List metrics defined in the semantic layer",
		Long: `List the metrics the semantic layer exposes for the configured namespace.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml, csv`,
		Example: `  # List the first 100 metrics
  datus-semantic metrics

  # Only metrics under a grouping path
  datus-semantic metrics --path finance/sales

  # Page through metrics as JSON
  datus-semantic metrics --limit 20 --offset 40 -o json

  # Include the full dimension list of every metric
  datus-semantic metrics --with-dimensions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMetrics(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "Grouping path, slash separated (e.g. finance/sales)")
	cmd.Flags().IntVar(&opts.Limit, "limit", adapter.DefaultListLimit, "Maximum number of metrics to return")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of metrics to skip")
	cmd.Flags().BoolVar(&opts.WithDimensions, "with-dimensions", false, "Fetch the dimensions of every listed metric")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 4, "Parallel dimension lookups with --with-dimensions")

	return cmd
}

func runMetrics(cmd *cobra.Command, opts *MetricsOptions) error {
	cmdCtx := NewCommandContext(cmd)
	a, err := cmdCtx.NewAdapter()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	metrics, err := a.ListMetrics(ctx, splitPath(opts.Path), opts.Limit, opts.Offset)
	if err != nil {
		return fmt.Errorf("failed to list metrics: %w", err)
	}

	if opts.WithDimensions {
		if err := fillDimensions(ctx, a, metrics, opts.Concurrency); err != nil {
			return err
		}
	}

	return renderMetrics(cmdCtx.Renderer, metrics)
}

// fillDimensions replaces each metric's dimension list with the full one,
// looking up at most concurrency metrics at a time.
func fillDimensions(ctx context.Context, a adapter.Adapter, metrics []core.MetricDefinition, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range metrics {
		g.Go(func() error {
			dims, err := a.GetDimensions(gctx, metrics[i].Name, nil)
			if err != nil {
				return fmt.Errorf("failed to get dimensions for %s: %w", metrics[i].Name, err)
			}
			metrics[i].Dimensions = dims
			return nil
		})
	}
	return g.Wait()
}

func renderMetrics(r *output.Renderer, metrics []core.MetricDefinition) error {
	if ok, err := r.Structured(metrics); ok {
		return err
	}

	if r.EffectiveMode() != output.ModeCSV {
		r.Header(1, fmt.Sprintf("Metrics (%d)", len(metrics)))
	}

	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		typ := ""
		if m.Type != nil {
			typ = string(*m.Type)
		}
		rows = append(rows, []any{m.Name, typ, m.Description, strings.Join(m.Dimensions, ", ")})
	}
	return r.Table([]string{"name", "type", "description", "dimensions"}, rows)
}
