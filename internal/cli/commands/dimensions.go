package commands

import (
	"fmt"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewDimensionsCommand creates the dimensions command.
func NewDimensionsCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "dimensions <metric>",
		Short: "List the dimensions a metric can be grouped by",
		Long: `List the dimensions available for a metric.

With --path, only dimensions reached through the given entity path are
shown (customer/region keeps customer__region__name); dimensions without
an entity prefix, such as metric_time, are always shown.`,
		Example: `  # All dimensions of revenue
  datus-semantic dimensions revenue

  # Dimensions reached through the customer entity
  datus-semantic dimensions revenue --path customer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			a, err := cmdCtx.NewAdapter()
			if err != nil {
				return err
			}

			dims, err := a.GetDimensions(cmd.Context(), args[0], splitPath(path))
			if err != nil {
				return fmt.Errorf("failed to get dimensions: %w", err)
			}
			return renderDimensions(cmdCtx.Renderer, args[0], dims)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Entity path, slash separated (e.g. customer/region)")

	return cmd
}

func renderDimensions(r *output.Renderer, metric string, dims []string) error {
	if ok, err := r.Structured(dims); ok {
		return err
	}

	if r.EffectiveMode() != output.ModeCSV {
		r.Header(1, fmt.Sprintf("Dimensions of %s (%d)", metric, len(dims)))
	}

	rows := make([][]any, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, []any{d})
	}
	return r.Table([]string{"dimension"}, rows)
}
