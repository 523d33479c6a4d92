package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
// The REPL parses each line into a fresh QueryOptions with the same flags.
type QueryOptions struct {
	Metrics     []string
	GroupBy     []string
	Path        string
	Start       string
	End         string
	Granularity string
	Where       string
	Limit       int
	OrderBy     []string
	Explain     bool
}

// bindQueryFlags registers the query flags on fs.
func bindQueryFlags(fs *pflag.FlagSet, opts *QueryOptions) {
	fs.StringSliceVarP(&opts.Metrics, "metrics", "m", nil, "Metrics to query (comma separated)")
	fs.StringSliceVarP(&opts.GroupBy, "group-by", "g", nil, "Dimensions to group by (comma separated)")
	fs.StringVar(&opts.Path, "path", "", "Grouping path, slash separated")
	fs.StringVar(&opts.Start, "start", "", "Start of the time range (inclusive)")
	fs.StringVar(&opts.End, "end", "", "End of the time range (inclusive)")
	fs.StringVar(&opts.Granularity, "granularity", "", "Time granularity: day, week, month, quarter, year, ...")
	fs.StringVar(&opts.Where, "where", "", "Filter expression in the semantic layer's syntax")
	fs.IntVar(&opts.Limit, "limit", 0, "Maximum number of rows (0 for no limit)")
	fs.StringSliceVar(&opts.OrderBy, "order", nil, "Order by columns; prefix with - for descending")
	fs.BoolVar(&opts.Explain, "explain", false, "Show the generated SQL instead of running the query")
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [metric...]",
		Short: "Query metrics through the semantic layer",
		Long: `Query one or more metrics, grouped by dimensions and filtered in time.

Metrics can be given as arguments or with --metrics. With --explain the
semantic layer only compiles the query and the generated SQL is shown.

When invoked without metrics on a terminal, enters interactive REPL mode.`,
		Example: `  # Revenue per day
  datus-semantic query revenue --group-by metric_time__day --limit 5

  # Two metrics for January, ordered by revenue
  datus-semantic query -m revenue,order_count -g customer__country \
    --start 2024-01-01 --end 2024-01-31 --order -revenue

  # Show the SQL without running it
  datus-semantic query revenue --explain

  # Interactive mode
  datus-semantic query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Metrics = append(opts.Metrics, args...)
			return runQuery(cmd, opts)
		},
	}

	bindQueryFlags(cmd.Flags(), opts)

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	if len(opts.Metrics) == 0 {
		if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
			a, err := cmdCtx.NewAdapter()
			if err != nil {
				return err
			}
			return runQueryREPL(cmd, cmdCtx, a)
		}
		return errors.New("at least one metric is required\nHint: Pass metrics as arguments or with --metrics")
	}

	req, err := opts.Request()
	if err != nil {
		return err
	}

	a, err := cmdCtx.NewAdapter()
	if err != nil {
		return err
	}
	return executeQuery(cmd.Context(), a, req, cmdCtx.Renderer)
}

// Request converts the options into a query request.
func (o *QueryOptions) Request() (core.QueryRequest, error) {
	req := core.QueryRequest{
		Metrics:    o.Metrics,
		Dimensions: o.GroupBy,
		Path:       splitPath(o.Path),
		Where:      o.Where,
		Limit:      o.Limit,
		OrderBy:    o.OrderBy,
		DryRun:     o.Explain,
	}

	if o.Start != "" || o.End != "" || o.Granularity != "" {
		tr := &core.TimeRange{Start: o.Start, End: o.End}
		if o.Granularity != "" {
			g, ok := core.ParseGranularity(o.Granularity)
			if !ok {
				return core.QueryRequest{}, fmt.Errorf("unknown time granularity %q", o.Granularity)
			}
			tr.Granularity = g
		}
		req.TimeRange = tr
	}

	if err := req.Validate(); err != nil {
		return core.QueryRequest{}, err
	}
	return req, nil
}

func executeQuery(ctx context.Context, a adapter.Adapter, req core.QueryRequest, r *output.Renderer) error {
	result, err := a.QueryMetrics(ctx, req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderQueryResult(r, result, req.DryRun)
}

func renderQueryResult(r *output.Renderer, result *core.QueryResult, explain bool) error {
	if ok, err := r.Structured(result); ok {
		return err
	}

	if explain {
		sql, _ := result.Metadata["sql"].(string)
		switch r.EffectiveMode() {
		case output.ModeText:
			r.Header(1, "Generated SQL")
			r.Println(sql)
			return nil
		case output.ModeMarkdown:
			r.Header(1, "Generated SQL")
			r.Println("```sql")
			r.Println(sql)
			r.Println("```")
			return nil
		}
	}

	return r.Table(result.Columns, result.Data)
}
