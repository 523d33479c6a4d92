package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const replPrompt = "semantic> "

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, a adapter.Adapter) error {
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     replHistoryFile(),
		AutoComplete:    newMetricCompleter(ctx, a),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("Semantic query REPL (%s, namespace %s)\n", a.ServiceType(), cmdCtx.Cfg.Adapter.Namespace)
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, a, r, line); quit {
				break
			}
			continue
		}

		if err := runREPLQuery(ctx, a, r, line); err != nil {
			_, _ = fmt.Fprintf(r.ErrWriter(), "Error: %v\n", err)
		}
		r.Println("")
	}

	return nil
}

// runREPLQuery parses a shell-quoted line with the query flags and runs it.
// Bare words are metric names.
func runREPLQuery(ctx context.Context, a adapter.Adapter, r *output.Renderer, line string) error {
	opts, err := parseQueryLine(line)
	if err != nil {
		return err
	}
	req, err := opts.Request()
	if err != nil {
		return err
	}
	return executeQuery(ctx, a, req, r)
}

func parseQueryLine(line string) (*QueryOptions, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("invalid quoting: %w", err)
	}

	opts := &QueryOptions{}
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindQueryFlags(fs, opts)
	if err := fs.Parse(words); err != nil {
		return nil, err
	}
	opts.Metrics = append(opts.Metrics, fs.Args()...)
	return opts, nil
}

// handleDotCommand runs a REPL command and reports whether the REPL should exit.
func handleDotCommand(ctx context.Context, a adapter.Adapter, r *output.Renderer, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	errW := r.ErrWriter()

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.Writer())

	case ".metrics":
		metrics, err := a.ListMetrics(ctx, nil, adapter.DefaultListLimit, 0)
		if err == nil {
			err = renderMetrics(r, metrics)
		}
		if err != nil {
			_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
		}

	case ".dimensions":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errW, "Usage: .dimensions <metric>")
			return false
		}
		dims, err := a.GetDimensions(ctx, parts[1], nil)
		if err == nil {
			err = renderDimensions(r, parts[1], dims)
		}
		if err != nil {
			_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
		}

	case ".validate":
		res, err := a.ValidateSemantic(ctx)
		if err == nil {
			err = renderValidation(r, res)
		}
		if err != nil {
			_, _ = fmt.Fprintf(errW, "Error: %v\n", err)
		}

	default:
		_, _ = fmt.Fprintf(errW, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .metrics              List metrics
  .dimensions <metric>  List dimensions of a metric
  .validate             Validate the semantic configuration
  .quit / .exit         Exit the REPL

Queries take the same flags as 'query':
  revenue --group-by metric_time__day --limit 5
  -m revenue,order_count -g customer__country --where "{{ Dimension('customer__country') }} = 'US'"
  revenue --explain

Tips:
  - Use arrow keys to navigate history
  - Tab completion works for metric names and flags
`
	_, _ = fmt.Fprintln(w, help)
}

// replHistoryFile returns a per-user history path, or "" to disable history.
func replHistoryFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "datus-semantic")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "query_history")
}

// newMetricCompleter completes dot-commands, query flags and metric names.
func newMetricCompleter(ctx context.Context, a adapter.Adapter) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface

	// Metric names are a convenience; a failing listing leaves them out.
	if metrics, err := a.ListMetrics(ctx, nil, adapter.DefaultListLimit, 0); err == nil {
		names := make([]readline.PrefixCompleterInterface, 0, len(metrics))
		for _, m := range metrics {
			names = append(names, readline.PcItem(m.Name))
		}
		items = append(items, names...)
		items = append(items, readline.PcItem(".dimensions", names...))
	} else {
		items = append(items, readline.PcItem(".dimensions"))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".metrics"),
		readline.PcItem(".validate"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("--metrics"),
		readline.PcItem("--group-by"),
		readline.PcItem("--where"),
		readline.PcItem("--limit"),
		readline.PcItem("--order"),
		readline.PcItem("--start"),
		readline.PcItem("--end"),
		readline.PcItem("--granularity"),
		readline.PcItem("--explain"),
	)

	return readline.NewPrefixCompleter(items...)
}
