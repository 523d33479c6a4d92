package commands

import (
	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewAdaptersCommand creates the adapters command.
func NewAdaptersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List available semantic layer adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContext(cmd).Renderer
			names := adapter.ListAdapters()

			if ok, err := r.Structured(names); ok {
				return err
			}
			if r.EffectiveMode() != output.ModeCSV {
				r.Header(1, "Adapters")
			}
			rows := make([][]any, 0, len(names))
			for _, n := range names {
				rows = append(rows, []any{n})
			}
			return r.Table([]string{"adapter"}, rows)
		},
	}
}
