package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Print the datus-semantic release, the commit it was built from and the Go runtime.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "datus-semantic v%s\n", info.Version)
			_, _ = fmt.Fprintf(w, "  commit:   %s\n", orUnknown(info.GitCommit))
			_, _ = fmt.Fprintf(w, "  built:    %s\n", orUnknown(info.BuildDate))
			_, _ = fmt.Fprintf(w, "  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(w, "  adapters: %s\n", orUnknown(strings.Join(adapter.ListAdapters(), ", ")))
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
