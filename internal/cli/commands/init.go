package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/internal/config"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapters/metricflow"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a semantic.yaml configuration file",
		Long: `Create a semantic.yaml configuration file for the adapter.

The file is written to the given directory (default: current directory),
which is also used as the MetricFlow project root. The global --namespace
and --cli-path flags fill in the written values; the namespace defaults to
the directory name.`,
		Example: `  # Initialize in the current directory
  datus-semantic init --namespace sales

  # Initialize a dbt project in another directory
  datus-semantic init ./analytics --namespace finance

  # Force overwrite existing config
  datus-semantic init --namespace sales --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig(cmd)
			data := configTemplateData{
				Adapter:   metricflow.ServiceType,
				Namespace: cfg.Adapter.Namespace,
				CLIPath:   metricflow.DefaultCLIPath,
				Timeout:   metricflow.DefaultTimeout,
			}
			if data.Namespace == "" {
				data.Namespace = filepath.Base(absOrSelf(dir))
			}
			if cliPath, ok := cfg.Adapter.Params["cli_path"].(string); ok && cliPath != "" {
				data.CLIPath = cliPath
			}

			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
			return runInit(r, dir, data, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, data configTemplateData, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	content, err := renderConfigTemplate(data)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.Success("Created " + configPath)
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Check cli_path and project_root in " + config.ConfigFileName)
	r.Println("  2. Run 'datus-semantic doctor' to check the setup")
	r.Println("  3. Run 'datus-semantic metrics' to list metrics")

	return nil
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
