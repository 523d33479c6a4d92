package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/internal/config"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/spf13/cobra"
)

// newAdapter builds the configured adapter. Tests replace it with a stub.
var newAdapter = adapter.NewAdapter

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger
// stored in the command's context by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// NewAdapter validates the configuration and builds the adapter it names.
func (c *CommandContext) NewAdapter() (adapter.Adapter, error) {
	if err := c.Cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a, err := newAdapter(c.Cfg.ToAdapterConfig(), c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s adapter: %w", c.Cfg.Adapter.Type, err)
	}
	return a, nil
}

// ProjectRoot returns the configured project root, or the working directory.
func (c *CommandContext) ProjectRoot() string {
	if root, ok := c.Cfg.Adapter.Params["project_root"].(string); ok && root != "" {
		return root
	}
	if abs, err := filepath.Abs("."); err == nil {
		return abs
	}
	return "."
}

// getConfig returns the config loaded by the root command, or loads one
// when a command runs standalone.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	if cfg, err := config.Load("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		Adapter:   config.AdapterSection{Type: config.DefaultAdapter},
		Output:    config.DefaultOutput,
		LogFormat: config.DefaultLogFormat,
	}
}

// splitPath parses a slash-separated grouping path ("finance/sales").
func splitPath(s string) []string {
	var path []string
	for _, part := range strings.Split(s, "/") {
		if part = strings.TrimSpace(part); part != "" {
			path = append(path, part)
		}
	}
	return path
}
