package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/internal/config"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapters/metricflow"
	"github.com/spf13/cobra"
)

// versionProbeTimeout bounds the '<cli> --version' probe.
const versionProbeTimeout = 30 * time.Second

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the semantic layer can be reached",
		Long: `Check the configuration and environment the adapter depends on.

The doctor command reports:
- Configuration: config file, adapter type, namespace
- Environment: executable on PATH, project root, tool version

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON/YAML: Machine-readable format`,
		Example: `  # Run all checks
  datus-semantic doctor

  # Output as JSON
  datus-semantic doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			out := runDoctorChecks(cmd.Context(), cmdCtx)
			if err := renderDoctor(cmdCtx.Renderer, out); err != nil {
				return err
			}
			if !out.Healthy {
				return fmt.Errorf("%d checks failed", out.Failed)
			}
			return nil
		},
	}
}

// DoctorOutput is the structured output of the doctor command.
type DoctorOutput struct {
	Checks  []HealthCheck `json:"checks" yaml:"checks"`
	Healthy bool          `json:"healthy" yaml:"healthy"`
	Failed  int           `json:"failed" yaml:"failed"`
}

// HealthCheck is a single doctor check.
type HealthCheck struct {
	Name   string `json:"name" yaml:"name"`
	Group  string `json:"group" yaml:"group"`
	Status string `json:"status" yaml:"status"` // "pass", "warn", "error"
	Detail string `json:"detail" yaml:"detail"`
}

func runDoctorChecks(ctx context.Context, cmdCtx *CommandContext) *DoctorOutput {
	cfg := cmdCtx.Cfg
	var checks []HealthCheck
	add := func(group, name, status, detail string) {
		checks = append(checks, HealthCheck{Name: name, Group: group, Status: status, Detail: detail})
	}

	// Configuration
	if cfg.File != "" {
		add("configuration", "Config file", statusPass, cfg.File)
	} else {
		add("configuration", "Config file", statusWarn, "no "+config.ConfigFileName+" found; using flags and environment")
	}

	if adapter.IsRegistered(cfg.Adapter.Type) {
		add("configuration", "Adapter", statusPass, cfg.Adapter.Type)
	} else {
		add("configuration", "Adapter", statusError,
			fmt.Sprintf("unknown adapter type %q (available: %s)", cfg.Adapter.Type, strings.Join(adapter.ListAdapters(), ", ")))
	}

	if strings.TrimSpace(cfg.Adapter.Namespace) != "" {
		add("configuration", "Namespace", statusPass, cfg.Adapter.Namespace)
	} else {
		add("configuration", "Namespace", statusError, "adapter.namespace is not set")
	}

	// Environment
	if cfg.Adapter.Type == metricflow.ServiceType {
		params, err := metricflow.ParseParams(cfg.Adapter.Params)
		if err != nil {
			add("environment", "Parameters", statusError, err.Error())
		} else {
			checkMetricFlowEnv(ctx, params, add)
		}
	}

	out := &DoctorOutput{Checks: checks, Healthy: true}
	for _, c := range checks {
		if c.Status == statusError {
			out.Failed++
			out.Healthy = false
		}
	}
	return out
}

func checkMetricFlowEnv(ctx context.Context, params *metricflow.Params, add func(group, name, status, detail string)) {
	if params.ProjectRoot != "" {
		if info, err := os.Stat(params.ProjectRoot); err != nil || !info.IsDir() {
			add("environment", "Project root", statusError, params.ProjectRoot+" is not a directory")
		} else {
			add("environment", "Project root", statusPass, params.ProjectRoot)
		}
	}

	path, err := exec.LookPath(params.CLIPath)
	if err != nil {
		add("environment", "Executable", statusError, fmt.Sprintf("%s not found: %v", params.CLIPath, err))
		return
	}
	add("environment", "Executable", statusPass, path)

	out, err := adapter.NewExecRunner().Run(ctx, adapter.Invocation{
		Operation: "version",
		Path:      path,
		Args:      []string{"--version"},
		Dir:       params.ProjectRoot,
		Timeout:   versionProbeTimeout,
	})
	switch {
	case err != nil:
		add("environment", "Version", statusError, err.Error())
	case out.ExitCode != 0:
		add("environment", "Version", statusWarn, fmt.Sprintf("--version exited with code %d", out.ExitCode))
	default:
		version, _, _ := strings.Cut(strings.TrimSpace(out.Stdout), "\n")
		add("environment", "Version", statusPass, version)
	}
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	if ok, err := r.Structured(out); ok {
		return err
	}

	titleCaser := cases.Title(language.English)
	currentGroup := ""

	switch r.EffectiveMode() {
	case output.ModeCSV:
		rows := make([][]any, 0, len(out.Checks))
		for _, c := range out.Checks {
			rows = append(rows, []any{c.Group, c.Name, c.Status, c.Detail})
		}
		return r.Table([]string{"group", "check", "status", "detail"}, rows)

	case output.ModeMarkdown:
		r.Header(1, "Semantic Adapter Health Report")
		for _, c := range out.Checks {
			if c.Group != currentGroup {
				currentGroup = c.Group
				r.Header(2, titleCaser.String(currentGroup))
			}
			r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(c.Status), c.Name, c.Detail)
		}
		r.Println("")

	default:
		r.Header(1, "Semantic Adapter Health Report")
		for _, c := range out.Checks {
			if c.Group != currentGroup {
				currentGroup = c.Group
				r.Println("")
				r.Println(r.Styles.Name.Render("   " + titleCaser.String(currentGroup)))
				r.Println(r.Muted("   " + strings.Repeat("-", 40)))
			}
			icon := r.Styles.Success.Render("✓")
			switch c.Status {
			case statusWarn:
				icon = r.Styles.Warning.Render("!")
			case statusError:
				icon = r.Styles.Error.Render("✗")
			}
			r.Printf("   %s %s: %s\n", icon, c.Name, c.Detail)
		}
		r.Println("")
	}

	if out.Healthy {
		r.Success("All checks passed")
	}
	return nil
}
