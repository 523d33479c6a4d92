package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/output"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/spf13/cobra"
)

// ErrValidationFailed is returned by the validate command when the
// semantic configuration has errors, so the process exits non-zero.
var ErrValidationFailed = errors.New("semantic validation failed")

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Watch    bool
	Debounce time.Duration
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the semantic layer configuration",
		Long: `Validate the semantic model and metric definitions of the project.

Issues are listed with their severity. The command exits with a non-zero
status when the configuration is invalid.

With --watch, validation re-runs whenever a YAML file under the project
root changes, until interrupted.`,
		Example: `  # Validate once
  datus-semantic validate

  # Re-validate on every change
  datus-semantic validate --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-validate when project files change")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 500*time.Millisecond, "Quiet period before re-validating in watch mode")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	a, err := cmdCtx.NewAdapter()
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	if !opts.Watch {
		return validateOnce(cmd.Context(), a, r)
	}

	validate := func(ctx context.Context) error {
		err := validateOnce(ctx, a, r)
		if errors.Is(err, ErrValidationFailed) {
			return nil
		}
		if err != nil && ctx.Err() == nil {
			r.Error(err.Error())
			return nil
		}
		return err
	}

	if err := validate(cmd.Context()); err != nil {
		return err
	}
	root := cmdCtx.ProjectRoot()
	r.Println(r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", root)))
	return watchAndValidate(cmd.Context(), root, opts.Debounce, cmdCtx.Logger, validate)
}

func validateOnce(ctx context.Context, a adapter.Adapter, r *output.Renderer) error {
	res, err := a.ValidateSemantic(ctx)
	if err != nil {
		return fmt.Errorf("validation could not run: %w", err)
	}
	if err := renderValidation(r, res); err != nil {
		return err
	}
	if !res.Valid {
		return ErrValidationFailed
	}
	return nil
}

func renderValidation(r *output.Renderer, res *core.ValidationResult) error {
	if ok, err := r.Structured(res); ok {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeCSV:
		rows := make([][]any, 0, len(res.Issues))
		for _, issue := range res.Issues {
			rows = append(rows, []any{issue.Severity.String(), issue.Message})
		}
		return r.Table([]string{"severity", "message"}, rows)

	case output.ModeMarkdown:
		r.Header(1, "Validation")
		r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%t", res.Valid)))
		r.Println(output.FormatKeyValue("Errors", fmt.Sprintf("%d", res.Count(core.SeverityError))))
		r.Println(output.FormatKeyValue("Warnings", fmt.Sprintf("%d", res.Count(core.SeverityWarning))))
		if len(res.Issues) > 0 {
			r.Println("")
			r.Header(2, "Issues")
			for _, issue := range res.Issues {
				r.Printf("- **%s:** %s\n", issue.Severity, issue.Message)
			}
		}
		return nil

	default:
		if res.Valid {
			r.Success("Semantic configuration is valid")
		} else {
			r.Println(r.Styles.Error.Render(fmt.Sprintf("✗ Semantic configuration is invalid (%d errors)", res.Count(core.SeverityError))))
		}
		for _, issue := range res.Issues {
			label := r.Styles.ForSeverity(issue.Severity).Render(fmt.Sprintf("%-7s", issue.Severity))
			r.Printf("  %s %s\n", label, issue.Message)
		}
		return nil
	}
}
