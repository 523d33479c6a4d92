package metricflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/kballard/go-shellquote"
)

// ServiceType is the registry key of the MetricFlow adapter.
const ServiceType = "metricflow"

// Adapter implements the adapter.Adapter interface on top of the MetricFlow CLI.
// It holds no mutable state; concurrent calls each spawn their own process.
type Adapter struct {
	adapter.BaseCLIAdapter

	params    *Params
	extraArgs []string
}

// Option customizes an Adapter at construction time.
type Option func(*Adapter)

// WithRunner replaces the subprocess runner, mainly for tests.
func WithRunner(r adapter.Runner) Option {
	return func(a *Adapter) {
		a.Runner = r
	}
}

// New creates a MetricFlow adapter from its configuration.
func New(cfg adapter.Config, logger *slog.Logger, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(cfg.Namespace) == "" {
		return nil, &adapter.ConfigError{Field: "namespace", Reason: "is required"}
	}

	params, err := ParseParams(cfg.Params)
	if err != nil {
		return nil, err
	}

	extra, err := shellquote.Split(params.ExtraArgs)
	if err != nil {
		return nil, &adapter.ConfigError{Field: "extra_args", Err: err}
	}

	a := &Adapter{
		BaseCLIAdapter: adapter.BaseCLIAdapter{
			Runner: adapter.WithTelemetry(adapter.NewExecRunner()),
			Cfg:    cfg,
			Logger: adapter.LoggerOrDiscard(logger).With("adapter", ServiceType, "namespace", cfg.Namespace),
		},
		params:    params,
		extraArgs: extra,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ServiceType returns the registry key of this adapter.
func (a *Adapter) ServiceType() string {
	return ServiceType
}

// Params returns the decoded adapter parameters.
func (a *Adapter) Params() Params {
	return *a.params
}

// invocation wraps subcommand args with the global flags every mf call carries.
func (a *Adapter) invocation(operation string, args []string) adapter.Invocation {
	full := make([]string, 0, len(args)+len(a.extraArgs)+6)
	full = append(full, "--namespace", a.Cfg.Namespace)
	full = append(full, a.extraArgs...)
	full = append(full, args...)
	if a.params.ProjectRoot != "" {
		full = append(full, "--project-root", a.params.ProjectRoot)
	}
	if a.params.Environment != "" {
		full = append(full, "--environment", a.params.Environment)
	}

	return adapter.Invocation{
		Operation: operation,
		Path:      a.params.CLIPath,
		Args:      full,
		Dir:       a.params.ProjectRoot,
		Env:       envPairs(a.params.Env),
		Timeout:   a.params.TimeoutDuration(),
	}
}

// ListMetrics lists metrics using 'mf list-metrics'.
// The path filter keeps metrics whose grouping path starts with path;
// offset and limit are applied afterwards, preserving the tool's order.
func (a *Adapter) ListMetrics(ctx context.Context, path []string, limit, offset int) ([]core.MetricDefinition, error) {
	if limit < 0 || offset < 0 {
		return nil, &adapter.RequestError{
			Operation: cmdListMetrics,
			Err:       fmt.Errorf("limit and offset must not be negative (limit=%d, offset=%d)", limit, offset),
		}
	}
	if limit == 0 {
		return []core.MetricDefinition{}, nil
	}

	out, err := a.Exec(ctx, a.invocation(cmdListMetrics, listMetricsArgs()))
	if err != nil {
		return nil, err
	}

	metrics, err := parseMetrics(out.Stdout)
	if err != nil {
		return nil, err
	}

	filtered := metrics[:0]
	for _, m := range metrics {
		if m.HasPathPrefix(path) {
			filtered = append(filtered, m)
		}
	}

	return paginate(filtered, limit, offset), nil
}

// GetDimensions lists the dimensions of a metric using 'mf list-dimensions'.
// With a path, only dimensions reachable through that entity path are kept;
// dimensions without an entity prefix (such as metric_time) always match.
func (a *Adapter) GetDimensions(ctx context.Context, metric string, path []string) ([]string, error) {
	if strings.TrimSpace(metric) == "" {
		return nil, &adapter.RequestError{Operation: cmdListDimensions, Err: errors.New("metric name is required")}
	}

	out, err := a.Exec(ctx, a.invocation(cmdListDimensions, listDimensionsArgs(metric)))
	if err != nil {
		return nil, err
	}

	dims, err := parseDimensions(out.Stdout)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return dims, nil
	}

	filtered := make([]string, 0, len(dims))
	for _, d := range dims {
		if dimensionOnPath(d, path) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// QueryMetrics runs 'mf query', or 'mf query --explain' for dry runs.
func (a *Adapter) QueryMetrics(ctx context.Context, req core.QueryRequest) (*core.QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &adapter.RequestError{Operation: cmdQuery, Err: err}
	}

	out, err := a.Exec(ctx, a.invocation(cmdQuery, queryArgs(req)))
	if err != nil {
		return nil, err
	}

	if req.DryRun {
		return parseExplain(out.Stdout)
	}

	result, err := parseQueryResult(out.Stdout)
	if err != nil {
		return nil, err
	}
	if len(req.Path) > 0 {
		if result.Metadata == nil {
			result.Metadata = map[string]any{}
		}
		result.Metadata["path"] = req.Path
	}
	return result, nil
}

// ValidateSemantic validates the MetricFlow configuration using 'mf validate-configs'.
// A failed validation is reported through the result; only invocation
// problems (missing executable, timeout, cancellation) are errors.
func (a *Adapter) ValidateSemantic(ctx context.Context) (*core.ValidationResult, error) {
	out, err := a.Run(ctx, a.invocation(cmdValidate, validateArgs()))
	if err != nil {
		return nil, err
	}

	if out.ExitCode == 0 {
		return &core.ValidationResult{
			Valid:  true,
			Issues: parseValidationWarnings(out.Stdout + "\n" + out.Stderr),
		}, nil
	}

	report := out.Stderr
	if strings.TrimSpace(report) == "" {
		report = out.Stdout
	}
	issues := parseValidationIssues(report)
	if len(issues) == 0 {
		issues = []core.ValidationIssue{{
			Severity: core.SeverityError,
			Message:  fmt.Sprintf("%s exited with code %d", cmdValidate, out.ExitCode),
		}}
	}

	return &core.ValidationResult{Valid: false, Issues: issues}, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) || end < offset {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

// dimensionOnPath reports whether a dimension's entity links start with path.
// MetricFlow joins entity links with a double underscore (customer__region)
// and may append a time granularity (customer__signup_date__month).
func dimensionOnPath(dimension string, path []string) bool {
	parts := strings.Split(dimension, "__")
	if len(parts) > 1 {
		if _, ok := core.ParseGranularity(parts[len(parts)-1]); ok {
			parts = parts[:len(parts)-1]
		}
	}
	entities := parts[:len(parts)-1]
	if len(entities) == 0 {
		return true
	}
	if len(entities) < len(path) {
		return false
	}
	for i, p := range path {
		if entities[i] != p {
			return false
		}
	}
	return true
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
