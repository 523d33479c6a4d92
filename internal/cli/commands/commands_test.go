package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Datus-ai/datus-semantic-adapter/internal/cli/testutil"
	"github.com/Datus-ai/datus-semantic-adapter/internal/config"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter records requests and returns canned answers.
type stubAdapter struct {
	mu sync.Mutex

	metrics    []core.MetricDefinition
	dimensions map[string][]string
	result     *core.QueryResult
	validation *core.ValidationResult
	err        error

	listPath   []string
	listLimit  int
	listOffset int
	dimPath    []string
	request    core.QueryRequest
}

func (s *stubAdapter) ServiceType() string { return "stub" }

func (s *stubAdapter) ListMetrics(_ context.Context, path []string, limit, offset int) ([]core.MetricDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listPath, s.listLimit, s.listOffset = path, limit, offset
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.MetricDefinition(nil), s.metrics...), nil
}

func (s *stubAdapter) GetDimensions(_ context.Context, metric string, path []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimPath = path
	if s.err != nil {
		return nil, s.err
	}
	dims, ok := s.dimensions[metric]
	if !ok {
		return nil, &adapter.InvocationError{Operation: "list_dimensions", ExitCode: 1, Stderr: "unknown metric " + metric}
	}
	return dims, nil
}

func (s *stubAdapter) QueryMetrics(_ context.Context, req core.QueryRequest) (*core.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAdapter) ValidateSemantic(context.Context) (*core.ValidationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.validation, nil
}

// useStubAdapter makes commands build stub instead of the configured adapter.
func useStubAdapter(t *testing.T, stub adapter.Adapter) {
	t.Helper()
	orig := newAdapter
	newAdapter = func(adapter.Config, *slog.Logger) (adapter.Adapter, error) {
		return stub, nil
	}
	t.Cleanup(func() { newAdapter = orig })
}

func testConfig(outputMode string) *config.Config {
	return &config.Config{
		Adapter: config.AdapterSection{
			Type:      "metricflow",
			Namespace: "sales",
			Params:    map[string]any{},
		},
		Output:    outputMode,
		LogFormat: config.DefaultLogFormat,
	}
}

// runCommand executes cmd with cfg in its context and returns stdout and stderr.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(config.WithConfig(context.Background(), cfg))
	return stdout.String(), stderr.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewMetricsCommand(), "metrics", []string{"path", "limit", "offset", "with-dimensions", "concurrency"}},
		{NewDimensionsCommand(), "dimensions <metric>", []string{"path"}},
		{NewQueryCommand(), "query [metric...]", []string{"metrics", "group-by", "path", "start", "end", "granularity", "where", "limit", "order", "explain"}},
		{NewValidateCommand(), "validate", []string{"watch", "debounce"}},
		{NewDoctorCommand(), "doctor", nil},
		{NewAdaptersCommand(), "adapters", nil},
		{NewInitCommand(), "init [directory]", []string{"force"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewAdapter_InvalidConfig(t *testing.T) {
	cfg := testConfig("json")
	cfg.Adapter.Namespace = " "

	_, _, err := runCommand(t, NewMetricsCommand(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrConfig)
	assert.Contains(t, err.Error(), "adapter.namespace")
}

func TestNewAdapter_FactoryError(t *testing.T) {
	orig := newAdapter
	newAdapter = func(adapter.Config, *slog.Logger) (adapter.Adapter, error) {
		return nil, &adapter.ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	t.Cleanup(func() { newAdapter = orig })

	_, _, err := runCommand(t, NewValidateCommand(), testConfig("json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrConfig)
	assert.Contains(t, err.Error(), "failed to create metricflow adapter")
}

func TestMetricsCommand(t *testing.T) {
	simple := core.MetricTypeSimple
	stub := &stubAdapter{metrics: []core.MetricDefinition{
		{Name: "revenue", Type: &simple, Dimensions: []string{"metric_time"}},
		{Name: "order_count", Description: "Number of orders"},
	}}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewMetricsCommand(), testConfig("json"),
		"--path", "finance/sales", "--limit", "5", "--offset", "2")
	require.NoError(t, err)

	assert.Equal(t, []string{"finance", "sales"}, stub.listPath)
	assert.Equal(t, 5, stub.listLimit)
	assert.Equal(t, 2, stub.listOffset)

	var got []core.MetricDefinition
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "revenue", got[0].Name)
	require.NotNil(t, got[0].Type)
	assert.Equal(t, core.MetricTypeSimple, *got[0].Type)
}

func TestMetricsCommand_DefaultsAndMarkdown(t *testing.T) {
	stub := &stubAdapter{metrics: []core.MetricDefinition{{Name: "revenue"}}}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewMetricsCommand(), testConfig("auto"))
	require.NoError(t, err)

	assert.Nil(t, stub.listPath)
	assert.Equal(t, adapter.DefaultListLimit, stub.listLimit)
	assert.Contains(t, stdout, "# Metrics (1)")
	assert.Contains(t, stdout, "revenue")
}

func TestMetricsCommand_WithDimensions(t *testing.T) {
	stub := &stubAdapter{
		metrics: []core.MetricDefinition{{Name: "revenue"}, {Name: "orders"}},
		dimensions: map[string][]string{
			"revenue": {"metric_time", "customer__region"},
			"orders":  {"metric_time"},
		},
	}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewMetricsCommand(), testConfig("json"), "--with-dimensions")
	require.NoError(t, err)

	var got []core.MetricDefinition
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"metric_time", "customer__region"}, got[0].Dimensions)
	assert.Equal(t, []string{"metric_time"}, got[1].Dimensions)
}

func TestMetricsCommand_AdapterError(t *testing.T) {
	useStubAdapter(t, &stubAdapter{err: &adapter.TimeoutError{Operation: "list_metrics"}})

	_, _, err := runCommand(t, NewMetricsCommand(), testConfig("json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrTimeout)
	assert.Contains(t, err.Error(), "failed to list metrics")
}

// countingAdapter tracks how many GetDimensions calls run at once.
type countingAdapter struct {
	stubAdapter
	mu      sync.Mutex
	active  int
	peak    int
	release chan struct{}
}

func (c *countingAdapter) GetDimensions(ctx context.Context, metric string, _ []string) ([]string, error) {
	c.mu.Lock()
	c.active++
	c.peak = max(c.peak, c.active)
	c.mu.Unlock()

	select {
	case <-c.release:
	case <-ctx.Done():
	}

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	if metric == "broken" {
		return nil, errors.New("boom")
	}
	return []string{metric + "__dim"}, nil
}

func TestFillDimensions(t *testing.T) {
	t.Run("bounded concurrency", func(t *testing.T) {
		a := &countingAdapter{release: make(chan struct{})}
		close(a.release)
		metrics := make([]core.MetricDefinition, 8)
		for i := range metrics {
			metrics[i].Name = string(rune('a' + i))
		}

		require.NoError(t, fillDimensions(context.Background(), a, metrics, 2))
		assert.LessOrEqual(t, a.peak, 2)
		for _, m := range metrics {
			assert.Equal(t, []string{m.Name + "__dim"}, m.Dimensions)
		}
	})

	t.Run("error names the metric", func(t *testing.T) {
		a := &countingAdapter{release: make(chan struct{})}
		close(a.release)
		metrics := []core.MetricDefinition{{Name: "ok"}, {Name: "broken"}}

		err := fillDimensions(context.Background(), a, metrics, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})
}

func TestDimensionsCommand(t *testing.T) {
	stub := &stubAdapter{dimensions: map[string][]string{
		"revenue": {"metric_time", "customer__region"},
	}}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewDimensionsCommand(), testConfig("json"), "revenue", "--path", "customer")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer"}, stub.dimPath)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, []string{"metric_time", "customer__region"}, got)

	_, _, err = runCommand(t, NewDimensionsCommand(), testConfig("json"), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrInvocation)

	_, _, err = runCommand(t, NewDimensionsCommand(), testConfig("json"))
	assert.Error(t, err, "metric argument is required")
}

func TestQueryCommand(t *testing.T) {
	stub := &stubAdapter{result: &core.QueryResult{
		Columns: []string{"metric_time__month", "revenue"},
		Data:    [][]any{{"2024-01-01", "100"}},
	}}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewQueryCommand(), testConfig("json"),
		"revenue", "-m", "orders", "-g", "metric_time__month",
		"--start", "2024-01-01", "--end", "2024-03-31", "--granularity", "Month",
		"--where", "{{ Dimension('customer__country') }} = 'US'",
		"--limit", "10", "--order", "-revenue")
	require.NoError(t, err)

	req := stub.request
	assert.Equal(t, []string{"orders", "revenue"}, req.Metrics)
	assert.Equal(t, []string{"metric_time__month"}, req.Dimensions)
	require.NotNil(t, req.TimeRange)
	assert.Equal(t, core.TimeRange{Start: "2024-01-01", End: "2024-03-31", Granularity: core.GranularityMonth}, *req.TimeRange)
	assert.Equal(t, "{{ Dimension('customer__country') }} = 'US'", req.Where)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, []string{"-revenue"}, req.OrderBy)
	assert.False(t, req.DryRun)

	var got core.QueryResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, stub.result.Columns, got.Columns)
}

func TestQueryCommand_Explain(t *testing.T) {
	stub := &stubAdapter{result: &core.QueryResult{
		Columns:  []string{"sql"},
		Data:     [][]any{{"SELECT 1"}},
		Metadata: map[string]any{"explain": true, "sql": "SELECT 1"},
	}}
	useStubAdapter(t, stub)

	stdout, _, err := runCommand(t, NewQueryCommand(), testConfig("markdown"), "revenue", "--explain")
	require.NoError(t, err)

	assert.True(t, stub.request.DryRun)
	assert.Contains(t, stdout, "# Generated SQL")
	assert.Contains(t, stdout, "```sql\nSELECT 1\n```")
}

func TestQueryCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no metrics without terminal", nil, "at least one metric is required"},
		{"unknown granularity", []string{"revenue", "--granularity", "fortnight"}, "unknown time granularity"},
		{"negative limit", []string{"revenue", "--limit", "-1"}, "limit must not be negative"},
		{"blank metric", []string{"-m", "revenue, "}, "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAdapter{}
			useStubAdapter(t, stub)

			_, _, err := runCommand(t, NewQueryCommand(), testConfig("json"), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, stub.request.Metrics, "adapter should not be called")
		})
	}
}

func TestQueryOptionsRequest(t *testing.T) {
	opts := &QueryOptions{Metrics: []string{"revenue"}, Path: "finance/ sales/"}
	req, err := opts.Request()
	require.NoError(t, err)
	assert.Equal(t, []string{"finance", "sales"}, req.Path)
	assert.Nil(t, req.TimeRange)

	opts = &QueryOptions{Metrics: []string{"revenue"}, End: "2024-12-31"}
	req, err = opts.Request()
	require.NoError(t, err)
	require.NotNil(t, req.TimeRange)
	assert.Equal(t, "2024-12-31", req.TimeRange.End)
	assert.Empty(t, req.TimeRange.Granularity)
}

func TestParseQueryLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *QueryOptions
		wantErr bool
	}{
		{
			name: "bare metrics",
			line: "revenue orders",
			want: &QueryOptions{Metrics: []string{"revenue", "orders"}},
		},
		{
			name: "flags and quoted filter",
			line: `-m revenue -g metric_time__day --where "{{ Dimension('country') }} = 'US'" --limit 5`,
			want: &QueryOptions{
				Metrics: []string{"revenue"},
				GroupBy: []string{"metric_time__day"},
				Where:   "{{ Dimension('country') }} = 'US'",
				Limit:   5,
			},
		},
		{
			name: "explain",
			line: "revenue --explain",
			want: &QueryOptions{Metrics: []string{"revenue"}, Explain: true},
		},
		{
			name:    "unterminated quote",
			line:    `revenue --where "oops`,
			wantErr: true,
		},
		{
			name:    "unknown flag",
			line:    "revenue --bogus",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseQueryLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleDotCommand(t *testing.T) {
	stub := &stubAdapter{
		metrics:    []core.MetricDefinition{{Name: "revenue"}},
		dimensions: map[string][]string{"revenue": {"metric_time"}},
		validation: &core.ValidationResult{Valid: true, Issues: []core.ValidationIssue{}},
	}
	ctx := context.Background()

	tests := []struct {
		line     string
		quit     bool
		wantOut  string
		wantErrW string
	}{
		{line: ".quit", quit: true},
		{line: ".EXIT", quit: true},
		{line: ".help", wantOut: ".dimensions <metric>"},
		{line: ".metrics", wantOut: "revenue"},
		{line: ".dimensions revenue", wantOut: "metric_time"},
		{line: ".dimensions", wantErrW: "Usage: .dimensions <metric>"},
		{line: ".dimensions missing", wantErrW: "Error:"},
		{line: ".validate", wantOut: "Valid:** true"},
		{line: ".tables", wantErrW: "Unknown command: .tables"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tr := testutil.NewTestRendererAuto()
			quit := handleDotCommand(ctx, stub, tr.Renderer, tt.line)
			assert.Equal(t, tt.quit, quit)
			assert.Contains(t, tr.Output(), tt.wantOut)
			assert.Contains(t, tr.ErrorOutput(), tt.wantErrW)
		})
	}
}

func TestAdaptersCommand(t *testing.T) {
	stdout, _, err := runCommand(t, NewAdaptersCommand(), testConfig("json"))
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Contains(t, got, "metricflow")
}

func TestSplitPath(t *testing.T) {
	assert.Nil(t, splitPath(""))
	assert.Nil(t, splitPath(" / "))
	assert.Equal(t, []string{"a", "b"}, splitPath("/a//b/"))
}
