package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       QueryRequest
		errSubstr string
	}{
		{
			name: "minimal request",
			req:  QueryRequest{Metrics: []string{"revenue"}},
		},
		{
			name:      "no metrics",
			req:       QueryRequest{},
			errSubstr: "at least one metric is required",
		},
		{
			name:      "blank metric",
			req:       QueryRequest{Metrics: []string{"revenue", "  "}},
			errSubstr: "position 1 is empty",
		},
		{
			name:      "blank dimension",
			req:       QueryRequest{Metrics: []string{"revenue"}, Dimensions: []string{""}},
			errSubstr: "dimension name at position 0",
		},
		{
			name:      "negative limit",
			req:       QueryRequest{Metrics: []string{"revenue"}, Limit: -1},
			errSubstr: "limit must not be negative",
		},
		{
			name: "unknown granularity",
			req: QueryRequest{
				Metrics:   []string{"revenue"},
				TimeRange: &TimeRange{Granularity: "fortnight"},
			},
			errSubstr: "unknown time granularity",
		},
		{
			name: "full request",
			req: QueryRequest{
				Metrics:    []string{"revenue", "orders"},
				Dimensions: []string{"metric_time"},
				TimeRange:  &TimeRange{Start: "2024-01-01", End: "2024-02-01", Granularity: GranularityWeek},
				Where:      "{{ Dimension('customer__country') }} = 'US'",
				Limit:      10,
				OrderBy:    []string{"-revenue"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestQueryResult_Validate(t *testing.T) {
	ok := &QueryResult{
		Columns: []string{"date", "revenue"},
		Data:    [][]any{{"2024-01-01", "10"}, {"2024-01-02", "12"}},
	}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, 2, ok.RowCount())

	bad := &QueryResult{
		Columns: []string{"date", "revenue"},
		Data:    [][]any{{"2024-01-01", "10"}, {"2024-01-02"}},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 has 1 values, expected 2")

	var nilResult *QueryResult
	assert.Equal(t, 0, nilResult.RowCount())
}

func TestParseGranularity(t *testing.T) {
	for _, g := range Granularities {
		parsed, ok := ParseGranularity(string(g))
		assert.True(t, ok, "granularity %s should parse", g)
		assert.Equal(t, g, parsed)
	}

	parsed, ok := ParseGranularity(" Quarter ")
	assert.True(t, ok)
	assert.Equal(t, GranularityQuarter, parsed)

	_, ok = ParseGranularity("minute")
	assert.False(t, ok)
}

func TestParseMetricType(t *testing.T) {
	mt, ok := ParseMetricType("RATIO")
	assert.True(t, ok)
	assert.Equal(t, MetricTypeRatio, mt)

	_, ok = ParseMetricType("")
	assert.False(t, ok)

	_, ok = ParseMetricType("weird")
	assert.False(t, ok)
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "unknown", Severity(42).String())

	sev, ok := ParseSeverity("WARN")
	assert.True(t, ok)
	assert.Equal(t, SeverityWarning, sev)

	sev, ok = ParseSeverity("bogus")
	assert.False(t, ok)
	assert.Equal(t, SeverityError, sev)

	data, err := json.Marshal(ValidationIssue{Severity: SeverityInfo, Message: "fyi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"severity":"info","message":"fyi"}`, string(data))

	var issue ValidationIssue
	require.NoError(t, json.Unmarshal([]byte(`{"severity":"warning","message":"m"}`), &issue))
	assert.Equal(t, SeverityWarning, issue.Severity)
}

func TestMetricDefinition_HasPathPrefix(t *testing.T) {
	m := MetricDefinition{Name: "revenue", Path: []string{"finance", "sales"}}

	assert.True(t, m.HasPathPrefix(nil))
	assert.True(t, m.HasPathPrefix([]string{"finance"}))
	assert.True(t, m.HasPathPrefix([]string{"finance", "sales"}))
	assert.False(t, m.HasPathPrefix([]string{"finance", "sales", "emea"}))
	assert.False(t, m.HasPathPrefix([]string{"marketing"}))
	assert.False(t, MetricDefinition{Name: "x"}.HasPathPrefix([]string{"finance"}))
}

func TestValidationResult_Count(t *testing.T) {
	r := &ValidationResult{Issues: []ValidationIssue{
		{Severity: SeverityError, Message: "a"},
		{Severity: SeverityWarning, Message: "b"},
		{Severity: SeverityError, Message: "c"},
	}}
	assert.Equal(t, 2, r.Count(SeverityError))
	assert.Equal(t, 1, r.Count(SeverityWarning))
	assert.Equal(t, 0, r.Count(SeverityInfo))
}
