package core

import (
	"fmt"
	"strings"
)

// Granularity is the time bucket used when grouping by the metric time dimension.
type Granularity string

// Supported granularities.
const (
	GranularityHour    Granularity = "hour"
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// Granularities lists every supported granularity from finest to coarsest.
var Granularities = []Granularity{
	GranularityHour,
	GranularityDay,
	GranularityWeek,
	GranularityMonth,
	GranularityQuarter,
	GranularityYear,
}

// ParseGranularity converts a string to a Granularity, ignoring case.
func ParseGranularity(s string) (Granularity, bool) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	return g, g.Valid()
}

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	for _, known := range Granularities {
		if g == known {
			return true
		}
	}
	return false
}

// TimeRange constrains a metric query in time.
// Start and End are passed through to the semantic layer unchanged.
type TimeRange struct {
	Start       string      `json:"start,omitempty" yaml:"start,omitempty"`
	End         string      `json:"end,omitempty" yaml:"end,omitempty"`
	Granularity Granularity `json:"granularity,omitempty" yaml:"granularity,omitempty"`
}

// IsZero reports whether no bound and no granularity is set.
func (r *TimeRange) IsZero() bool {
	return r == nil || (r.Start == "" && r.End == "" && r.Granularity == "")
}

// QueryRequest holds the parameters of a metric query.
type QueryRequest struct {
	Metrics    []string   `json:"metrics" yaml:"metrics"`
	Dimensions []string   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Path       []string   `json:"path,omitempty" yaml:"path,omitempty"`
	TimeRange  *TimeRange `json:"time_range,omitempty" yaml:"time_range,omitempty"`
	Where      string     `json:"where,omitempty" yaml:"where,omitempty"`
	Limit      int        `json:"limit,omitempty" yaml:"limit,omitempty"` // 0 means no limit
	OrderBy    []string   `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	DryRun     bool       `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// Validate checks the request preconditions that do not need the semantic layer.
func (r QueryRequest) Validate() error {
	if len(r.Metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}
	for i, m := range r.Metrics {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("metric name at position %d is empty", i)
		}
	}
	for i, d := range r.Dimensions {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("dimension name at position %d is empty", i)
		}
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", r.Limit)
	}
	if r.TimeRange != nil && r.TimeRange.Granularity != "" && !r.TimeRange.Granularity.Valid() {
		return fmt.Errorf("unknown time granularity %q", r.TimeRange.Granularity)
	}
	return nil
}

// QueryResult is the tabular answer to a metric query.
type QueryResult struct {
	Columns  []string       `json:"columns" yaml:"columns"`
	Data     [][]any        `json:"data" yaml:"data"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks that every row is as wide as the column list.
func (r *QueryResult) Validate() error {
	for i, row := range r.Data {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(r.Columns))
		}
	}
	return nil
}

// RowCount returns the number of data rows.
func (r *QueryResult) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}
