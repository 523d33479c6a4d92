package core

import "strings"

// MetricType is the kind of a metric as reported by the semantic layer.
type MetricType string

// Metric types understood by the adapters.
const (
	MetricTypeSimple     MetricType = "simple"
	MetricTypeRatio      MetricType = "ratio"
	MetricTypeCumulative MetricType = "cumulative"
	MetricTypeDerived    MetricType = "derived"
	MetricTypeConversion MetricType = "conversion"
)

// ParseMetricType maps a type name to a MetricType, ignoring case.
// Returns false for empty or unknown names.
func ParseMetricType(s string) (MetricType, bool) {
	switch t := MetricType(strings.ToLower(strings.TrimSpace(s))); t {
	case MetricTypeSimple, MetricTypeRatio, MetricTypeCumulative, MetricTypeDerived, MetricTypeConversion:
		return t, true
	default:
		return "", false
	}
}

// MetricDefinition describes a metric exposed by the semantic layer.
type MetricDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Type        *MetricType    `json:"type,omitempty" yaml:"type,omitempty"`
	Dimensions  []string       `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Measures    []string       `json:"measures,omitempty" yaml:"measures,omitempty"`
	Path        []string       `json:"path,omitempty" yaml:"path,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// HasPathPrefix reports whether the metric's grouping path starts with prefix.
// An empty prefix matches every metric.
func (m MetricDefinition) HasPathPrefix(prefix []string) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(m.Path) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if m.Path[i] != p {
			return false
		}
	}
	return true
}
