package metricflow

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
)

// MetricFlow subcommands.
const (
	cmdListMetrics    = "list-metrics"
	cmdListDimensions = "list-dimensions"
	cmdQuery          = "query"
	cmdValidate       = "validate-configs"
)

func listMetricsArgs() []string {
	return []string{cmdListMetrics}
}

func listDimensionsArgs(metric string) []string {
	return []string{cmdListDimensions, "--metrics", metric}
}

// queryArgs translates every present request option into its mf flag.
func queryArgs(req core.QueryRequest) []string {
	args := []string{cmdQuery, "--metrics", strings.Join(req.Metrics, ",")}

	if len(req.Dimensions) > 0 {
		args = append(args, "--group-by", strings.Join(req.Dimensions, ","))
	}

	if tr := req.TimeRange; tr != nil {
		if tr.Start != "" {
			args = append(args, "--start-time", tr.Start)
		}
		if tr.End != "" {
			args = append(args, "--end-time", tr.End)
		}
		if tr.Granularity != "" {
			args = append(args, "--time-granularity", string(tr.Granularity))
		}
	}

	if req.Where != "" {
		args = append(args, "--where", req.Where)
	}

	if req.Limit > 0 {
		args = append(args, "--limit", strconv.Itoa(req.Limit))
	}

	if len(req.OrderBy) > 0 {
		args = append(args, "--order", strings.Join(req.OrderBy, ","))
	}

	if req.DryRun {
		args = append(args, "--explain")
	}

	return args
}

func validateArgs() []string {
	return []string{cmdValidate}
}

// envPairs renders an env map as sorted KEY=VALUE pairs.
func envPairs(values map[string]string) []string {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(values))
	for _, key := range keys {
		out = append(out, key+"="+values[key])
	}
	return out
}
