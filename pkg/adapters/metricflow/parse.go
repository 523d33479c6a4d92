package metricflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Datus-ai/datus-semantic-adapter/pkg/adapter"
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/mattn/go-runewidth"
)

// bullet prefixes entries in mf listings.
const bullet = "•"

var (
	// moreDimensions matches the "and 3 more" tail mf appends to long dimension lists.
	moreDimensions = regexp.MustCompile(`\s+and\s+(\d+)\s+more$`)

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	severityPrefix = regexp.MustCompile(`(?i)^\W*(future_error|error|fatal|warning|warn|info|hint)\b`)
	warningWord    = regexp.MustCompile(`(?i)\bwarn(ing)?s?\b`)
	infoWord       = regexp.MustCompile(`(?i)\binfo\b`)
)

func parseError(operation, reason, output string, err error) error {
	return &adapter.ParseError{Operation: operation, Reason: reason, Output: output, Err: err}
}

// =============================================================================
// list-metrics
// =============================================================================

// parseMetrics accepts JSON (a list or {"metrics": [...]}), the bullet
// listing mf prints by default, or a column-aligned table.
func parseMetrics(output string) ([]core.MetricDefinition, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return []core.MetricDefinition{}, nil
	}

	if looksLikeJSON(trimmed) {
		return parseMetricsJSON(trimmed)
	}

	if metrics, ok := parseMetricBullets(trimmed); ok {
		return metrics, nil
	}

	tbl, ok, err := parseTable(trimmed)
	if err != nil {
		return nil, parseError(cmdListMetrics, "malformed table", output, err)
	}
	if !ok {
		if onlyBanners(trimmed) {
			return []core.MetricDefinition{}, nil
		}
		return nil, parseError(cmdListMetrics, "unrecognized listing format", output, nil)
	}
	return metricsFromTable(tbl), nil
}

func parseMetricsJSON(s string) ([]core.MetricDefinition, error) {
	v, err := decodeJSON(s)
	if err != nil {
		return nil, parseError(cmdListMetrics, "invalid JSON", s, err)
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		list, ok := t["metrics"].([]any)
		if !ok {
			return nil, parseError(cmdListMetrics, `JSON object has no "metrics" list`, s, nil)
		}
		items = list
	default:
		return nil, parseError(cmdListMetrics, "unexpected JSON value", s, nil)
	}

	metrics := make([]core.MetricDefinition, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, parseError(cmdListMetrics, fmt.Sprintf("metric %d is not an object", i), s, nil)
		}
		m, err := metricFromMap(obj)
		if err != nil {
			return nil, parseError(cmdListMetrics, fmt.Sprintf("metric %d", i), s, err)
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func metricFromMap(obj map[string]any) (core.MetricDefinition, error) {
	name, _ := obj["name"].(string)
	if strings.TrimSpace(name) == "" {
		return core.MetricDefinition{}, errors.New("metric has no name")
	}

	m := core.MetricDefinition{
		Name:       name,
		Dimensions: stringList(obj["dimensions"]),
		Measures:   stringList(obj["measures"]),
		Path:       pathValue(obj["path"]),
		Metadata:   obj,
	}
	m.Description, _ = obj["description"].(string)
	if s, ok := obj["type"].(string); ok {
		if mt, ok := core.ParseMetricType(s); ok {
			m.Type = &mt
		}
	}
	return m, nil
}

// parseMetricBullets parses lines such as
//
//	• revenue: metric_time, customer__country and 3 more
func parseMetricBullets(s string) ([]core.MetricDefinition, bool) {
	var metrics []core.MetricDefinition
	found := false

	for _, line := range splitLines(s) {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, bullet) {
			continue
		}
		found = true

		entry := strings.TrimSpace(strings.TrimPrefix(t, bullet))
		name, dims, _ := strings.Cut(entry, ":")
		m := core.MetricDefinition{Name: strings.TrimSpace(name)}
		if m.Name == "" {
			continue
		}

		dims = strings.TrimSpace(dims)
		if match := moreDimensions.FindStringSubmatch(dims); match != nil {
			n, _ := strconv.Atoi(match[1])
			m.Metadata = map[string]any{"more_dimensions": n}
			dims = strings.TrimSpace(strings.TrimSuffix(dims, match[0]))
		}
		m.Dimensions = splitList(dims)
		metrics = append(metrics, m)
	}

	if metrics == nil {
		metrics = []core.MetricDefinition{}
	}
	return metrics, found
}

func metricsFromTable(tbl *table) []core.MetricDefinition {
	nameIdx := tbl.column("name", "metric", "metric_name")
	if nameIdx < 0 {
		nameIdx = 0
	}
	descIdx := tbl.column("description")
	if descIdx < 0 && nameIdx == 0 && len(tbl.header) > 1 && !isKnownMetricColumn(tbl.header[1]) {
		descIdx = 1
	}
	typeIdx := tbl.column("type")
	dimsIdx := tbl.column("dimensions")
	measuresIdx := tbl.column("measures")

	metrics := make([]core.MetricDefinition, 0, len(tbl.rows))
	for _, row := range tbl.rows {
		m := core.MetricDefinition{Name: row[nameIdx]}
		if m.Name == "" {
			continue
		}
		if descIdx >= 0 {
			m.Description = row[descIdx]
		}
		if typeIdx >= 0 {
			if mt, ok := core.ParseMetricType(row[typeIdx]); ok {
				m.Type = &mt
			}
		}
		if dimsIdx >= 0 {
			m.Dimensions = splitList(row[dimsIdx])
		}
		if measuresIdx >= 0 {
			m.Measures = splitList(row[measuresIdx])
		}
		metrics = append(metrics, m)
	}
	return metrics
}

func isKnownMetricColumn(h string) bool {
	switch strings.ToLower(h) {
	case "type", "dimensions", "measures":
		return true
	}
	return false
}

// =============================================================================
// list-dimensions
// =============================================================================

// parseDimensions accepts JSON (a list or {"dimensions": [...]}), bullet
// lines, a table (first or "name" column) or bare identifiers, one per line.
func parseDimensions(output string) ([]string, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return []string{}, nil
	}

	if looksLikeJSON(trimmed) {
		v, err := decodeJSON(trimmed)
		if err != nil {
			return nil, parseError(cmdListDimensions, "invalid JSON", output, err)
		}
		switch t := v.(type) {
		case []any:
			return nonNil(stringList(t)), nil
		case map[string]any:
			list, ok := t["dimensions"].([]any)
			if !ok {
				return nil, parseError(cmdListDimensions, `JSON object has no "dimensions" list`, output, nil)
			}
			return nonNil(stringList(list)), nil
		default:
			return nil, parseError(cmdListDimensions, "unexpected JSON value", output, nil)
		}
	}

	var bullets []string
	for _, line := range splitLines(trimmed) {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, bullet) {
			if d := strings.TrimSpace(strings.TrimPrefix(t, bullet)); d != "" {
				bullets = append(bullets, d)
			}
		}
	}
	if bullets != nil {
		return bullets, nil
	}

	tbl, ok, err := parseTable(trimmed)
	if err != nil {
		return nil, parseError(cmdListDimensions, "malformed table", output, err)
	}
	if ok {
		idx := tbl.column("name", "dimension", "dimension_name")
		if idx < 0 {
			idx = 0
		}
		dims := make([]string, 0, len(tbl.rows))
		for _, row := range tbl.rows {
			if row[idx] != "" {
				dims = append(dims, row[idx])
			}
		}
		return dims, nil
	}

	dims := []string{}
	for _, line := range splitLines(trimmed) {
		t := strings.TrimSpace(line)
		switch {
		case t == "" || isBannerLine(t):
		case identifier.MatchString(t):
			dims = append(dims, t)
		default:
			return nil, parseError(cmdListDimensions, fmt.Sprintf("unexpected line %q", t), output, nil)
		}
	}
	return dims, nil
}

// =============================================================================
// query
// =============================================================================

// parseQueryResult accepts JSON {"columns": [...], "data": [[...]]} or the
// column-aligned table mf prints, with any status lines before it ignored.
func parseQueryResult(output string) (*core.QueryResult, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, parseError(cmdQuery, "empty output", output, nil)
	}

	if looksLikeJSON(trimmed) {
		return parseQueryJSON(trimmed)
	}

	tbl, ok, err := parseTable(trimmed)
	if err != nil {
		return nil, parseError(cmdQuery, "malformed table", output, err)
	}
	if !ok {
		return nil, parseError(cmdQuery, "no table header found", output, nil)
	}

	result := &core.QueryResult{
		Columns: tbl.header,
		Data:    make([][]any, 0, len(tbl.rows)),
	}
	for _, row := range tbl.rows {
		values := make([]any, len(row))
		for i, cell := range row {
			values[i] = cell
		}
		result.Data = append(result.Data, values)
	}
	return result, nil
}

func parseQueryJSON(s string) (*core.QueryResult, error) {
	v, err := decodeJSON(s)
	if err != nil {
		return nil, parseError(cmdQuery, "invalid JSON", s, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, parseError(cmdQuery, "expected a JSON object", s, nil)
	}
	rawCols, okCols := obj["columns"].([]any)
	rawData, okData := obj["data"].([]any)
	if !okCols || !okData {
		return nil, parseError(cmdQuery, `JSON object needs "columns" and "data" lists`, s, nil)
	}

	result := &core.QueryResult{
		Columns: make([]string, 0, len(rawCols)),
		Data:    make([][]any, 0, len(rawData)),
	}
	for i, c := range rawCols {
		name, ok := c.(string)
		if !ok {
			return nil, parseError(cmdQuery, fmt.Sprintf("column %d is not a string", i), s, nil)
		}
		result.Columns = append(result.Columns, name)
	}
	for i, r := range rawData {
		row, ok := r.([]any)
		if !ok {
			return nil, parseError(cmdQuery, fmt.Sprintf("row %d is not a list", i), s, nil)
		}
		result.Data = append(result.Data, row)
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		result.Metadata = meta
	}

	if err := result.Validate(); err != nil {
		return nil, parseError(cmdQuery, "row width does not match columns", s, err)
	}
	return result, nil
}

// parseExplain turns 'mf query --explain' output into a one-cell result
// holding the generated SQL.
func parseExplain(output string) (*core.QueryResult, error) {
	lines := splitLines(output)
	start := 0
	for start < len(lines) {
		t := strings.TrimSpace(lines[start])
		if t == "" || isBannerLine(t) || (strings.Contains(t, "SQL") && strings.HasSuffix(t, ":")) {
			start++
			continue
		}
		break
	}

	sql := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	if sql == "" {
		return nil, parseError(cmdQuery, "explain output contains no SQL", output, nil)
	}

	return &core.QueryResult{
		Columns:  []string{"sql"},
		Data:     [][]any{{sql}},
		Metadata: map[string]any{"explain": true, "sql": sql},
	}, nil
}

// =============================================================================
// validate-configs
// =============================================================================

// parseValidationIssues turns every non-empty line of a failed validation
// report into an issue.
func parseValidationIssues(report string) []core.ValidationIssue {
	var issues []core.ValidationIssue
	for _, line := range splitLines(report) {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		issues = append(issues, core.ValidationIssue{Severity: detectSeverity(t), Message: t})
	}
	return issues
}

// parseValidationWarnings keeps explicitly tagged non-error lines of a
// successful validation.
func parseValidationWarnings(report string) []core.ValidationIssue {
	issues := []core.ValidationIssue{}
	for _, line := range splitLines(report) {
		t := strings.TrimSpace(line)
		if sev, ok := explicitSeverity(t); ok && sev != core.SeverityError {
			issues = append(issues, core.ValidationIssue{Severity: sev, Message: t})
		}
	}
	return issues
}

func explicitSeverity(line string) (core.Severity, bool) {
	m := severityPrefix.FindStringSubmatch(line)
	if m == nil {
		return core.SeverityError, false
	}
	switch strings.ToLower(m[1]) {
	case "warning", "warn":
		return core.SeverityWarning, true
	case "info":
		return core.SeverityInfo, true
	case "hint":
		return core.SeverityHint, true
	default:
		return core.SeverityError, true
	}
}

func detectSeverity(line string) core.Severity {
	if sev, ok := explicitSeverity(line); ok {
		return sev
	}
	switch {
	case warningWord.MatchString(line):
		return core.SeverityWarning
	case infoWord.MatchString(line):
		return core.SeverityInfo
	default:
		return core.SeverityError
	}
}

// =============================================================================
// Tables
// =============================================================================

// table is a header plus rows of equal width.
type table struct {
	header []string
	rows   [][]string
}

// column returns the index of the first header matching any name, or -1.
func (t *table) column(names ...string) int {
	for i, h := range t.header {
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}

// parseTable finds the first header line followed by a rule line and reads
// rows until the next blank line. Dash rules ("-----  ----") define column
// spans by position; pipe tables are split on '|'.
// Returns ok=false when no table is present.
func parseTable(s string) (*table, bool, error) {
	lines := splitLines(s)

	sep := -1
	for i := 1; i < len(lines); i++ {
		if isSeparatorLine(lines[i]) && !isSeparatorLine(lines[i-1]) && strings.TrimSpace(lines[i-1]) != "" {
			sep = i
			break
		}
	}
	if sep < 0 {
		return nil, false, nil
	}

	headerLine := lines[sep-1]
	split := splitPiped
	if !strings.HasPrefix(strings.TrimSpace(headerLine), "|") {
		spans := columnStarts(lines[sep])
		split = func(line string) []string { return sliceColumns(line, spans) }
	}

	tbl := &table{header: split(headerLine)}
	for _, line := range lines[sep+1:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		if isSeparatorLine(line) {
			continue
		}
		row := split(line)
		if len(row) != len(tbl.header) {
			return nil, true, fmt.Errorf("row %d has %d columns, header has %d", len(tbl.rows)+1, len(row), len(tbl.header))
		}
		tbl.rows = append(tbl.rows, row)
	}
	return tbl, true, nil
}

func isSeparatorLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	hasRule := false
	for _, r := range t {
		switch r {
		case '-', '=', '─', '━', '═':
			hasRule = true
		case '+', '|', ':', ' ', '┼', '│', '╪':
		default:
			return false
		}
	}
	return hasRule
}

// columnStarts returns the display columns where each dash run of a rule line begins.
func columnStarts(rule string) []int {
	var starts []int
	inRun := false
	col := 0
	for _, r := range rule {
		isRule := r != ' ' && r != '\t'
		if isRule && !inRun {
			starts = append(starts, col)
		}
		inRun = isRule
		col += runewidth.RuneWidth(r)
	}
	return starts
}

// sliceColumns cuts a line at the given display columns. mf pads cells by
// display width, so wide runes count for two. Each cell extends to the start
// of the next column, so right-aligned values stay in their cell.
func sliceColumns(line string, starts []int) []string {
	cells := make([]strings.Builder, len(starts))
	cell := -1
	col := 0
	for _, r := range line {
		for cell+1 < len(starts) && col >= starts[cell+1] {
			cell++
		}
		if cell >= 0 {
			cells[cell].WriteRune(r)
		}
		col += runewidth.RuneWidth(r)
	}
	out := make([]string, len(cells))
	for i := range cells {
		out[i] = strings.TrimSpace(cells[i].String())
	}
	return out
}

func splitPiped(line string) []string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "|")
	t = strings.TrimSuffix(t, "|")
	parts := strings.Split(t, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// =============================================================================
// Helpers
// =============================================================================

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{")
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// isBannerLine reports status lines mf decorates with a leading symbol
// (✔, 🔎, ...) or its fixed listing preamble.
func isBannerLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(t)
	return r > unicode.MaxASCII || strings.HasPrefix(t, "The list below")
}

func onlyBanners(s string) bool {
	for _, line := range splitLines(s) {
		if strings.TrimSpace(line) != "" && !isBannerLine(line) {
			return false
		}
	}
	return true
}

// stringList converts a JSON list of strings or {"name": ...} objects.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			if name, ok := t["name"].(string); ok {
				out = append(out, name)
			}
		case json.Number:
			out = append(out, t.String())
		}
	}
	return out
}

// pathValue accepts a JSON list or a slash-separated string.
func pathValue(v any) []string {
	if s, ok := v.(string); ok {
		var out []string
		for _, part := range strings.Split(s, "/") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	path := stringList(v)
	if len(path) == 0 {
		return nil
	}
	return path
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
