// Package output renders command results for terminals, agents and scripts.
//
// Output adapts to the environment: styled text on a terminal, markdown when
// piped, or an explicit structured format (json, yaml, csv).
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode selects how output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
	ModeCSV      Mode = "csv"
)

// Renderer writes command output in the effective mode.
type Renderer struct {
	w      io.Writer
	errW   io.Writer
	mode   Mode
	isTTY  bool
	Styles *Styles
}

// NewRenderer creates a renderer, detecting whether w is a terminal.
func NewRenderer(w, errW io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(w, errW, isTerminal(w), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(w, errW io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		w:      w,
		errW:   errW,
		mode:   mode,
		isTTY:  isTTY,
		Styles: NewStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto to text on a terminal and markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool {
	return r.isTTY
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer {
	return r.w
}

// ErrWriter returns the diagnostics writer.
func (r *Renderer) ErrWriter() io.Writer {
	return r.errW
}

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// Header prints a section header.
func (r *Renderer) Header(level int, text string) {
	if r.EffectiveMode() == ModeText {
		r.Println(r.Styles.Header.Render(text))
		return
	}
	r.Println(FormatHeader(level, text))
	r.Println("")
}

// Success prints a success status line.
func (r *Renderer) Success(msg string) {
	r.Println(r.Styles.Success.Render("✓ " + msg))
}

// Warning prints a warning status line to the diagnostics writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.Styles.Warning.Render("! "+msg))
}

// Error prints an error status line to the diagnostics writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.Styles.Error.Render("✗ "+msg))
}

// Muted renders secondary text.
func (r *Renderer) Muted(s string) string {
	return r.Styles.Muted.Render(s)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured writes v in json or yaml mode and reports whether it did.
// Commands call it first and fall back to their own tabular rendering.
func (r *Renderer) Structured(v any) (bool, error) {
	switch r.EffectiveMode() {
	case ModeJSON:
		return true, r.JSON(v)
	case ModeYAML:
		return true, r.YAML(v)
	default:
		return false, nil
	}
}

// Table renders rows under the given columns: a box table in text mode, a
// markdown table, CSV, or JSON/YAML objects keyed by column.
func (r *Renderer) Table(columns []string, rows [][]any) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(rowObjects(columns, rows))
	case ModeYAML:
		return r.YAML(rowObjects(columns, rows))
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = FormatValue(v)
		}
		t.AppendRow(tr)
	}

	switch r.EffectiveMode() {
	case ModeCSV:
		t.RenderCSV()
	case ModeMarkdown:
		if len(rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		t.RenderMarkdown()
		r.Println("")
		r.Printf("(%d rows)\n", len(rows))
	default:
		if len(rows) == 0 {
			r.Println(r.Muted("(0 rows)"))
			return nil
		}
		t.SetStyle(table.StyleLight)
		t.Render()
		r.Println(r.Muted(fmt.Sprintf("(%d rows)", len(rows))))
	}
	return nil
}

func rowObjects(columns []string, rows [][]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(columns))
		for i, c := range columns {
			if i < len(row) {
				obj[c] = row[i]
			}
		}
		out = append(out, obj)
	}
	return out
}

// FormatValue renders a cell value, showing nil as NULL.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}
