package output

import (
	"github.com/Datus-ai/datus-semantic-adapter/pkg/core"
	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Name    lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer, so colour is
// dropped when that renderer has no colour profile.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Underline(true),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Name:    lr.NewStyle().Bold(true),
	}
}

// ForSeverity returns the style for a validation issue severity.
func (s *Styles) ForSeverity(sev core.Severity) lipgloss.Style {
	switch sev {
	case core.SeverityError:
		return s.Error
	case core.SeverityWarning:
		return s.Warning
	case core.SeverityInfo:
		return s.Info
	default:
		return s.Muted
	}
}
