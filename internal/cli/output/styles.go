package output

import "github.com/charmbracelet/lipgloss"

// Styles are the text styles used by commands.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Underline(true),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("245")),
		Success: r.NewStyle().Foreground(lipgloss.Color("2")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("1")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Status renders a status word in the colour matching its outcome.
func (s *Styles) Status(status string) string {
	switch status {
	case "succeeded", "completed", "passed":
		return s.Success.Render(status)
	case "failed":
		return s.Error.Render(status)
	case "discarded", "running", "pending":
		return s.Muted.Render(status)
	default:
		return status
	}
}
