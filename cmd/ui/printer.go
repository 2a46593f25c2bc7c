// Package ui renders terminal output for the copilot commands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentnexus/copilot/pkg/engine/api"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// Title prints a bold section heading.
func Title(text string) {
	fmt.Println(titleStyle.Render(text))
}

// Hint prints de-emphasized helper text.
func Hint(text string) {
	fmt.Println(dimStyle.Render(text))
}

// StepResult renders one workflow step outcome.
func StepResult(r api.StepResult) {
	switch r.Status {
	case api.StatusExecuted:
		fmt.Printf("%s step %d %s\n", okStyle.Render("✓"), r.StepIndex, titleStyle.Render(r.ToolName))
		fmt.Println(indent(r.Detail))
	case api.StatusError:
		fmt.Printf("%s step %d %s\n", errStyle.Render("✗"), r.StepIndex, titleStyle.Render(r.ToolName))
		fmt.Println(indent(errStyle.Render(r.Detail)))
	case api.StatusPendingApproval:
		fmt.Println(panelStyle.Render(fmt.Sprintf(
			"%s\n\nStep %d wants to run %s.\n%s",
			pendingStyle.Render("⚠ Approval required"),
			r.StepIndex, r.ToolName, r.Detail,
		)))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
