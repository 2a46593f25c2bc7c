package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Approver prompts the operator for a go/no-go decision on a pending step.
type Approver struct {
	Reader *bufio.Reader
}

// NewApprover creates an Approver reading from stdin.
func NewApprover() *Approver {
	return &Approver{Reader: bufio.NewReader(os.Stdin)}
}

// Decide asks whether the named tool may run. It uses an interactive
// selector on a real terminal and a plain prompt otherwise.
func (a *Approver) Decide(toolName string) (bool, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return a.interactive(toolName)
	}
	return a.simple(toolName)
}

func (a *Approver) interactive(toolName string) (bool, error) {
	model := approvalModel{
		toolName: toolName,
		options:  []string{"Approve", "Reject"},
	}
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return a.simple(toolName)
	}

	m, ok := finalModel.(approvalModel)
	if !ok || m.cancelled || !m.chosen {
		fmt.Println(errStyle.Render("✗ Rejected"))
		return false, nil
	}
	if m.selected == 0 {
		fmt.Println(okStyle.Render("✓ Approved"))
		return true, nil
	}
	fmt.Println(errStyle.Render("✗ Rejected"))
	return false, nil
}

func (a *Approver) simple(toolName string) (bool, error) {
	fmt.Printf("Allow %s to run? (A)pprove / (R)eject [a/R]: ", toolName)

	input, err := a.Reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	switch strings.TrimSpace(strings.ToLower(input)) {
	case "a", "approve", "y", "yes":
		fmt.Println(okStyle.Render("✓ Approved"))
		return true, nil
	default:
		fmt.Println(errStyle.Render("✗ Rejected"))
		return false, nil
	}
}

// approvalModel is the bubbletea model for the approval selector.
type approvalModel struct {
	toolName  string
	options   []string
	selected  int
	cancelled bool
	chosen    bool
}

func (m approvalModel) Init() tea.Cmd {
	return nil
}

func (m approvalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			} else {
				m.selected = len(m.options) - 1
			}
		case "down", "j":
			if m.selected < len(m.options)-1 {
				m.selected++
			} else {
				m.selected = 0
			}
		case "enter":
			m.chosen = true
			return m, tea.Quit
		case "a", "A":
			m.selected = 0
			m.chosen = true
			return m, tea.Quit
		case "r", "R":
			m.selected = 1
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m approvalModel) View() string {
	s := strings.Builder{}
	s.WriteString(pendingStyle.Render(fmt.Sprintf("Allow %s to run?", m.toolName)))
	s.WriteString("\n")

	for i, opt := range m.options {
		cursor := " "
		if m.selected == i {
			cursor = "❯"
		}

		var line string
		if m.selected == i {
			switch i {
			case 0:
				line = cursor + " " + okStyle.Render(opt)
			default:
				line = cursor + " " + errStyle.Render(opt)
			}
		} else {
			line = "  " + dimStyle.Render(opt)
		}
		s.WriteString(line + "\n")
	}

	return s.String()
}
