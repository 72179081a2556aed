// Package prompt reads secrets from the terminal with a masked bubbletea input.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idr-analysis/idrconnect/internal/auth"
)

// ErrCancelled is returned when the user aborts the prompt.
var ErrCancelled = errors.New("prompt cancelled")

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// Model is a single masked input line.
type Model struct {
	label     string
	input     textinput.Model
	validate  func(string) error
	err       error
	done      bool
	cancelled bool
}

// NewModel creates a focused password input. Entered values are checked with validate
// before the prompt completes; nil accepts anything.
func NewModel(label string, validate func(string) error) Model {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 1024
	ti.Width = 40
	ti.Focus()

	return Model{label: label, input: ti, validate: validate}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses: enter submits, esc and ctrl+c cancel.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if err := m.check(); err != nil {
				m.err = err
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
		m.err = nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the label, the masked input and any validation error.
func (m Model) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var s strings.Builder
	s.WriteString(labelStyle.Render(m.label))
	s.WriteString(" ")
	s.WriteString(m.input.View())
	s.WriteString("\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render("Invalid: " + m.err.Error()))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render("[Enter] Submit | [Esc] Cancel"))
	s.WriteString("\n")
	return s.String()
}

// Value returns the entered text.
func (m Model) Value() string { return m.input.Value() }

// Done reports whether the value was submitted.
func (m Model) Done() bool { return m.done }

// Cancelled reports whether the prompt was aborted.
func (m Model) Cancelled() bool { return m.cancelled }

func (m Model) check() error {
	if m.validate == nil {
		return nil
	}
	return m.validate(m.input.Value())
}

// PasswordValidator adapts an auth.Validator to the prompt.
func PasswordValidator(v *auth.Validator) func(string) error {
	return func(value string) error {
		return v.Validate(auth.Credentials{Password: value})
	}
}

// Password runs the prompt on in/out until the user submits or cancels.
func Password(ctx context.Context, in io.Reader, out io.Writer, label string) (string, error) {
	program := tea.NewProgram(
		NewModel(label, PasswordValidator(auth.NewValidator())),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.cancelled || !m.done {
		return "", ErrCancelled
	}
	return m.Value(), nil
}
