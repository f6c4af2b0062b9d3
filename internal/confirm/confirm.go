// Package confirm asks the user to confirm destructive runs in the terminal.
package confirm

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Prompt describes what is being confirmed.
type Prompt struct {
	Title string
	// Items are listed under the title, e.g. the migrations to roll back.
	Items []string
	// Phrase must be typed exactly to confirm. Defaults to "yes".
	Phrase string
}

type state int

const (
	statePending state = iota
	stateConfirmed
	stateCancelled
)

// Model is the bubbletea model behind Ask.
type Model struct {
	prompt   Prompt
	input    textinput.Model
	state    state
	mismatch bool
}

// New returns a focused prompt model.
func New(p Prompt) Model {
	if p.Phrase == "" {
		p.Phrase = "yes"
	}

	input := textinput.New()
	input.Placeholder = p.Phrase
	input.CharLimit = 256
	input.Focus()

	return Model{prompt: p, input: input}
}

// Confirmed reports whether the phrase was entered.
func (m Model) Confirmed() bool {
	return m.state == stateConfirmed
}

// Done reports whether the prompt has finished either way.
func (m Model) Done() bool {
	return m.state != statePending
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.state = stateCancelled
			return m, tea.Quit

		case tea.KeyEnter:
			if strings.TrimSpace(m.input.Value()) == m.prompt.Phrase {
				m.state = stateConfirmed
				return m, tea.Quit
			}
			m.mismatch = true
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Done() {
		if m.Confirmed() {
			return Success("Confirmed") + "\n"
		}
		return Error("Cancelled") + "\n"
	}

	var b strings.Builder

	b.WriteString(Warning(m.prompt.Title))
	b.WriteString("\n\n")
	for _, item := range m.prompt.Items {
		b.WriteString(Item(item))
		b.WriteString("\n")
	}
	if len(m.prompt.Items) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Type %s to continue:\n", headerStyle.Render(m.prompt.Phrase))
	b.WriteString(m.input.View())

	if m.mismatch {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Input did not match, try again"))
	}

	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render("Enter to confirm, Esc to cancel"))

	return borderStyle.Render(b.String())
}

// Ask runs the prompt on in/out and reports whether the user confirmed.
func Ask(in io.Reader, out io.Writer, p Prompt) (bool, error) {
	program := tea.NewProgram(New(p), tea.WithInput(in), tea.WithOutput(out))

	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	m, ok := final.(Model)
	return ok && m.Confirmed(), nil
}
