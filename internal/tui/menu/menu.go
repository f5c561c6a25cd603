// ABOUTME: Start menu shown when nobody is signed in
// ABOUTME: A huh select wrapped as a bubbletea model

package menu

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/collabfs/collabfs-cli/internal/tui/authforms"
)

// Choice is a menu entry
type Choice int

const (
	ChoiceLogin Choice = iota
	ChoiceSignup
	ChoiceForgot
	ChoiceQuit
)

// SelectedMsg is sent when the user picks an entry
type SelectedMsg struct {
	Choice Choice
}

type option struct {
	label string
	value Choice
}

// Menu is the auth start menu
type Menu struct {
	options  []option
	selected Choice
	form     *huh.Form
}

// New creates the menu with Sign in preselected
func New() *Menu {
	m := &Menu{
		options: []option{
			{label: "Sign in", value: ChoiceLogin},
			{label: "Create an account", value: ChoiceSignup},
			{label: "Forgot password", value: ChoiceForgot},
			{label: "Quit", value: ChoiceQuit},
		},
		selected: ChoiceLogin,
	}
	m.form = m.buildForm()
	return m
}

func (m *Menu) buildForm() *huh.Form {
	var options []huh.Option[Choice]
	for _, opt := range m.options {
		options = append(options, huh.NewOption(opt.label, opt.value))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Choice]().
				Title("Welcome to CollabFS").
				Description("Collaborate on files with your groups").
				Options(options...).
				Value(&m.selected),
		),
	).WithTheme(authforms.Theme()).WithShowHelp(false)
}

// Reset shows the menu again from the top
func (m *Menu) Reset() tea.Cmd {
	m.selected = ChoiceLogin
	m.form = m.buildForm()
	return m.form.Init()
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "q" {
		return m, func() tea.Msg { return SelectedMsg{Choice: ChoiceQuit} }
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		choice := m.selected
		return m, func() tea.Msg { return SelectedMsg{Choice: choice} }
	}
	return m, cmd
}

// View implements tea.Model
func (m *Menu) View() string {
	return m.form.View()
}

// String returns the string representation of a Choice
func (c Choice) String() string {
	switch c {
	case ChoiceLogin:
		return "login"
	case ChoiceSignup:
		return "signup"
	case ChoiceForgot:
		return "forgot"
	case ChoiceQuit:
		return "quit"
	default:
		return "unknown"
	}
}
