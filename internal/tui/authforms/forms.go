// ABOUTME: Auth screens as bubbletea models: login, signup, code entry, forgot, reset
// ABOUTME: Each wraps a huh form and reports submission; the app runs the backend call

package authforms

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/collabfs/collabfs-cli/internal/flow"
	"github.com/collabfs/collabfs-cli/internal/tui/icons"
	"github.com/collabfs/collabfs-cli/internal/tui/styles"
)

// Kind identifies an auth screen
type Kind int

const (
	KindLogin Kind = iota
	KindSignup
	KindConfirm    // code sent after signup
	KindForgot     // email for a reset code
	KindForgotCode // code sent for a reset
	KindReset      // new password
)

// Values holds every field any auth form edits
type Values struct {
	Email    string
	Username string
	Password string
	Confirm  string
	Code     string
}

// SubmitMsg is sent when the user completes a form
type SubmitMsg struct {
	Kind   Kind
	Values Values
}

// BackMsg is sent on esc
type BackMsg struct {
	Kind Kind
}

// ResendMsg is sent on ctrl+r from a code screen once the cooldown allows it
type ResendMsg struct {
	Kind Kind
}

// Model is one auth screen
type Model struct {
	kind   Kind
	values Values
	form   *huh.Form
	err    string
	notice string
	busy   bool
	width  int

	// countdown reports the resend wait on code screens
	countdown func() time.Duration
}

// New builds the screen for kind, prefilled with values
func New(kind Kind, values Values) *Model {
	m := &Model{kind: kind, values: values}
	m.form = m.buildForm()
	return m
}

func (m *Model) Kind() Kind {
	return m.kind
}

func (m *Model) Values() Values {
	return m.values
}

// IsCodeEntry reports whether the screen asks for an emailed code
func (m *Model) IsCodeEntry() bool {
	return m.kind == KindConfirm || m.kind == KindForgotCode
}

// SetCountdown wires the resend cooldown shown on code screens
func (m *Model) SetCountdown(fn func() time.Duration) {
	m.countdown = fn
}

// SetError shows msg and reopens the form. Entered values are kept except
// the code, which must be typed again.
func (m *Model) SetError(msg string) tea.Cmd {
	m.err = msg
	m.notice = ""
	m.busy = false
	if m.IsCodeEntry() {
		m.values.Code = ""
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// SetNotice shows an informational line, e.g. after a resend
func (m *Model) SetNotice(msg string) {
	m.notice = msg
	m.err = ""
}

func (m *Model) SetWidth(width int) {
	m.width = width
}

func passwordInput(title string, value *string) *huh.Input {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(value)
}

func (m *Model) buildForm() *huh.Form {
	var fields []huh.Field
	email := huh.NewInput().
		Title("Email").
		Placeholder("you@example.com").
		Value(&m.values.Email)
	code := huh.NewInput().
		Title("Verification code").
		Placeholder("123456").
		CharLimit(flow.OTPLength).
		Value(&m.values.Code)

	switch m.kind {
	case KindLogin:
		fields = []huh.Field{email, passwordInput("Password", &m.values.Password)}
	case KindSignup:
		fields = []huh.Field{
			email,
			huh.NewInput().
				Title("Username").
				Placeholder("letters, numbers, spaces, underscores").
				Value(&m.values.Username),
			passwordInput("Password", &m.values.Password),
			passwordInput("Confirm password", &m.values.Confirm),
		}
	case KindConfirm, KindForgotCode:
		fields = []huh.Field{code}
	case KindForgot:
		fields = []huh.Field{email}
	case KindReset:
		fields = []huh.Field{
			passwordInput("New password", &m.values.Password),
			passwordInput("Confirm new password", &m.values.Confirm),
		}
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(Theme()).
		WithShowHelp(false)
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			kind := m.kind
			return m, func() tea.Msg { return BackMsg{Kind: kind} }
		case "ctrl+r":
			if m.IsCodeEntry() && !m.busy && m.remaining() == 0 {
				kind := m.kind
				return m, func() tea.Msg { return ResendMsg{Kind: kind} }
			}
			return m, nil
		}
		if m.busy {
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.busy {
		m.busy = true
		m.err = ""
		if m.IsCodeEntry() {
			m.values.Code = flow.NormalizeOTP(m.values.Code)
		}
		submit := SubmitMsg{Kind: m.kind, Values: m.values}
		return m, func() tea.Msg { return submit }
	}
	return m, cmd
}

func (m *Model) remaining() time.Duration {
	if m.countdown == nil {
		return 0
	}
	return m.countdown()
}

func (m *Model) heading() (title, subtitle string) {
	switch m.kind {
	case KindLogin:
		return icons.Lock.String() + " Sign in", "Welcome back to CollabFS"
	case KindSignup:
		return icons.User.String() + " Create your account", "Join CollabFS to share files with your groups"
	case KindConfirm:
		return icons.Mail.String() + " Verify your email", fmt.Sprintf("We sent a 6-digit code to %s", m.values.Email)
	case KindForgot:
		return icons.Key.String() + " Forgot password", "Enter your email and we'll send you a reset code"
	case KindForgotCode:
		return icons.Mail.String() + " Check your email", fmt.Sprintf("Enter the code sent to %s", m.values.Email)
	case KindReset:
		return icons.Key.String() + " Set a new password", "Choose a password you haven't used before"
	}
	return "", ""
}

// View implements tea.Model
func (m *Model) View() string {
	var sb strings.Builder

	title, subtitle := m.heading()
	sb.WriteString(styles.Title.Render(title))
	sb.WriteString("\n")
	sb.WriteString(styles.Subtitle.Render(subtitle))
	sb.WriteString("\n")
	sb.WriteString(m.form.View())

	if m.kind == KindSignup || m.kind == KindReset {
		sb.WriteString("\n")
		sb.WriteString(m.renderRules())
	}
	if m.IsCodeEntry() {
		sb.WriteString("\n")
		sb.WriteString(m.renderResend())
	}

	if m.busy {
		sb.WriteString("\n" + lipgloss.NewStyle().Foreground(styles.Muted).Render("Please wait..."))
	}
	if m.err != "" {
		sb.WriteString("\n" + styles.StatusCritical.Render(icons.Critical.String()+" "+m.err))
	}
	if m.notice != "" {
		sb.WriteString("\n" + styles.StatusOK.Render(icons.CheckOK.String()+" "+m.notice))
	}
	return sb.String()
}

// renderRules is the live password checklist
func (m *Model) renderRules() string {
	met := lipgloss.NewStyle().Foreground(styles.Secondary)
	unmet := lipgloss.NewStyle().Foreground(styles.Muted)

	var lines []string
	for _, r := range flow.PasswordRules(m.values.Password).Rules() {
		if r.Met {
			lines = append(lines, met.Render(icons.CheckOK.String()+" "+r.Label))
		} else {
			lines = append(lines, unmet.Render("○ "+r.Label))
		}
	}
	if m.values.Confirm != "" {
		if m.values.Confirm == m.values.Password {
			lines = append(lines, met.Render(icons.CheckOK.String()+" Passwords match"))
		} else {
			lines = append(lines, styles.StatusCritical.Render(icons.Critical.String()+" Passwords don't match"))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderResend() string {
	if left := m.remaining(); left > 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).
			Render("Resend code in " + flow.FormatCountdown(left))
	}
	return styles.KeyStyle.Render("ctrl+r") + lipgloss.NewStyle().Foreground(styles.Muted).Render(" Resend code")
}
