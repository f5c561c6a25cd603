// ABOUTME: Root bubbletea model for the TUI application
// ABOUTME: Manages screen state, runs auth steps and routes keyboard input to child components

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/collabfs/collabfs-cli/internal/config"
	"github.com/collabfs/collabfs-cli/internal/flow"
	"github.com/collabfs/collabfs-cli/internal/groups"
	"github.com/collabfs/collabfs-cli/internal/logger"
	"github.com/collabfs/collabfs-cli/internal/session"
	"github.com/collabfs/collabfs-cli/internal/tui/authforms"
	"github.com/collabfs/collabfs-cli/internal/tui/dashboard"
	"github.com/collabfs/collabfs-cli/internal/tui/icons"
	"github.com/collabfs/collabfs-cli/internal/tui/menu"
	"github.com/collabfs/collabfs-cli/internal/tui/recentemails"
	"github.com/collabfs/collabfs-cli/internal/tui/styles"
	"github.com/collabfs/collabfs-cli/internal/tui/widgets"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenMenu Screen = iota
	ScreenLogin
	ScreenSignup
	ScreenConfirm
	ScreenForgot
	ScreenForgotCode
	ScreenReset
	ScreenDashboard
)

// Layout constants
const (
	minTerminalWidth = 80
	frameHeight      = 2 // header and footer lines
)

// Timer intervals
const (
	otpTickInterval    = time.Second
	tokenCheckInterval = 5 * time.Minute
	idleCheckInterval  = 30 * time.Second
	// touchInterval throttles activity writes to the session store
	touchInterval = 30 * time.Second
)

// User-facing notices
const (
	msgSessionExpired = "Your session has expired. Please sign in again."
	msgIdleLoggedOut  = "You were signed out after 30 minutes of inactivity."
)

var screenForKind = map[authforms.Kind]Screen{
	authforms.KindLogin:      ScreenLogin,
	authforms.KindSignup:     ScreenSignup,
	authforms.KindConfirm:    ScreenConfirm,
	authforms.KindForgot:     ScreenForgot,
	authforms.KindForgotCode: ScreenForgotCode,
	authforms.KindReset:      ScreenReset,
}

// authResultMsg is sent when an auth step's backend call completes
type authResultMsg struct {
	kind   authforms.Kind
	values authforms.Values
	user   session.UserData
	err    error
}

// resendResultMsg is sent when a code resend completes
type resendResultMsg struct {
	kind authforms.Kind
	err  error
}

type otpTickMsg struct{}

type tokenCheckMsg struct{}

type idleCheckMsg struct{}

// Deps is everything the TUI needs from the outside
type Deps struct {
	Flow   *flow.Flow
	Groups groups.API
	// Limit is the per-user storage quota shown in the sidebar
	Limit  int64
	Recent *recentemails.RecentEmails
	// Now defaults to time.Now
	Now func() time.Time
}

// App is the root model for the TUI
type App struct {
	flow   *flow.Flow
	sess   *session.Session
	api    groups.API
	limit  int64
	recent *recentemails.RecentEmails
	now    func() time.Time

	screen Screen
	width  int
	height int
	user   session.UserData

	// idle is the latest inactivity reading while signed in
	idle      session.IdleStatus
	lastTouch time.Time

	// Child models
	menu      *menu.Menu
	form      *authforms.Model
	dashboard *dashboard.Dashboard
}

// New creates the TUI. A valid stored session opens straight on the
// dashboard; otherwise the start menu is shown.
func New(deps Deps) *App {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	a := &App{
		flow:   deps.Flow,
		sess:   deps.Flow.Session(),
		api:    deps.Groups,
		limit:  deps.Limit,
		recent: deps.Recent,
		now:    now,
		screen: ScreenMenu,
		menu:   menu.New(),
	}

	if a.sess.IsLoggedIn() && !a.sess.Idle().Expired {
		if u, err := a.sess.UserData(); err == nil {
			a.user = u
			a.dashboard = dashboard.New(a.api, u, a.limit)
			a.screen = ScreenDashboard
		}
	}
	return a
}

// Screen returns the screen being shown
func (a *App) Screen() Screen {
	return a.screen
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	var first tea.Cmd
	if a.screen == ScreenDashboard {
		a.touch()
		first = a.dashboard.Init()
	} else {
		first = a.menu.Init()
	}
	return tea.Batch(first, otpTick(), tokenCheck(), idleCheck())
}

func otpTick() tea.Cmd {
	return tea.Tick(otpTickInterval, func(time.Time) tea.Msg { return otpTickMsg{} })
}

func tokenCheck() tea.Cmd {
	return tea.Tick(tokenCheckInterval, func(time.Time) tea.Msg { return tokenCheckMsg{} })
}

func idleCheck() tea.Cmd {
	return tea.Tick(idleCheckInterval, func(time.Time) tea.Msg { return idleCheckMsg{} })
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.dashboard != nil {
			a.dashboard.SetSize(a.frameWidth(), a.contentHeight())
		}
		if a.form != nil {
			a.form.SetWidth(a.frameWidth())
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.updateKeys(msg)

	case menu.SelectedMsg:
		return a.handleMenu(msg)

	case authforms.SubmitMsg:
		return a, a.submit(msg)

	case authforms.BackMsg:
		return a.handleBack(msg)

	case authforms.ResendMsg:
		return a, a.resend(msg.Kind)

	case authResultMsg:
		return a.handleAuthResult(msg)

	case resendResultMsg:
		if a.form == nil || a.form.Kind() != msg.kind {
			return a, nil
		}
		if msg.err != nil {
			return a, a.form.SetError(msg.err.Error())
		}
		a.form.SetNotice("A new code was sent to " + a.form.Values().Email)
		return a, nil

	case otpTickMsg:
		// re-render only; code screens read the countdown in View
		return a, otpTick()

	case tokenCheckMsg:
		if a.screen == ScreenDashboard && !a.sess.IsLoggedIn() {
			slog.Info("Token expired, returning to login")
			return a, tea.Batch(a.signedOut(msgSessionExpired), tokenCheck())
		}
		return a, tokenCheck()

	case idleCheckMsg:
		return a, tea.Batch(a.checkIdle(), idleCheck())
	}

	return a.forward(msg)
}

// forward passes other messages (loads, spinners, form internals) to the
// active child
func (a *App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.screen {
	case ScreenMenu:
		_, cmd = a.menu.Update(msg)
	case ScreenDashboard:
		if a.dashboard != nil {
			_, cmd = a.dashboard.Update(msg)
		}
	default:
		if a.form != nil {
			_, cmd = a.form.Update(msg)
		}
	}
	return a, cmd
}

func (a *App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.screen != ScreenDashboard {
		return a.forward(msg)
	}

	a.throttledTouch()
	if a.dashboard.Typing() {
		return a.forward(msg)
	}
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "L":
		if err := a.flow.Logout(); err != nil {
			slog.Warn("Logout", "error", err)
		}
		slog.Info("Logged out", "user_id", a.user.ID)
		a.user = session.UserData{}
		a.dashboard = nil
		a.idle = session.IdleStatus{}
		a.screen = ScreenMenu
		return a, a.menu.Reset()
	case "x":
		if a.idle.Warning {
			if err := a.sess.Extend(); err != nil {
				slog.Warn("Extending session", "error", err)
			}
			a.lastTouch = a.now()
			a.idle = session.IdleStatus{}
			return a, nil
		}
	}
	return a.forward(msg)
}

// touch records activity and remembers when
func (a *App) touch() {
	if err := a.sess.Touch(); err != nil {
		slog.Warn("Recording activity", "error", err)
	}
	a.lastTouch = a.now()
}

func (a *App) throttledTouch() {
	// The warning must be dismissed explicitly with x.
	if a.idle.Warning {
		return
	}
	if a.now().Sub(a.lastTouch) >= touchInterval {
		a.touch()
	}
}

// checkIdle updates the warning banner or signs out an idle user
func (a *App) checkIdle() tea.Cmd {
	if a.screen != ScreenDashboard {
		return nil
	}
	a.idle = a.sess.Idle()
	if a.idle.Expired {
		slog.Info("Idle timeout, signing out", "user_id", a.user.ID)
		if err := a.flow.Logout(); err != nil {
			slog.Warn("Logout", "error", err)
		}
		return a.signedOut(msgIdleLoggedOut)
	}
	return nil
}

// signedOut leaves the dashboard for the login screen with a reason
func (a *App) signedOut(reason string) tea.Cmd {
	email := a.user.Email
	a.user = session.UserData{}
	a.dashboard = nil
	a.idle = session.IdleStatus{}
	a.openForm(authforms.KindLogin, authforms.Values{Email: email})
	return a.form.SetError(reason)
}

func (a *App) handleMenu(msg menu.SelectedMsg) (tea.Model, tea.Cmd) {
	switch msg.Choice {
	case menu.ChoiceLogin:
		var email string
		if a.recent != nil {
			email = a.recent.Latest()
		}
		return a, a.openForm(authforms.KindLogin, authforms.Values{Email: email})
	case menu.ChoiceSignup:
		return a, a.openForm(authforms.KindSignup, authforms.Values{})
	case menu.ChoiceForgot:
		return a, a.openForm(authforms.KindForgot, authforms.Values{})
	}
	return a, tea.Quit
}

// openForm switches to the auth screen for kind
func (a *App) openForm(kind authforms.Kind, values authforms.Values) tea.Cmd {
	a.form = authforms.New(kind, values)
	a.form.SetWidth(a.frameWidth())
	if a.form.IsCodeEntry() {
		a.form.SetCountdown(a.flow.Cooldown().Remaining)
	}
	a.screen = screenForKind[kind]
	return a.form.Init()
}

func (a *App) showMenu() tea.Cmd {
	a.form = nil
	a.screen = ScreenMenu
	return a.menu.Reset()
}

func (a *App) handleBack(msg authforms.BackMsg) (tea.Model, tea.Cmd) {
	if err := a.flow.Back(); err != nil {
		slog.Warn("Clearing flow data", "error", err)
	}
	values := authforms.Values{}
	if a.form != nil {
		values = a.form.Values()
		values.Password, values.Confirm, values.Code = "", "", ""
	}

	switch msg.Kind {
	case authforms.KindConfirm:
		return a, a.openForm(authforms.KindSignup, authforms.Values{Email: values.Email, Username: values.Username})
	case authforms.KindForgotCode:
		return a, a.openForm(authforms.KindForgot, authforms.Values{Email: values.Email})
	}
	return a, a.showMenu()
}

// submit runs the backend step for a completed form
func (a *App) submit(msg authforms.SubmitMsg) tea.Cmd {
	f, v, kind := a.flow, msg.Values, msg.Kind
	result := func(u session.UserData, err error) tea.Msg {
		return authResultMsg{kind: kind, values: v, user: u, err: err}
	}
	ctx := context.Background()

	switch kind {
	case authforms.KindLogin:
		f.Form = flow.Form{Email: strings.TrimSpace(v.Email), Password: v.Password}
		return func() tea.Msg { return result(f.Login(ctx)) }

	case authforms.KindSignup:
		f.Form = flow.Form{
			Email:           strings.TrimSpace(v.Email),
			Username:        strings.TrimSpace(v.Username),
			Password:        v.Password,
			ConfirmPassword: v.Confirm,
		}
		return func() tea.Msg {
			if err := f.Signup(ctx); err != nil {
				return result(session.UserData{}, err)
			}
			return result(session.UserData{}, f.Confirm().Start(ctx))
		}

	case authforms.KindConfirm:
		return func() tea.Msg { return result(f.Confirm().Complete(ctx, v.Code)) }

	case authforms.KindForgot:
		return func() tea.Msg {
			return result(session.UserData{}, f.Forgot().Request(ctx, strings.TrimSpace(v.Email)))
		}

	case authforms.KindForgotCode:
		return func() tea.Msg { return result(session.UserData{}, f.Forgot().Verify(ctx, v.Code)) }

	case authforms.KindReset:
		return func() tea.Msg { return result(f.Reset().Complete(ctx, v.Password, v.Confirm)) }
	}
	return nil
}

func (a *App) resend(kind authforms.Kind) tea.Cmd {
	f := a.flow
	ctx := context.Background()
	return func() tea.Msg {
		var err error
		if kind == authforms.KindForgotCode {
			err = f.Forgot().Resend(ctx)
		} else {
			err = f.Confirm().Resend(ctx)
		}
		return resendResultMsg{kind: kind, err: err}
	}
}

func (a *App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if a.form == nil || a.form.Kind() != msg.kind {
		return a, nil
	}

	if msg.err != nil {
		slog.Debug("Auth step failed", "step", msg.kind, "error", msg.err)
		switch {
		case errors.Is(msg.err, flow.ErrSignupDataMissing):
			a.openForm(authforms.KindSignup, authforms.Values{})
			return a, a.form.SetError(msg.err.Error())
		case errors.Is(msg.err, flow.ErrResetExpired),
			errors.Is(msg.err, flow.ErrResetNotAuthorized),
			errors.Is(msg.err, flow.ErrResetSessionMissing),
			errors.Is(msg.err, flow.ErrResetNotStarted):
			a.openForm(authforms.KindForgot, authforms.Values{})
			return a, a.form.SetError(msg.err.Error())
		}
		return a, a.form.SetError(msg.err.Error())
	}

	v := msg.values
	switch msg.kind {
	case authforms.KindSignup:
		return a, a.openForm(authforms.KindConfirm, authforms.Values{Email: v.Email, Username: v.Username})
	case authforms.KindForgot:
		return a, a.openForm(authforms.KindForgotCode, authforms.Values{Email: v.Email})
	case authforms.KindForgotCode:
		return a, a.openForm(authforms.KindReset, authforms.Values{Email: v.Email})
	}
	return a, a.signedIn(msg.user)
}

// signedIn opens the dashboard for u
func (a *App) signedIn(u session.UserData) tea.Cmd {
	if a.recent != nil && u.Email != "" {
		if err := a.recent.Add(u.Email); err != nil {
			slog.Warn("Saving recent email", "error", err)
		}
	}
	a.user = u
	a.form = nil
	a.idle = session.IdleStatus{}
	a.lastTouch = a.now()
	a.dashboard = dashboard.New(a.api, u, a.limit)
	a.dashboard.SetSize(a.frameWidth(), a.contentHeight())
	a.screen = ScreenDashboard
	return a.dashboard.Init()
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenMenu:
		content = a.menu.View()
	case ScreenDashboard:
		content = a.viewDashboard()
	default:
		if a.form != nil {
			content = styles.Panel.Render(a.form.View())
		}
	}

	return a.wrapWithFrame(content)
}

func (a *App) viewDashboard() string {
	if a.dashboard == nil {
		return ""
	}
	if a.idle.Warning {
		banner := fmt.Sprintf("%s You will be signed out in %d minute(s) due to inactivity. Press x to stay signed in.",
			icons.Warning.String(), a.idle.MinutesLeft)
		return styles.Banner.Render(banner) + "\n" + a.dashboard.View()
	}
	return a.dashboard.View()
}

// frameWidth is one column short of the terminal so the border never wraps
func (a *App) frameWidth() int {
	w := a.width - 1
	if w < minTerminalWidth {
		w = minTerminalWidth
	}
	return w
}

// contentHeight is the height left between header and footer
func (a *App) contentHeight() int {
	return a.height - frameHeight
}

// renderHeader creates the header bar with app branding and the signed-in user
func (a *App) renderHeader() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("CollabFS"))

	rightText := ""
	if a.screen == ScreenDashboard && a.user.Username != "" {
		rightText = " " + widgets.Avatar(a.user.Username) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText) // -4 for ╭─ and ─╮
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╭─") + leftText + borderStyle.Render(strings.Repeat("─", fillWidth)) +
		rightText + borderStyle.Render("─╮")
}

// renderFooter creates the footer with keyboard shortcuts for the screen
func (a *App) renderFooter() string {
	width := a.frameWidth()

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)

	var shortcuts []string
	switch a.screen {
	case ScreenMenu:
		shortcuts = []string{"↑↓ Navigate", "Enter Select", "q Quit"}
	case ScreenConfirm, ScreenForgotCode:
		shortcuts = []string{"Enter Verify", "ctrl+r Resend", "Esc Back"}
	case ScreenDashboard:
		if a.dashboard != nil && a.dashboard.Typing() {
			shortcuts = []string{"Enter Apply", "Esc Close"}
		} else {
			shortcuts = []string{"tab Section", "/ Search", "s Star", "n New", "r Refresh", "L Logout", "q Quit"}
		}
	default:
		shortcuts = []string{"Tab Next", "Enter Submit", "Esc Back"}
	}

	var styled []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		styled = append(styled, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
	}
	leftText := " " + strings.Join(styled, "  ") + " "

	fillWidth := width - 4 - lipgloss.Width(leftText) // -4 for ╰─ and ─╯
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╰─") + leftText + borderStyle.Render(strings.Repeat("─", fillWidth)+"─╯")
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder

	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())

	return sb.String()
}

// Run starts the TUI. Logs go to a file in the config directory so they do
// not corrupt the screen.
func Run(cfg *config.Config, deps Deps) error {
	f, err := logger.OpenFile(cfg.ConfigDir)
	if err != nil {
		return err
	}
	defer f.Close()
	logger.Init(f, cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting TUI", "api_url", cfg.APIURL)

	p := tea.NewProgram(New(deps), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
