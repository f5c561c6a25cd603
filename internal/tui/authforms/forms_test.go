// ABOUTME: Tests for the auth form models
// ABOUTME: Covers submission, back and resend messages, errors and the checklist

package authforms

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type noop struct{}

func TestHeadings(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindLogin, "Sign in"},
		{KindSignup, "Create your account"},
		{KindConfirm, "We sent a 6-digit code to ada@example.com"},
		{KindForgot, "Forgot password"},
		{KindForgotCode, "Enter the code sent to ada@example.com"},
		{KindReset, "Set a new password"},
	}
	for _, tc := range tests {
		m := New(tc.kind, Values{Email: "ada@example.com"})
		if view := m.View(); !strings.Contains(view, tc.want) {
			t.Errorf("kind %d: expected view to contain %q", tc.kind, tc.want)
		}
	}
}

func TestEscSendsBack(t *testing.T) {
	m := New(KindSignup, Values{})
	_, cmd := m.Update(key("esc"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if msg, ok := cmd().(BackMsg); !ok || msg.Kind != KindSignup {
		t.Errorf("expected BackMsg{KindSignup}, got %#v", msg)
	}
}

func TestSubmitNormalizesCode(t *testing.T) {
	m := New(KindConfirm, Values{Email: "ada@example.com"})
	m.values.Code = "12 34-56"
	m.form.State = huh.StateCompleted

	_, cmd := m.Update(noop{})
	if cmd == nil {
		t.Fatal("expected a submit command")
	}
	msg, ok := cmd().(SubmitMsg)
	if !ok {
		t.Fatalf("expected SubmitMsg, got %#v", msg)
	}
	if msg.Kind != KindConfirm || msg.Values.Code != "123456" || msg.Values.Email != "ada@example.com" {
		t.Errorf("unexpected submit: %#v", msg)
	}
	if !m.busy {
		t.Error("expected the form to be busy after submit")
	}

	// A second update while busy must not resubmit
	if _, cmd := m.Update(noop{}); cmd != nil {
		t.Error("expected no second submission")
	}
}

func TestSetErrorReopensForm(t *testing.T) {
	m := New(KindConfirm, Values{Email: "ada@example.com", Code: "123456"})
	m.busy = true
	m.form.State = huh.StateCompleted

	m.SetError("Invalid or expired OTP")

	if m.busy {
		t.Error("expected busy to clear")
	}
	if m.form.State != huh.StateNormal {
		t.Error("expected a fresh form")
	}
	if m.values.Code != "" {
		t.Errorf("expected code to be cleared, got %q", m.values.Code)
	}
	if !strings.Contains(m.View(), "Invalid or expired OTP") {
		t.Error("expected error in view")
	}
}

func TestSetErrorKeepsLoginValues(t *testing.T) {
	m := New(KindLogin, Values{Email: "ada@example.com", Password: "Secret1!"})
	m.SetError("Invalid email or password")
	if m.Values().Email != "ada@example.com" || m.Values().Password != "Secret1!" {
		t.Errorf("expected values kept, got %#v", m.Values())
	}
}

func TestResendRespectsCountdown(t *testing.T) {
	left := 90 * time.Second
	m := New(KindForgotCode, Values{Email: "ada@example.com"})
	m.SetCountdown(func() time.Duration { return left })

	if _, cmd := m.Update(key("ctrl+r")); cmd != nil {
		t.Error("expected resend to be blocked during the countdown")
	}
	if !strings.Contains(m.View(), "Resend code in 1:30") {
		t.Error("expected countdown in view")
	}

	left = 0
	_, cmd := m.Update(key("ctrl+r"))
	if cmd == nil {
		t.Fatal("expected resend once the countdown is over")
	}
	if msg, ok := cmd().(ResendMsg); !ok || msg.Kind != KindForgotCode {
		t.Errorf("expected ResendMsg, got %#v", msg)
	}
}

func TestResendIgnoredOutsideCodeScreens(t *testing.T) {
	m := New(KindLogin, Values{})
	if _, cmd := m.Update(key("ctrl+r")); cmd != nil {
		t.Error("expected ctrl+r to do nothing on the login screen")
	}
}

func TestPasswordChecklist(t *testing.T) {
	m := New(KindReset, Values{Password: "abc", Confirm: "abd"})
	rules := m.renderRules()
	for _, want := range []string{"At least 8 characters", "One special character", "Passwords don't match"} {
		if !strings.Contains(rules, want) {
			t.Errorf("expected checklist to contain %q", want)
		}
	}

	m.values.Confirm = "abc"
	if !strings.Contains(m.renderRules(), "Passwords match") {
		t.Error("expected match line")
	}
}
