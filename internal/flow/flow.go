// ABOUTME: Auth flow controller shared by the CLI and the TUI
// ABOUTME: Holds the form, the session, the backend API and the resend cooldown

package flow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/collabfs/collabfs-cli/internal/client"
	"github.com/collabfs/collabfs-cli/internal/session"
)

// Temp keys used across the signup and password-reset steps
const (
	TempResetEmail    = "resetEmail"
	TempOTPSentAt     = "otpSentAt"
	TempLastOTPResend = "lastOtpResend"
	TempOTPVerified   = "otpVerified"
	TempVerifiedAt    = "verifiedAt"
	TempVerifiedOTP   = "verifiedOtp"
	TempVerifiedEmail = "verifiedEmail"
)

// ResetWindow is how long a verified OTP authorizes a password reset
const ResetWindow = 10 * time.Minute

var (
	// ErrAlreadyLoggedIn means signup was attempted over a live session
	ErrAlreadyLoggedIn = errors.New("You are already signed in. Log out before creating another account.")
	// ErrSignupDataMissing means the signup step must be redone
	ErrSignupDataMissing = errors.New("Signup data not found. Please start signup again.")
	// ErrResetNotStarted means no forgot-password request is pending
	ErrResetNotStarted = errors.New("No password reset in progress. Request a code first.")
	// ErrResetNotAuthorized means the reset code was never verified
	ErrResetNotAuthorized = errors.New("Please verify the code sent to your email first.")
	// ErrResetExpired means the verified code is older than ResetWindow
	ErrResetExpired = errors.New("Verification expired. Please request a new code.")
	// ErrResetSessionMissing means the verified email or code is gone
	ErrResetSessionMissing = errors.New("Session expired. Please start the reset process again.")
)

// API is the subset of the backend client the auth flow needs
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Signup(ctx context.Context, email, password, username string) (*client.SignupResponse, error)
	SendOTP(ctx context.Context, email string) (*client.MessageResponse, error)
	SetUserID(ctx context.Context, email, username, hashedPassword, otp string) (*client.AccountResponse, error)
	VerifyOTP(ctx context.Context, email, otp string) (*client.MessageResponse, error)
	UpdatePassword(ctx context.Context, email, otp, password string) (*client.UpdatePasswordResponse, error)
}

// Flow replaces a shared UI context: every screen gets the same *Flow.
type Flow struct {
	Form Form

	api      API
	sess     *session.Session
	now      func() time.Time
	cooldown *Cooldown
}

// Option configures a Flow
type Option func(*Flow)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

func New(api API, sess *session.Session, opts ...Option) *Flow {
	f := &Flow{api: api, sess: sess, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	f.cooldown = NewCooldown(OTPResendInterval, f.now)
	return f
}

func (f *Flow) Session() *session.Session {
	return f.sess
}

// Cooldown is the OTP resend countdown shared by signup and forgot-password.
func (f *Flow) Cooldown() *Cooldown {
	return f.cooldown
}

// Back abandons any multi-step flow in progress.
func (f *Flow) Back() error {
	f.cooldown.Release()
	return f.sess.ClearAllTemp()
}

// Logout forgets the session entirely.
func (f *Flow) Logout() error {
	f.Form = Form{}
	return f.sess.Clear()
}

func (f *Flow) stamp() string {
	return strconv.FormatInt(f.now().UnixMilli(), 10)
}

func parseStamp(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// syncCooldown restarts the cooldown from the latest send recorded in the
// session, so a resend from a new process still honours the wait.
func (f *Flow) syncCooldown() {
	var latest time.Time
	for _, key := range []string{TempOTPSentAt, TempLastOTPResend} {
		raw, err := f.sess.Temp(key)
		if err != nil || raw == "" {
			continue
		}
		if t, ok := parseStamp(raw); ok && t.After(latest) {
			latest = t
		}
	}
	if !latest.IsZero() && latest.After(f.cooldown.Started()) {
		f.cooldown.StartAt(latest)
	}
}

// sendWithCooldown sends an OTP if the cooldown allows it. A failed send
// releases the cooldown so the user can retry at once.
func (f *Flow) sendWithCooldown(ctx context.Context, email string) error {
	f.syncCooldown()
	if left := f.cooldown.Remaining(); left > 0 {
		return &CooldownError{Remaining: left}
	}
	if _, err := f.api.SendOTP(ctx, email); err != nil {
		f.cooldown.Release()
		return err
	}
	f.cooldown.Start()
	return nil
}
