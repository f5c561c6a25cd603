// ABOUTME: Signup and the OTP confirmation step that creates the account
// ABOUTME: Signup data waits in the session until the OTP is confirmed

package flow

import (
	"context"
	"log/slog"

	"github.com/collabfs/collabfs-cli/internal/session"
)

// Signup validates the form and registers the pending account. On success
// the email, username and server-side password hash are stored for the
// confirmation step. A signed-in session is refused and left untouched, as
// is the session when the form fails local validation.
func (f *Flow) Signup(ctx context.Context) error {
	if f.sess.IsLoggedIn() {
		return ErrAlreadyLoggedIn
	}
	if err := ValidateSignup(f.Form); err != nil {
		return err
	}
	if err := f.sess.ClearAllTemp(); err != nil {
		return err
	}

	if err := f.signup(ctx); err != nil {
		if cerr := f.sess.Clear(); cerr != nil {
			slog.Warn("Clearing session after failed signup", "error", cerr)
		}
		return err
	}
	return nil
}

func (f *Flow) signup(ctx context.Context) error {
	resp, err := f.api.Signup(ctx, f.Form.Email, f.Form.Password, f.Form.Username)
	if err != nil {
		return err
	}

	return f.sess.SetUserData(session.UserData{
		Email:          f.Form.Email,
		Username:       f.Form.Username,
		HashedPassword: resp.SessionDetails.HashedPassword,
	})
}

// Confirm drives the OTP page that follows signup
type Confirm struct {
	f *Flow
}

func (f *Flow) Confirm() *Confirm {
	return &Confirm{f: f}
}

// Email is the address the code goes to
func (c *Confirm) Email() string {
	email, err := c.f.sess.Get(session.KeyEmail)
	if err != nil {
		return ""
	}
	return email
}

// Start sends the first code and starts the resend countdown.
func (c *Confirm) Start(ctx context.Context) error {
	email := c.Email()
	if email == "" {
		return ErrSignupDataMissing
	}
	if _, err := c.f.api.SendOTP(ctx, email); err != nil {
		return err
	}
	c.f.cooldown.Start()
	return c.f.sess.SetTemp(TempOTPSentAt, c.f.stamp())
}

// Resend sends a new code once the countdown has run out.
func (c *Confirm) Resend(ctx context.Context) error {
	email := c.Email()
	if email == "" {
		return ErrSignupDataMissing
	}
	if err := c.f.sendWithCooldown(ctx, email); err != nil {
		return err
	}
	return c.f.sess.SetTemp(TempLastOTPResend, c.f.stamp())
}

// Complete confirms the code and stores the new account's session. Missing
// signup data is fatal for the flow and clears all temp state; a wrong code
// is not.
func (c *Confirm) Complete(ctx context.Context, otp string) (session.UserData, error) {
	if !ValidOTP(otp) {
		return session.UserData{}, invalid("Please enter a valid 6-digit code")
	}

	stored, err := c.f.sess.UserData()
	if err != nil {
		return session.UserData{}, err
	}
	if stored.Email == "" || stored.Username == "" || stored.HashedPassword == "" {
		if cerr := c.f.sess.ClearAllTemp(); cerr != nil {
			slog.Warn("Clearing temp data", "error", cerr)
		}
		return session.UserData{}, ErrSignupDataMissing
	}

	resp, err := c.f.api.SetUserID(ctx, stored.Email, stored.Username, stored.HashedPassword, otp)
	if err != nil {
		return session.UserData{}, err
	}

	u := session.UserData{
		Email:          resp.Email,
		Username:       resp.Username,
		HashedPassword: resp.HashedPassword,
		Token:          resp.Token,
		ID:             resp.ID,
	}
	if err := c.f.sess.SetUserData(u); err != nil {
		return session.UserData{}, err
	}
	if err := c.f.sess.Touch(); err != nil {
		return session.UserData{}, err
	}
	c.f.cooldown.Release()
	slog.Info("Account created", "user_id", u.ID)
	return u, c.f.sess.ClearAllTemp()
}
