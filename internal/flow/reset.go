// ABOUTME: Forgot-password request, code verification and password reset
// ABOUTME: Progress lives in temp_ session keys between steps

package flow

import (
	"context"
	"log/slog"

	"github.com/collabfs/collabfs-cli/internal/session"
)

// Forgot drives the forgot-password page: email, then code
type Forgot struct {
	f *Flow
}

func (f *Flow) Forgot() *Forgot {
	return &Forgot{f: f}
}

// Email is the address the pending reset was requested for
func (fg *Forgot) Email() string {
	email, err := fg.f.sess.Temp(TempResetEmail)
	if err != nil {
		return ""
	}
	return email
}

// Request starts a reset for email, discarding any previous one.
func (fg *Forgot) Request(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := fg.f.sess.ClearAllTemp(); err != nil {
		return err
	}
	fg.f.cooldown.Release()

	if _, err := fg.f.api.SendOTP(ctx, email); err != nil {
		return err
	}
	fg.f.cooldown.Start()

	if err := fg.f.sess.SetTemp(TempResetEmail, email); err != nil {
		return err
	}
	return fg.f.sess.SetTemp(TempOTPSentAt, fg.f.stamp())
}

// Resend sends a fresh code to the pending reset email.
func (fg *Forgot) Resend(ctx context.Context) error {
	email := fg.Email()
	if email == "" {
		return ErrResetNotStarted
	}
	if err := fg.f.sendWithCooldown(ctx, email); err != nil {
		return err
	}
	return fg.f.sess.SetTemp(TempOTPSentAt, fg.f.stamp())
}

// Verify checks the code and records the verification for the reset step.
func (fg *Forgot) Verify(ctx context.Context, otp string) error {
	if !ValidOTP(otp) {
		return invalid("Please enter a valid 6-digit code")
	}
	email := fg.Email()
	if email == "" {
		return ErrResetNotStarted
	}

	if _, err := fg.f.api.VerifyOTP(ctx, email, otp); err != nil {
		return err
	}

	for _, kv := range [][2]string{
		{TempOTPVerified, "true"},
		{TempVerifiedAt, fg.f.stamp()},
		{TempVerifiedOTP, otp},
		{TempVerifiedEmail, email},
	} {
		if err := fg.f.sess.SetTemp(kv[0], kv[1]); err != nil {
			return err
		}
	}
	fg.f.cooldown.Release()
	return nil
}

// Reset drives the new-password page
type Reset struct {
	f *Flow
}

func (f *Flow) Reset() *Reset {
	return &Reset{f: f}
}

// Authorize checks that a verified code is on record and still fresh. An
// expired verification clears all temp state.
func (r *Reset) Authorize() error {
	verified, err := r.f.sess.Temp(TempOTPVerified)
	if err != nil {
		return err
	}
	email, err := r.f.sess.Temp(TempVerifiedEmail)
	if err != nil {
		return err
	}
	if verified == "" || email == "" {
		return ErrResetNotAuthorized
	}

	raw, err := r.f.sess.Temp(TempVerifiedAt)
	if err != nil {
		return err
	}
	if at, ok := parseStamp(raw); ok && r.f.now().Sub(at) > ResetWindow {
		if cerr := r.f.sess.ClearAllTemp(); cerr != nil {
			slog.Warn("Clearing expired reset data", "error", cerr)
		}
		return ErrResetExpired
	}
	return nil
}

// Complete sets the new password and logs the user in.
func (r *Reset) Complete(ctx context.Context, password, confirm string) (session.UserData, error) {
	if err := r.Authorize(); err != nil {
		return session.UserData{}, err
	}
	if err := ValidateNewPassword(password, confirm); err != nil {
		return session.UserData{}, err
	}

	email, err := r.f.sess.Temp(TempVerifiedEmail)
	if err != nil {
		return session.UserData{}, err
	}
	if email == "" {
		if email, err = r.f.sess.Temp(TempResetEmail); err != nil {
			return session.UserData{}, err
		}
	}
	otp, err := r.f.sess.Temp(TempVerifiedOTP)
	if err != nil {
		return session.UserData{}, err
	}
	if email == "" || otp == "" {
		return session.UserData{}, ErrResetSessionMissing
	}

	resp, err := r.f.api.UpdatePassword(ctx, email, otp, password)
	if err != nil {
		return session.UserData{}, err
	}

	u := session.UserData{
		Email:          email,
		Username:       resp.Username,
		HashedPassword: resp.Pwd,
		Token:          resp.Token,
		ID:             resp.UserID,
	}
	if err := r.f.sess.SetUserData(u); err != nil {
		return session.UserData{}, err
	}
	if err := r.f.sess.Touch(); err != nil {
		return session.UserData{}, err
	}
	slog.Info("Password reset", "user_id", u.ID)
	return u, r.f.sess.ClearAllTemp()
}
